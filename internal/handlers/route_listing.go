package handlers

import (
	"bytes"
	"html/template"
	"net/http"
	"sort"
	"strings"

	"lessonapp/internal/observability"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

// Route groups shown on the listing page
const (
	RouteGroupPage   = "page"
	RouteGroupAPI    = "api"
	RouteGroupSystem = "system"
)

// RouteInfo describes one registered route
type RouteInfo struct {
	Method      string `json:"method"`
	Path        string `json:"path"`
	Group       string `json:"group"`
	HandlerName string `json:"handler_name"`
}

// RouteListingHandler lists the routes registered on the engine
type RouteListingHandler struct {
	serviceName string
	routes      []RouteInfo
}

var routeListingTemplate = template.Must(template.New("routes").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<title>{{.ServiceName}} routes</title>
<link rel="stylesheet" href="/assets/style.css">
</head>
<body>
<main class="routes">
<h1>{{.ServiceName}}</h1>
{{range .Groups}}
<section data-group="{{.Name}}">
<h2>{{.Name}} ({{len .Routes}})</h2>
<table>
<thead><tr><th>Method</th><th>Path</th><th>Handler</th></tr></thead>
<tbody>
{{range .Routes}}<tr><td class="method">{{.Method}}</td><td>{{if eq .Method "GET"}}<a href="{{.Path}}">{{.Path}}</a>{{else}}{{.Path}}{{end}}</td><td>{{.HandlerName}}</td></tr>
{{end}}</tbody>
</table>
</section>
{{end}}
<p><a href="/routes?json=true">JSON</a></p>
</main>
</body>
</html>`))

type routeGroupView struct {
	Name   string
	Routes []RouteInfo
}

// NewRouteListingHandler creates a new route listing handler
func NewRouteListingHandler(serviceName string) *RouteListingHandler {
	return &RouteListingHandler{
		serviceName: serviceName,
		routes:      []RouteInfo{},
	}
}

// CollectRoutes snapshots the engine's routes, sorted by path then method
func (h *RouteListingHandler) CollectRoutes(engine *gin.Engine) {
	h.routes = []RouteInfo{}
	for _, route := range engine.Routes() {
		if strings.HasPrefix(route.Path, "/debug/") {
			continue
		}
		h.routes = append(h.routes, RouteInfo{
			Method:      route.Method,
			Path:        route.Path,
			Group:       routeGroup(route.Path),
			HandlerName: route.Handler,
		})
	}
	sort.Slice(h.routes, func(i, j int) bool {
		if h.routes[i].Path == h.routes[j].Path {
			return h.routes[i].Method < h.routes[j].Method
		}
		return h.routes[i].Path < h.routes[j].Path
	})
}

func routeGroup(path string) string {
	switch {
	case strings.HasPrefix(path, "/v1/") || path == "/v1":
		return RouteGroupAPI
	case path == "/health" || path == "/routes" || strings.HasPrefix(path, "/assets"):
		return RouteGroupSystem
	default:
		return RouteGroupPage
	}
}

// GetRouteListingPage shows the routes as HTML, grouped by surface
func (h *RouteListingHandler) GetRouteListingPage(c *gin.Context) {
	_, span := observability.TraceHandlerFunction(c.Request.Context(), "get_route_listing_page",
		attribute.Int("routes.count", len(h.routes)),
	)
	defer observability.FinishSpan(span, nil)

	var buf bytes.Buffer
	if err := routeListingTemplate.Execute(&buf, map[string]interface{}{
		"ServiceName": h.serviceName,
		"Groups":      h.groups(),
	}); err != nil {
		HandleAppError(c, err)
		return
	}
	c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}

// GetRouteListingJSON returns the route listing as JSON
func (h *RouteListingHandler) GetRouteListingJSON(c *gin.Context) {
	_, span := observability.TraceHandlerFunction(c.Request.Context(), "get_route_listing_json")
	defer observability.FinishSpan(span, nil)
	c.JSON(http.StatusOK, h.routes)
}

func (h *RouteListingHandler) groups() []routeGroupView {
	order := []string{RouteGroupPage, RouteGroupAPI, RouteGroupSystem}
	byGroup := make(map[string][]RouteInfo, len(order))
	for _, r := range h.routes {
		byGroup[r.Group] = append(byGroup[r.Group], r)
	}
	views := make([]routeGroupView, 0, len(order))
	for _, name := range order {
		if len(byGroup[name]) == 0 {
			continue
		}
		views = append(views, routeGroupView{Name: name, Routes: byGroup[name]})
	}
	return views
}
