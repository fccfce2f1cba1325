package handlers

import (
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/secure"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"

	"lessonapp/internal/config"
	"lessonapp/internal/middleware"
	"lessonapp/internal/observability"
	"lessonapp/internal/services"
	"lessonapp/internal/version"
)

// NewRouter creates the gin engine with all middleware and routes
func NewRouter(
	cfg *config.Config,
	lessonPlanService services.LessonPlanServiceInterface,
	logger *observability.Logger,
) (*gin.Engine, error) {
	gin.SetMode(gin.ReleaseMode)
	if cfg.Server.Debug {
		gin.SetMode(gin.DebugMode)
	}

	renderer, err := NewRenderer()
	if err != nil {
		return nil, err
	}

	router := gin.New()
	router.Use(middleware.ErrorRecoveryMiddleware(logger))

	// HTTP request logging through the observability logger
	router.Use(func(c *gin.Context) {
		start := time.Now()

		c.Next()

		latency := time.Since(start)
		statusCode := c.Writer.Status()
		fields := map[string]interface{}{
			"http.method":      c.Request.Method,
			"http.path":        c.Request.URL.Path,
			"http.status_code": statusCode,
			"http.latency_ms":  latency.Milliseconds(),
			"http.client_ip":   c.ClientIP(),
			"http.user_agent":  c.Request.UserAgent(),
		}
		if len(c.Errors) > 0 {
			fields["http.error"] = c.Errors.String()
		}
		if statusCode >= 400 {
			fields["http.response_size"] = c.Writer.Size()
			if statusCode >= 500 {
				fields["http.error_type"] = "server_error"
			} else {
				fields["http.error_type"] = "client_error"
			}
		}

		switch {
		case statusCode >= 500:
			logger.Error(c.Request.Context(), "HTTP request failed", nil, fields)
		case statusCode >= 400:
			logger.Warn(c.Request.Context(), "HTTP request warning", fields)
		default:
			logger.Info(c.Request.Context(), "HTTP request", fields)
		}
	})

	// Health check endpoint (defined before any middleware)
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": cfg.OpenTelemetry.ServiceName})
	})

	// OpenTelemetry tracing with automatic error attributes
	router.Use(observability.GinMiddleware(cfg.OpenTelemetry.ServiceName))
	router.Use(observability.ErrorAttributesMiddleware())

	router.RedirectTrailingSlash = false

	corsConfig := cors.DefaultConfig()
	if len(cfg.Server.CORSOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.Server.CORSOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowCredentials = len(cfg.Server.CORSOrigins) > 0
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Accept-Language", "X-Requested-With"}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	// Cookie sessions key the per-browser generation slot
	store := cookie.NewStore([]byte(cfg.Server.SessionSecret))
	sessionOpts := sessions.Options{
		Path:     config.SessionPath,
		MaxAge:   int(config.SessionMaxAge.Seconds()),
		HttpOnly: config.SessionHTTPOnly,
		Secure:   config.SessionSecure,
	}
	if cfg.Server.Debug {
		sessionOpts.SameSite = http.SameSiteDefaultMode
	} else {
		sessionOpts.SameSite = http.SameSiteLaxMode
	}
	store.Options(sessionOpts)
	router.Use(sessions.Sessions(config.SessionName, store))
	router.Use(SessionIDMiddleware(logger))

	secureConfig := secure.DefaultConfig()
	secureConfig.SSLRedirect = false
	secureConfig.ContentSecurityPolicy = config.DefaultCSP
	router.Use(secure.New(secureConfig))

	assets, err := fs.Sub(AssetsFS, "templates/assets")
	if err != nil {
		return nil, err
	}
	router.StaticFS("/assets", http.FS(assets))

	pageHandler := NewPageHandler(lessonPlanService, renderer,
		[]services.Exporter{NewPrintExporter(renderer), services.JSONExporter{}}, cfg, logger)
	lessonPlanHandler := NewLessonPlanHandler(lessonPlanService, cfg, logger)

	// Server-rendered pages
	router.GET("/", pageHandler.ShowForm)
	plans := router.Group("/plans")
	{
		plans.POST("", pageHandler.SubmitForm)
		plans.POST("/cancel", pageHandler.CancelGeneration)
		plans.GET("/current", pageHandler.ShowCurrent)
		plans.GET("/current/print", pageHandler.PrintCurrent)
		plans.GET("/current/export.json", pageHandler.ExportCurrentJSON)
	}

	v1 := router.Group("/v1")
	{
		v1.GET("/version", func(c *gin.Context) {
			c.JSON(http.StatusOK, version.Get(cfg.OpenTelemetry.ServiceName))
		})
		v1.GET("/curriculum", lessonPlanHandler.GetCurriculum)

		lessonPlans := v1.Group("/lesson-plans")
		{
			lessonPlans.POST("", lessonPlanHandler.GenerateLessonPlan)
			lessonPlans.POST("/cancel", lessonPlanHandler.CancelLessonPlan)
			lessonPlans.GET("/current", lessonPlanHandler.GetCurrentLessonPlan)
		}

		if cfg.Server.Debug {
			v1.POST("/prompt/preview", lessonPlanHandler.PreviewPrompt)
		}
	}

	router.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/v1/") {
			StandardizeHTTPError(c, http.StatusNotFound, "Not found", c.Request.URL.Path)
			return
		}
		c.Redirect(http.StatusSeeOther, "/")
	})

	routeListing := NewRouteListingHandler(cfg.OpenTelemetry.ServiceName)
	router.GET("/routes", func(c *gin.Context) {
		if c.Query("json") == "true" {
			routeListing.GetRouteListingJSON(c)
		} else {
			routeListing.GetRouteListingPage(c)
		}
	})
	routeListing.CollectRoutes(router)

	return router, nil
}
