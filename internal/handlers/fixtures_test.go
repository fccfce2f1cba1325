package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"lessonapp/internal/config"
	"lessonapp/internal/observability"
	"lessonapp/internal/services"
	contextutils "lessonapp/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

const nileTopic = "نهر النيل"

const nileLessonPlanJSON = `{
  "title": "نهر النيل شريان الحياة في مصر",
  "gradeLevel": "الصف الرابع الابتدائي",
  "estimatedTime": "45 دقيقة",
  "objectives": ["يحدد منابع نهر النيل على الخريطة"],
  "hook": "عرض صورة فضائية لمصر ليلاً",
  "contentElements": [{"title": "منابع النيل", "details": "ينبع نهر النيل من هضبة البحيرات الاستوائية وهضبة الحبشة."}],
  "activities": {"individual": "يلون التلميذ مجرى النيل.", "group": "تعد كل مجموعة لوحة."},
  "differentiation": {"gifted": "مقارنة النيل بالأمازون.", "learningDifficulties": "ترتيب بطاقات مصورة."},
  "resources": [{"name": "كتاب الوزارة", "description": "الكتاب المدرسي", "category": "قراءة", "url": "https://ellibrary.moe.gov.eg/books/"}],
  "additionalResources": [],
  "evaluation": {
    "formative": "أسئلة شفهية.",
    "authentic": "تصميم ملصق.",
    "summative": "اختبار قصير.",
    "quiz": {"questions": [{"text": "يصب نهر النيل في البحر الأحمر.", "type": "true_false", "answer": "خطأ"}]}
  }
}`

// scriptStep answers one Generate call; block waits for release or ctx
type scriptStep struct {
	raw   string
	err   error
	block bool
}

type scriptedGenerator struct {
	mu      sync.Mutex
	steps   []scriptStep
	calls   []string
	started chan struct{}
	release chan struct{}
}

func newScriptedGenerator(steps ...scriptStep) *scriptedGenerator {
	return &scriptedGenerator{
		steps:   steps,
		started: make(chan struct{}, 8),
		release: make(chan struct{}),
	}
}

func (g *scriptedGenerator) Generate(ctx context.Context, model string, _ *services.PromptBundle) (string, error) {
	g.mu.Lock()
	g.calls = append(g.calls, model)
	var step scriptStep
	if len(g.steps) > 0 {
		step = g.steps[0]
		if len(g.steps) > 1 {
			g.steps = g.steps[1:]
		}
	}
	g.mu.Unlock()

	if step.block {
		g.started <- struct{}{}
		select {
		case <-ctx.Done():
			return "", contextutils.WrapError(contextutils.ErrTimeout, ctx.Err().Error())
		case <-g.release:
		}
	}
	return step.raw, step.err
}

func (g *scriptedGenerator) Calls() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.calls...)
}

func rateLimited() error {
	return contextutils.WrapError(contextutils.ErrAIRequestFailed, "status 429: quota exceeded")
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.AI.Models = []string{"model-a", "model-b", "model-c"}
	cfg.AI.AttemptTimeout = 5 * time.Second
	cfg.Server.SessionSecret = "handlers-test-secret-0123456789"
	return cfg
}

// newTestRouter wires the real router around a scripted generator. A non-nil configErr
// simulates a missing credential.
func newTestRouter(t *testing.T, generator services.Generator, configErr error) (*gin.Engine, *config.Config) {
	t.Helper()
	cfg := testConfig()
	return newTestRouterWithConfig(t, cfg, generator, configErr), cfg
}

func newTestRouterWithConfig(t *testing.T, cfg *config.Config, generator services.Generator, configErr error) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := observability.NewNopLogger()

	tracker, err := services.NewGenerationTracker(cfg.Server.MaxSessions)
	require.NoError(t, err)
	service, err := services.NewLessonPlanService(cfg, generator, configErr, tracker, nil, logger)
	require.NoError(t, err)

	router, err := NewRouter(cfg, service, logger)
	require.NoError(t, err)
	return router
}

// browser carries the session cookie between requests like a real client would
type browser struct {
	t       *testing.T
	router  *gin.Engine
	mu      sync.Mutex
	cookies []*http.Cookie
}

func newBrowser(t *testing.T, router *gin.Engine) *browser {
	b := &browser{t: t, router: router}
	b.do(httptest.NewRequest(http.MethodGet, "/", nil))
	return b
}

func (b *browser) do(req *http.Request) *httptest.ResponseRecorder {
	b.mu.Lock()
	for _, ck := range b.cookies {
		req.AddCookie(ck)
	}
	b.mu.Unlock()

	w := httptest.NewRecorder()
	b.router.ServeHTTP(w, req)

	if cookies := w.Result().Cookies(); len(cookies) > 0 {
		b.mu.Lock()
		b.cookies = cookies
		b.mu.Unlock()
	}
	return w
}

func (b *browser) get(path string) *httptest.ResponseRecorder {
	return b.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func (b *browser) postForm(path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return b.do(req)
}

func (b *browser) postJSON(path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return b.do(req)
}
