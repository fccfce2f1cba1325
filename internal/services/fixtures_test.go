package services

import (
	"context"
	"sync"
	"testing"

	"lessonapp/internal/config"
	"lessonapp/internal/models"
	"lessonapp/internal/observability"
)

const nileLessonPlanJSON = `{
  "title": "نهر النيل شريان الحياة في مصر",
  "gradeLevel": "الصف الرابع الابتدائي",
  "estimatedTime": "45 دقيقة",
  "objectives": [
    "يحدد منابع نهر النيل على الخريطة",
    "يصف أهمية نهر النيل للحياة في مصر"
  ],
  "hook": "عرض صورة فضائية لمصر ليلاً وسؤال التلاميذ: لماذا تتركز الأضواء حول خط واحد؟",
  "contentElements": [
    {"title": "منابع النيل", "details": "ينبع نهر النيل من هضبة البحيرات الاستوائية وهضبة الحبشة."},
    {"title": "أهمية النيل", "details": "يعتمد المصريون على النيل في الشرب والزراعة والنقل."}
  ],
  "activities": {
    "individual": "يلون التلميذ مجرى النيل على خريطة صماء.",
    "group": "تعد كل مجموعة لوحة عن فائدة من فوائد النيل."
  },
  "differentiation": {
    "gifted": "يقارن التلميذ بين نهر النيل ونهر الأمازون من حيث الطول والاستخدام.",
    "learningDifficulties": "يرتب التلميذ بطاقات مصورة لمسار النيل من المنبع إلى المصب."
  },
  "resources": [
    {"name": "كتاب الوزارة", "description": "الكتاب المدرسي المعتمد", "category": "قراءة", "url": "https://ellibrary.moe.gov.eg/books/"}
  ],
  "additionalResources": [
    {"name": "مقالة ويكيبيديا", "description": "معلومات إضافية عن النيل", "category": "قراءة", "url": "https://ar.wikipedia.org/wiki/نهر_النيل"}
  ],
  "evaluation": {
    "formative": "أسئلة شفهية أثناء الشرح.",
    "authentic": "تصميم ملصق للحفاظ على مياه النيل.",
    "summative": "اختبار قصير في نهاية الحصة.",
    "quiz": {
      "questions": [
        {"text": "ينبع نهر النيل من ...", "type": "multiple_choice", "options": ["هضبة الحبشة", "جبال الألب"], "answer": "هضبة الحبشة"},
        {"text": "يصب نهر النيل في البحر الأحمر.", "type": "true_false", "answer": "خطأ"},
        {"text": "يبلغ طول نهر النيل حوالي ... كم.", "type": "complete", "answer": "6650"}
      ]
    }
  }
}`

func nileLessonPlanDocument() models.LessonPlanDocument {
	return models.LessonPlanDocument{
		Title:         "نهر النيل شريان الحياة في مصر",
		GradeLevel:    "الصف الرابع الابتدائي",
		EstimatedTime: "45 دقيقة",
		Objectives: []string{
			"يحدد منابع نهر النيل على الخريطة",
			"يصف أهمية نهر النيل للحياة في مصر",
		},
		Hook: "عرض صورة فضائية لمصر ليلاً وسؤال التلاميذ: لماذا تتركز الأضواء حول خط واحد؟",
		ContentElements: []models.ContentElement{
			{Title: "منابع النيل", Details: "ينبع نهر النيل من هضبة البحيرات الاستوائية وهضبة الحبشة."},
			{Title: "أهمية النيل", Details: "يعتمد المصريون على النيل في الشرب والزراعة والنقل."},
		},
		Activities: models.Activities{
			Individual: "يلون التلميذ مجرى النيل على خريطة صماء.",
			Group:      "تعد كل مجموعة لوحة عن فائدة من فوائد النيل.",
		},
		Differentiation: models.Differentiation{
			Gifted:               "يقارن التلميذ بين نهر النيل ونهر الأمازون من حيث الطول والاستخدام.",
			LearningDifficulties: "يرتب التلميذ بطاقات مصورة لمسار النيل من المنبع إلى المصب.",
		},
		Resources: []models.ResourceItem{
			{Name: "كتاب الوزارة", Description: "الكتاب المدرسي المعتمد", Category: "قراءة", URL: "https://ellibrary.moe.gov.eg/books/"},
		},
		AdditionalResources: []models.ResourceItem{
			{Name: "مقالة ويكيبيديا", Description: "معلومات إضافية عن النيل", Category: "قراءة", URL: "https://ar.wikipedia.org/wiki/نهر_النيل"},
		},
		Evaluation: models.Evaluation{
			Formative: "أسئلة شفهية أثناء الشرح.",
			Authentic: "تصميم ملصق للحفاظ على مياه النيل.",
			Summative: "اختبار قصير في نهاية الحصة.",
			Quiz: models.Quiz{Questions: []models.QuizQuestion{
				{Text: "ينبع نهر النيل من ...", Type: models.QuestionMultipleChoice, Options: []string{"هضبة الحبشة", "جبال الألب"}, Answer: "هضبة الحبشة"},
				{Text: "يصب نهر النيل في البحر الأحمر.", Type: models.QuestionTrueFalse, Answer: "خطأ"},
				{Text: "يبلغ طول نهر النيل حوالي ... كم.", Type: models.QuestionComplete, Answer: "6650"},
			}},
		},
	}
}

func nileRequest() *models.LessonPlanRequest {
	return &models.LessonPlanRequest{
		Topic:      "نهر النيل",
		GradeLevel: "الصف الرابع الابتدائي",
		Subject:    "الجغرافيا",
	}
}

func newTestConfig(candidates ...string) *config.Config {
	cfg := config.Default()
	cfg.AI.APIKey = "test-api-key-0123456789abcdef"
	if len(candidates) > 0 {
		cfg.AI.Models = candidates
	}
	return cfg
}

// generatorStep scripts the reply for one call
type generatorStep struct {
	text string
	err  error
	// block waits for ctx to end before returning ctx.Err()
	block bool
	// hook runs before the reply is returned
	hook func(ctx context.Context)
}

// scriptedGenerator replies to calls in order and records the models it was asked for
type scriptedGenerator struct {
	mu    sync.Mutex
	steps []generatorStep
	calls []string
}

func (g *scriptedGenerator) Generate(ctx context.Context, model string, _ *PromptBundle) (string, error) {
	g.mu.Lock()
	idx := len(g.calls)
	g.calls = append(g.calls, model)
	var step generatorStep
	if idx < len(g.steps) {
		step = g.steps[idx]
	}
	g.mu.Unlock()

	if step.hook != nil {
		step.hook(ctx)
	}
	if step.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return step.text, step.err
}

func (g *scriptedGenerator) Calls() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.calls...)
}

func newTestService(t *testing.T, cfg *config.Config, gen Generator) *LessonPlanService {
	t.Helper()
	tracker, err := NewGenerationTracker(cfg.Server.MaxSessions)
	if err != nil {
		t.Fatalf("tracker: %v", err)
	}
	svc, err := NewLessonPlanService(cfg, gen, nil, tracker, nil, observability.NewNopLogger())
	if err != nil {
		t.Fatalf("service: %v", err)
	}
	return svc
}
