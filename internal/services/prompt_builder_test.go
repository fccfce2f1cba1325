package services

import (
	"encoding/json"
	"strings"
	"testing"

	"lessonapp/internal/config"
	"lessonapp/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func newTestPromptBuilder(t *testing.T) *PromptBuilder {
	t.Helper()
	b, err := NewPromptBuilder(config.DefaultCurriculum())
	require.NoError(t, err)
	return b
}

func TestPromptBuilder_FullRequest(t *testing.T) {
	b := newTestPromptBuilder(t)
	req := &models.LessonPlanRequest{
		Topic:           "نهر النيل",
		GradeLevel:      "الصف الرابع الابتدائي",
		Subject:         "الجغرافيا",
		Strategies:      []string{"العصف الذهني (Brainstorming)", "جدول التعلم (K.W.L)"},
		ContentElements: []string{"منابع النيل", "أهمية النيل"},
	}

	bundle, err := b.Build(req)
	require.NoError(t, err)

	assert.Contains(t, bundle.UserPrompt, `"نهر النيل"`)
	assert.Contains(t, bundle.UserPrompt, "Subject: الجغرافيا.")
	assert.Contains(t, bundle.UserPrompt, "Grade: الصف الرابع الابتدائي.")
	assert.Contains(t, bundle.UserPrompt, "Stage: المرحلة الابتدائية.")
	assert.Contains(t, bundle.UserPrompt, "العصف الذهني (Brainstorming)، جدول التعلم (K.W.L)")
	assert.Contains(t, bundle.UserPrompt, "منابع النيل، أهمية النيل")
	assert.Contains(t, bundle.UserPrompt, "One contentElements entry for each requested content element")
	assert.Contains(t, bundle.UserPrompt, MinistryLibraryURL)
	assert.Contains(t, bundle.UserPrompt, `"additionalResources"`, "the schema is embedded in the prompt")
	assert.NotContains(t, bundle.UserPrompt, NotSpecified)

	assert.NotEmpty(t, bundle.SystemInstruction)
	assert.Contains(t, bundle.SystemInstruction, MinistryLibraryURL)
	assert.Equal(t, LessonPlanSchema(), bundle.Schema)
}

func TestPromptBuilder_TopicOnly(t *testing.T) {
	b := newTestPromptBuilder(t)

	bundle, err := b.Build(&models.LessonPlanRequest{Topic: "الحملة الفرنسية"})
	require.NoError(t, err)

	assert.Contains(t, bundle.UserPrompt, "Subject: "+NotSpecified+".")
	assert.Contains(t, bundle.UserPrompt, "Grade: "+NotSpecified+".")
	assert.Contains(t, bundle.UserPrompt, "Stage: "+NotSpecified+".")
	assert.Contains(t, bundle.UserPrompt, "Strategies: "+NotSpecified+".")
	assert.Contains(t, bundle.UserPrompt, "Content elements: "+NotSpecified+".")
	assert.NotContains(t, bundle.UserPrompt, "One contentElements entry")
}

func TestPromptBuilder_StageWithoutGrade(t *testing.T) {
	b := newTestPromptBuilder(t)

	bundle, err := b.Build(&models.LessonPlanRequest{Topic: "الخرائط", Stage: config.StageSecondary})
	require.NoError(t, err)
	assert.Contains(t, bundle.UserPrompt, "Stage: المرحلة الثانوية.")
}

func TestPromptBuilder_IsDeterministic(t *testing.T) {
	b := newTestPromptBuilder(t)
	req := nileRequest()

	first, err := b.Build(req)
	require.NoError(t, err)
	second, err := b.Build(req)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestPromptBuilder_NilRequest(t *testing.T) {
	_, err := newTestPromptBuilder(t).Build(nil)
	assert.Error(t, err)
}

func TestLessonPlanSchema_IsValidJSON(t *testing.T) {
	var schema map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(LessonPlanSchema()), &schema))
	assert.True(t, strings.Contains(LessonPlanSchema(), `"evaluation"`))
}

func TestLessonPlanResponseSchema(t *testing.T) {
	schema, err := LessonPlanResponseSchema()
	require.NoError(t, err)

	assert.Equal(t, genai.TypeObject, schema.Type)
	for _, key := range []string{"title", "objectives", "contentElements", "resources", "additionalResources", "evaluation"} {
		assert.Contains(t, schema.Properties, key)
	}

	resources := schema.Properties["resources"]
	require.NotNil(t, resources.Items)
	assert.Equal(t, genai.TypeObject, resources.Items.Type, "$ref definitions are resolved")
	assert.Contains(t, resources.Items.Properties, "url")

	questions := schema.Properties["evaluation"].Properties["quiz"].Properties["questions"]
	require.NotNil(t, questions)
	questionType := questions.Items.Properties["type"]
	assert.ElementsMatch(t, []string{models.QuestionMultipleChoice, models.QuestionTrueFalse, models.QuestionComplete}, questionType.Enum)
	assert.Equal(t, "enum", questionType.Format)
}
