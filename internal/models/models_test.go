package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLessonPlanRequest_Normalize(t *testing.T) {
	req := LessonPlanRequest{
		Topic:           "  نهر النيل \n",
		GradeLevel:      " الصف الرابع الابتدائي ",
		Subject:         "الجغرافيا ",
		Strategies:      []string{"العصف الذهني (Brainstorming)", " ", "العصف الذهني (Brainstorming)"},
		ContentElements: []string{" منابع النيل", "", "منابع النيل", "روافد النيل"},
	}
	req.Normalize()

	assert.Equal(t, "نهر النيل", req.Topic)
	assert.Equal(t, "الصف الرابع الابتدائي", req.GradeLevel)
	assert.Equal(t, "الجغرافيا", req.Subject)
	assert.Equal(t, []string{"العصف الذهني (Brainstorming)"}, req.Strategies)
	assert.Equal(t, []string{"منابع النيل", "روافد النيل"}, req.ContentElements)
}

func TestLessonPlanRequest_ContentElements(t *testing.T) {
	var req LessonPlanRequest

	assert.True(t, req.AddContentElement(" منابع النيل "))
	assert.False(t, req.AddContentElement("منابع النيل"), "duplicates are rejected")
	assert.False(t, req.AddContentElement("   "), "blank entries are rejected")
	assert.True(t, req.AddContentElement("السد العالي"))
	assert.Equal(t, []string{"منابع النيل", "السد العالي"}, req.ContentElements)

	req.RemoveContentElement(5)
	req.RemoveContentElement(-1)
	assert.Len(t, req.ContentElements, 2)

	req.RemoveContentElement(0)
	assert.Equal(t, []string{"السد العالي"}, req.ContentElements)
}

func TestDefaultLessonPlanDocument(t *testing.T) {
	doc := DefaultLessonPlanDocument()

	assert.Equal(t, PlaceholderTitle, doc.Title)
	assert.Equal(t, []string{PlaceholderObjective}, doc.Objectives)
	require.Len(t, doc.ContentElements, 1)
	assert.Equal(t, PlaceholderContentDiagnostic, doc.ContentElements[0].Details)
	assert.NotNil(t, doc.Resources)
	assert.NotNil(t, doc.AdditionalResources)
	assert.NotNil(t, doc.Evaluation.Quiz.Questions)

	data, err := json.Marshal(doc)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"resources":[]`)
	assert.Contains(t, string(data), `"additionalResources":[]`)
	assert.Contains(t, string(data), `"questions":[]`)
	assert.NotContains(t, string(data), "null")
}

func TestDefaultLessonPlanDocument_FreshCopies(t *testing.T) {
	a := DefaultLessonPlanDocument()
	b := DefaultLessonPlanDocument()

	a.Objectives[0] = "changed"
	a.ContentElements[0].Title = "changed"

	assert.Equal(t, PlaceholderObjective, b.Objectives[0])
	assert.Equal(t, PlaceholderContentTitle, b.ContentElements[0].Title)
}

func TestNormalizationReport_Degraded(t *testing.T) {
	tests := []struct {
		name     string
		report   NormalizationReport
		expected bool
	}{
		{name: "clean", report: NormalizationReport{Stage: ParseDirect}, expected: false},
		{name: "schema violations alone", report: NormalizationReport{Stage: ParseDirect, SchemaViolations: []string{"x"}}, expected: false},
		{name: "defaulted field", report: NormalizationReport{Stage: ParseDirect, Defaulted: []string{"hook"}}, expected: true},
		{name: "repaired", report: NormalizationReport{Stage: ParseRepaired}, expected: true},
		{name: "failed", report: NormalizationReport{Stage: ParseFailed}, expected: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.report.Degraded())
		})
	}
}
