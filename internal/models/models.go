// Package models defines the data structures shared by the lesson plan pipeline.
package models

import (
	"strings"
	"time"
)

// Quiz question kinds
const (
	QuestionMultipleChoice = "multiple_choice"
	QuestionTrueFalse      = "true_false"
	QuestionComplete       = "complete"
)

// LessonPlanRequest is what a user submits from the form or the JSON API.
type LessonPlanRequest struct {
	Topic           string   `json:"topic" form:"topic" validate:"required,max=200"`
	Stage           string   `json:"stage,omitempty" form:"stage"`
	GradeLevel      string   `json:"gradeLevel,omitempty" form:"gradeLevel"`
	Subject         string   `json:"subject,omitempty" form:"subject"`
	Strategies      []string `json:"strategies,omitempty" form:"strategies"`
	ContentElements []string `json:"contentElements,omitempty" form:"contentElements"`
}

// Normalize trims every field and drops empty and repeated list entries, keeping first-seen order.
func (r *LessonPlanRequest) Normalize() {
	r.Topic = strings.TrimSpace(r.Topic)
	r.Stage = strings.TrimSpace(r.Stage)
	r.GradeLevel = strings.TrimSpace(r.GradeLevel)
	r.Subject = strings.TrimSpace(r.Subject)
	r.Strategies = uniqueTrimmed(r.Strategies)
	r.ContentElements = uniqueTrimmed(r.ContentElements)
}

// AddContentElement appends a trimmed element unless it is empty or already present.
// It reports whether the element was added.
func (r *LessonPlanRequest) AddContentElement(element string) bool {
	element = strings.TrimSpace(element)
	if element == "" {
		return false
	}
	for _, existing := range r.ContentElements {
		if existing == element {
			return false
		}
	}
	r.ContentElements = append(r.ContentElements, element)
	return true
}

// RemoveContentElement drops the element at index i; out-of-range indexes are ignored.
func (r *LessonPlanRequest) RemoveContentElement(i int) {
	if i < 0 || i >= len(r.ContentElements) {
		return
	}
	r.ContentElements = append(r.ContentElements[:i], r.ContentElements[i+1:]...)
}

func uniqueTrimmed(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// ContentElement is one explained section of the lesson
type ContentElement struct {
	Title   string `json:"title"`
	Details string `json:"details"`
}

// Activities holds the individual and group activity descriptions
type Activities struct {
	Individual string `json:"individual"`
	Group      string `json:"group"`
}

// Differentiation holds the extra activities for gifted students and for students who need support
type Differentiation struct {
	Gifted               string `json:"gifted"`
	LearningDifficulties string `json:"learningDifficulties"`
}

// ResourceItem is a learning resource. URL is only set when it is a valid http(s) link.
type ResourceItem struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
	URL         string `json:"url,omitempty"`
}

// QuizQuestion is one short-quiz item. Options are only used for multiple choice.
type QuizQuestion struct {
	Text    string   `json:"text"`
	Type    string   `json:"type"`
	Options []string `json:"options,omitempty"`
	Answer  string   `json:"answer"`
}

// Quiz groups the short-quiz questions
type Quiz struct {
	Questions []QuizQuestion `json:"questions"`
}

// Evaluation holds the assessment section of the plan
type Evaluation struct {
	Formative string `json:"formative"`
	Authentic string `json:"authentic"`
	Summative string `json:"summative"`
	Quiz      Quiz   `json:"quiz"`
}

// LessonPlanDocument is the normalized lesson plan. Every field is populated and every
// list is non-nil once it leaves the normalizer.
type LessonPlanDocument struct {
	Title               string           `json:"title"`
	GradeLevel          string           `json:"gradeLevel"`
	EstimatedTime       string           `json:"estimatedTime"`
	Objectives          []string         `json:"objectives"`
	Hook                string           `json:"hook"`
	ContentElements     []ContentElement `json:"contentElements"`
	Activities          Activities       `json:"activities"`
	Differentiation     Differentiation  `json:"differentiation"`
	Resources           []ResourceItem   `json:"resources"`
	AdditionalResources []ResourceItem   `json:"additionalResources"`
	Evaluation          Evaluation       `json:"evaluation"`
}

// ParseStage records how far the normalizer had to go to read the raw payload
type ParseStage string

const (
	// ParseDirect means the payload parsed after fence stripping and brace slicing
	ParseDirect ParseStage = "direct"
	// ParseRepaired means the payload only parsed after truncation repair
	ParseRepaired ParseStage = "repaired"
	// ParseFailed means nothing could be parsed and the default document was used
	ParseFailed ParseStage = "failed"
)

// NormalizationReport is produced next to every normalized document
type NormalizationReport struct {
	Stage            ParseStage `json:"stage"`
	Defaulted        []string   `json:"defaulted"`
	SchemaViolations []string   `json:"schemaViolations"`
}

// Degraded reports whether the document needed repair or placeholder values
func (r NormalizationReport) Degraded() bool {
	return r.Stage != ParseDirect || len(r.Defaulted) > 0
}

// GenerationResult is one completed generation cycle
type GenerationResult struct {
	Document    LessonPlanDocument  `json:"document"`
	Report      NormalizationReport `json:"report"`
	Degraded    bool                `json:"degraded"`
	Model       string              `json:"model"`
	Attempts    int                 `json:"attempts"`
	Sequence    uint64              `json:"sequence"`
	GeneratedAt time.Time           `json:"generatedAt"`
}
