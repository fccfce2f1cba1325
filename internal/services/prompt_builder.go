package services

import (
	"embed"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"

	"lessonapp/internal/config"
	"lessonapp/internal/models"
	contextutils "lessonapp/internal/utils"

	"google.golang.org/genai"
)

//go:embed templates/*.tmpl
var promptTemplatesFS embed.FS

//go:embed templates/lesson_plan_schema.json
var lessonPlanSchemaJSON string

// Template names as constants
const (
	SystemInstructionTemplate = "system_instruction.tmpl"
	LessonPlanPromptTemplate  = "lesson_plan_prompt.tmpl"
)

// MinistryLibraryURL is the e-library link every plan must cite for textbooks
const MinistryLibraryURL = "https://ellibrary.moe.gov.eg/books/"

// NotSpecified is rendered in the prompt for empty optional values
const NotSpecified = "(not specified)"

// PromptTemplateData holds data for rendering the prompt templates
type PromptTemplateData struct {
	Topic           string
	GradeLevel      string
	StageLabel      string
	Subject         string
	Strategies      []string
	ContentElements []string

	SchemaForPrompt    string
	MinistryLibraryURL string
}

// PromptBundle is everything a Generator needs for one call
type PromptBundle struct {
	SystemInstruction string
	UserPrompt        string
	// Schema is the lesson plan JSON Schema, for providers that accept a grammar
	Schema string
}

// PromptBuilder renders the lesson plan prompt. Templates are parsed once; Build is pure.
type PromptBuilder struct {
	templates  *template.Template
	curriculum config.CurriculumConfig
}

// NewPromptBuilder parses the embedded templates
func NewPromptBuilder(curriculum config.CurriculumConfig) (*PromptBuilder, error) {
	templates, err := template.New("").Funcs(template.FuncMap{
		"orNotSpecified":     orNotSpecified,
		"joinOrNotSpecified": joinOrNotSpecified,
	}).ParseFS(promptTemplatesFS, "templates/*.tmpl")
	if err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to parse prompt templates: %v", err)
	}
	return &PromptBuilder{templates: templates, curriculum: curriculum}, nil
}

// Build renders the system instruction and the user prompt for a normalized request
func (b *PromptBuilder) Build(req *models.LessonPlanRequest) (*PromptBundle, error) {
	if req == nil {
		return nil, contextutils.WrapError(contextutils.ErrInvalidInput, "request is required")
	}

	data := PromptTemplateData{
		Topic:              req.Topic,
		GradeLevel:         req.GradeLevel,
		StageLabel:         b.stageLabel(req),
		Subject:            req.Subject,
		Strategies:         req.Strategies,
		ContentElements:    req.ContentElements,
		SchemaForPrompt:    lessonPlanSchemaJSON,
		MinistryLibraryURL: MinistryLibraryURL,
	}

	system, err := b.render(SystemInstructionTemplate, data)
	if err != nil {
		return nil, err
	}
	prompt, err := b.render(LessonPlanPromptTemplate, data)
	if err != nil {
		return nil, err
	}
	return &PromptBundle{
		SystemInstruction: strings.TrimSpace(system),
		UserPrompt:        strings.TrimSpace(prompt),
		Schema:            lessonPlanSchemaJSON,
	}, nil
}

func (b *PromptBuilder) render(name string, data PromptTemplateData) (string, error) {
	var buf strings.Builder
	if err := b.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to render %s: %v", name, err)
	}
	return buf.String(), nil
}

// stageLabel prefers the stage the grade belongs to over the submitted stage code
func (b *PromptBuilder) stageLabel(req *models.LessonPlanRequest) string {
	if req.GradeLevel != "" {
		if stage, ok := b.curriculum.StageOfGrade(req.GradeLevel); ok {
			return stage.Label
		}
	}
	if stage, ok := b.curriculum.Stage(req.Stage); ok {
		return stage.Label
	}
	return ""
}

func orNotSpecified(s string) string {
	if strings.TrimSpace(s) == "" {
		return NotSpecified
	}
	return s
}

func joinOrNotSpecified(items []string) string {
	if len(items) == 0 {
		return NotSpecified
	}
	return strings.Join(items, "، ")
}

// LessonPlanSchema returns the embedded lesson plan JSON Schema
func LessonPlanSchema() string {
	return lessonPlanSchemaJSON
}

// jsonSchemaNode is the subset of JSON Schema used by the lesson plan schema
type jsonSchemaNode struct {
	Ref         string                     `json:"$ref"`
	Type        string                     `json:"type"`
	Description string                     `json:"description"`
	Enum        []string                   `json:"enum"`
	Properties  map[string]*jsonSchemaNode `json:"properties"`
	Items       *jsonSchemaNode            `json:"items"`
	Required    []string                   `json:"required"`
	Definitions map[string]*jsonSchemaNode `json:"definitions"`
}

// LessonPlanResponseSchema converts the embedded JSON Schema into a Gemini response schema
func LessonPlanResponseSchema() (*genai.Schema, error) {
	var root jsonSchemaNode
	if err := json.Unmarshal([]byte(lessonPlanSchemaJSON), &root); err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrInternalError, "invalid lesson plan schema: %v", err)
	}
	return toGenAISchema(&root, root.Definitions, 0)
}

func toGenAISchema(node *jsonSchemaNode, defs map[string]*jsonSchemaNode, depth int) (*genai.Schema, error) {
	if depth > 16 {
		return nil, contextutils.WrapError(contextutils.ErrInternalError, "schema nesting too deep")
	}
	if node.Ref != "" {
		name := strings.TrimPrefix(node.Ref, "#/definitions/")
		def, ok := defs[name]
		if !ok {
			return nil, contextutils.WrapErrorf(contextutils.ErrInternalError, "unknown schema reference %q", node.Ref)
		}
		node = def
	}

	out := &genai.Schema{
		Description: node.Description,
		Enum:        node.Enum,
		Required:    node.Required,
	}
	switch node.Type {
	case "object":
		out.Type = genai.TypeObject
	case "array":
		out.Type = genai.TypeArray
	case "string":
		out.Type = genai.TypeString
	case "integer":
		out.Type = genai.TypeInteger
	case "number":
		out.Type = genai.TypeNumber
	case "boolean":
		out.Type = genai.TypeBoolean
	default:
		return nil, contextutils.WrapErrorf(contextutils.ErrInternalError, "unsupported schema type %q", node.Type)
	}
	if len(node.Enum) > 0 {
		out.Format = "enum"
	}

	if len(node.Properties) > 0 {
		out.Properties = make(map[string]*genai.Schema, len(node.Properties))
		for name, prop := range node.Properties {
			child, err := toGenAISchema(prop, defs, depth+1)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", name, err)
			}
			out.Properties[name] = child
		}
	}
	if node.Items != nil {
		items, err := toGenAISchema(node.Items, defs, depth+1)
		if err != nil {
			return nil, err
		}
		out.Items = items
	}
	return out, nil
}
