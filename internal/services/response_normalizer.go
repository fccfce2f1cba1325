package services

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"lessonapp/internal/models"
	"lessonapp/internal/observability"
	contextutils "lessonapp/internal/utils"

	"github.com/xeipuuv/gojsonschema"
	"go.opentelemetry.io/otel/attribute"
)

// maxSchemaViolations caps how many schema diagnostics are kept in a report
const maxSchemaViolations = 20

// lessonPlanKeys are the top-level keys that identify a lesson plan object, legacy aliases included
var lessonPlanKeys = []string{
	"title", "gradeLevel", "estimatedTime", "objectives", "hook", "contentElements", "sequence",
	"activities", "differentiation", "resources", "additionalResources", "evaluation", "assessment",
}

// codeFenceMarker matches a fence and an optional language tag such as json
var codeFenceMarker = regexp.MustCompile("```[A-Za-z0-9_+-]*")

// ResponseNormalizer turns raw model text into a fully populated LessonPlanDocument. It never fails.
type ResponseNormalizer struct {
	schema *gojsonschema.Schema
	logger *observability.Logger
}

// NewResponseNormalizer compiles the embedded lesson plan schema used for diagnostics
func NewResponseNormalizer(logger *observability.Logger) (*ResponseNormalizer, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(lessonPlanSchemaJSON))
	if err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to compile lesson plan schema: %v", err)
	}
	return &ResponseNormalizer{schema: schema, logger: logger}, nil
}

// Normalize parses raw, repairing it when truncated, and fills every missing or mistyped field
// with its placeholder. Total parse failure yields DefaultLessonPlanDocument.
func (n *ResponseNormalizer) Normalize(ctx context.Context, raw string) (doc models.LessonPlanDocument, report models.NormalizationReport) {
	ctx, span := observability.TraceLessonFunction(ctx, "normalize",
		attribute.Int("response.length", len(raw)),
	)
	defer func() {
		if r := recover(); r != nil {
			n.logger.Error(ctx, "Normalizer panicked, using default document", contextutils.WrapErrorf(contextutils.ErrMalformedResponse, "panic: %v", r))
			doc = models.DefaultLessonPlanDocument()
			report = models.NormalizationReport{Stage: models.ParseFailed, Defaulted: []string{}, SchemaViolations: []string{}}
		}
		span.SetAttributes(
			attribute.String("normalize.stage", string(report.Stage)),
			attribute.Int("normalize.defaulted", len(report.Defaulted)),
			attribute.Int("normalize.schema_violations", len(report.SchemaViolations)),
		)
		span.End()
	}()

	report = models.NormalizationReport{Stage: models.ParseDirect, Defaulted: []string{}, SchemaViolations: []string{}}

	cleaned := stripCodeFences(raw)
	payload, ok := parseObject(sliceOuterBraces(cleaned))
	if !ok {
		payload, ok = repairTruncatedJSON(cleaned)
		report.Stage = models.ParseRepaired
	}
	if !ok {
		report.Stage = models.ParseFailed
		n.logger.Warn(ctx, "Response could not be parsed, using default document", map[string]interface{}{
			"error_code":      string(contextutils.ErrorCodeMalformedResponse),
			"response_length": len(raw),
			"response_head":   truncateForLog(raw),
		})
		return models.DefaultLessonPlanDocument(), report
	}

	payload = unwrapLessonPlan(payload)
	report.SchemaViolations = n.diagnose(payload)

	b := &documentBuilder{defaults: models.DefaultLessonPlanDocument(), defaulted: []string{}}
	doc = b.build(payload)
	report.Defaulted = b.defaulted

	if report.Degraded() || len(report.SchemaViolations) > 0 {
		n.logger.Warn(ctx, "Response normalized with repairs", map[string]interface{}{
			"error_code":        string(contextutils.ErrorCodeMalformedResponse),
			"stage":             string(report.Stage),
			"defaulted":         report.Defaulted,
			"schema_violations": report.SchemaViolations,
		})
	}
	return doc, report
}

func (n *ResponseNormalizer) diagnose(payload map[string]interface{}) []string {
	violations := []string{}
	result, err := n.schema.Validate(gojsonschema.NewGoLoader(payload))
	if err != nil {
		return append(violations, err.Error())
	}
	for _, e := range result.Errors() {
		if len(violations) == maxSchemaViolations {
			break
		}
		violations = append(violations, e.String())
	}
	return violations
}

// stripCodeFences removes markdown fence markers and their language tags, keeping any text
// that shares a line with a marker
func stripCodeFences(s string) string {
	return strings.TrimSpace(codeFenceMarker.ReplaceAllString(s, ""))
}

// sliceOuterBraces keeps the text from the first '{' to the last '}' when both exist
func sliceOuterBraces(s string) string {
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end < start {
		return s
	}
	return s[start : end+1]
}

// unwrapLessonPlan accepts {"LessonPlan": {...}} style envelopes
func unwrapLessonPlan(payload map[string]interface{}) map[string]interface{} {
	for _, key := range lessonPlanKeys {
		if _, ok := payload[key]; ok {
			return payload
		}
	}
	if len(payload) == 1 {
		for _, v := range payload {
			if inner, ok := v.(map[string]interface{}); ok {
				return inner
			}
		}
	}
	return payload
}

// documentBuilder copies a decoded payload into a document field by field, falling back to
// the placeholder document and remembering every path it had to default
type documentBuilder struct {
	defaults  models.LessonPlanDocument
	defaulted []string
}

func (b *documentBuilder) markDefault(path string) {
	b.defaulted = append(b.defaulted, path)
}

func (b *documentBuilder) build(m map[string]interface{}) models.LessonPlanDocument {
	d := b.defaults
	doc := models.LessonPlanDocument{
		Title:         b.str(m, "title", d.Title),
		GradeLevel:    b.str(m, "gradeLevel", d.GradeLevel),
		EstimatedTime: b.str(m, "estimatedTime", d.EstimatedTime),
		Hook:          b.str(m, "hook", d.Hook),
	}

	doc.Objectives = stringList(m["objectives"])
	if len(doc.Objectives) == 0 {
		doc.Objectives = d.Objectives
		b.markDefault("objectives")
	}

	rawElements := firstPresent(m, "contentElements", "sequence")
	doc.ContentElements = b.contentElements(rawElements)
	if items, ok := rawElements.([]interface{}); ok && len(items) == 0 {
		// an explicit empty list is a valid lesson with no sections
		doc.ContentElements = []models.ContentElement{}
	} else if len(doc.ContentElements) == 0 {
		doc.ContentElements = d.ContentElements
		b.markDefault("contentElements")
	}

	activities := b.object(m, "activities")
	doc.Activities = models.Activities{
		Individual: b.str(activities, "activities.individual", d.Activities.Individual),
		Group:      b.str(activities, "activities.group", d.Activities.Group),
	}

	diff := b.object(m, "differentiation")
	doc.Differentiation = models.Differentiation{
		Gifted:               b.str(diff, "differentiation.gifted", d.Differentiation.Gifted),
		LearningDifficulties: b.strAlias(diff, "differentiation.learningDifficulties", d.Differentiation.LearningDifficulties, "support"),
	}

	doc.Resources = b.resources(m, "resources")
	doc.AdditionalResources = b.resources(m, "additionalResources")

	eval := b.objectAlias(m, "evaluation", "assessment")
	doc.Evaluation = models.Evaluation{
		Formative: b.str(eval, "evaluation.formative", d.Evaluation.Formative),
		Authentic: b.str(eval, "evaluation.authentic", d.Evaluation.Authentic),
		Summative: b.str(eval, "evaluation.summative", d.Evaluation.Summative),
		Quiz:      models.Quiz{Questions: b.questions(eval)},
	}
	return doc
}

// str reads path's last segment from m as a string, defaulting when missing, empty or not a scalar
func (b *documentBuilder) str(m map[string]interface{}, path, placeholder string) string {
	key := path[strings.LastIndexByte(path, '.')+1:]
	if s, ok := scalarString(m[key]); ok && s != "" {
		return s
	}
	b.markDefault(path)
	return placeholder
}

func (b *documentBuilder) strAlias(m map[string]interface{}, path, placeholder string, aliases ...string) string {
	key := path[strings.LastIndexByte(path, '.')+1:]
	if s, ok := scalarString(firstPresent(m, append([]string{key}, aliases...)...)); ok && s != "" {
		return s
	}
	b.markDefault(path)
	return placeholder
}

func (b *documentBuilder) object(m map[string]interface{}, key string) map[string]interface{} {
	return b.objectAlias(m, key)
}

// objectAlias returns the nested object under key or an alias; a missing object yields an empty map
// so its fields are defaulted one by one
func (b *documentBuilder) objectAlias(m map[string]interface{}, key string, aliases ...string) map[string]interface{} {
	if obj, ok := firstPresent(m, append([]string{key}, aliases...)...).(map[string]interface{}); ok {
		return obj
	}
	return map[string]interface{}{}
}

func (b *documentBuilder) contentElements(v interface{}) []models.ContentElement {
	var items []interface{}
	switch t := v.(type) {
	case []interface{}:
		items = t
	case string:
		for _, line := range stringList(t) {
			items = append(items, line)
		}
	}

	out := make([]models.ContentElement, 0, len(items))
	for i, item := range items {
		switch t := item.(type) {
		case map[string]interface{}:
			title, _ := scalarString(firstPresent(t, "title", "heading", "name"))
			details, _ := scalarString(firstPresent(t, "details", "content", "description"))
			if title == "" && details == "" {
				b.markDefault(fmt.Sprintf("contentElements[%d]", i))
				continue
			}
			if title == "" {
				title = b.defaults.ContentElements[0].Title
				b.markDefault(fmt.Sprintf("contentElements[%d].title", i))
			}
			if details == "" {
				details = models.PlaceholderContentDetails
				b.markDefault(fmt.Sprintf("contentElements[%d].details", i))
			}
			out = append(out, models.ContentElement{Title: title, Details: details})
		default:
			if s, ok := scalarString(t); ok && s != "" {
				out = append(out, models.ContentElement{Title: s, Details: models.PlaceholderContentDetails})
				continue
			}
			b.markDefault(fmt.Sprintf("contentElements[%d]", i))
		}
	}
	return out
}

func (b *documentBuilder) resources(m map[string]interface{}, key string) []models.ResourceItem {
	out := []models.ResourceItem{}
	raw, present := m[key]
	if !present {
		b.markDefault(key)
		return out
	}
	items, ok := raw.([]interface{})
	if !ok {
		b.markDefault(key)
		return out
	}

	for i, item := range items {
		path := fmt.Sprintf("%s[%d]", key, i)
		switch t := item.(type) {
		case map[string]interface{}:
			res := models.ResourceItem{
				Name:        b.str(t, path+".name", models.PlaceholderResourceName),
				Description: b.str(t, path+".description", models.PlaceholderResourceDescription),
				Category:    b.str(t, path+".category", models.PlaceholderResourceCategory),
			}
			if u, _ := scalarString(firstPresent(t, "url", "link")); contextutils.IsValidHTTPURL(u) {
				res.URL = u
			}
			out = append(out, res)
		case string:
			s := strings.TrimSpace(t)
			if s == "" {
				b.markDefault(path)
				continue
			}
			res := models.ResourceItem{
				Name:        s,
				Description: models.PlaceholderResourceDescription,
				Category:    models.PlaceholderResourceCategory,
			}
			if contextutils.IsValidHTTPURL(s) {
				res.URL = s
			}
			out = append(out, res)
		default:
			b.markDefault(path)
		}
	}
	return out
}

func (b *documentBuilder) questions(eval map[string]interface{}) []models.QuizQuestion {
	var items []interface{}
	switch quiz := eval["quiz"].(type) {
	case map[string]interface{}:
		items, _ = quiz["questions"].([]interface{})
	case []interface{}:
		items = quiz
	}

	out := []models.QuizQuestion{}
	if items == nil {
		b.markDefault("evaluation.quiz.questions")
		return out
	}
	for i, item := range items {
		path := fmt.Sprintf("evaluation.quiz.questions[%d]", i)
		q, ok := item.(map[string]interface{})
		if !ok {
			b.markDefault(path)
			continue
		}
		text, _ := scalarString(firstPresent(q, "text", "question"))
		if text == "" {
			b.markDefault(path)
			continue
		}
		answer, _ := scalarString(firstPresent(q, "answer", "correctAnswer"))
		if answer == "" {
			answer = models.PlaceholderQuestionAnswer
			b.markDefault(path + ".answer")
		}
		options := stringList(q["options"])
		kind, _ := scalarString(q["type"])
		kind = questionType(kind, options, answer)
		if kind != models.QuestionMultipleChoice {
			options = nil
		}
		out = append(out, models.QuizQuestion{Text: text, Type: kind, Options: options, Answer: answer})
	}
	return out
}

// questionType keeps a known kind and otherwise infers one. Multiple choice without options
// cannot be rendered as such and becomes a completion question.
func questionType(kind string, options []string, answer string) string {
	kind = strings.ToLower(strings.TrimSpace(kind))
	kind = strings.NewReplacer("-", "_", " ", "_").Replace(kind)
	switch kind {
	case models.QuestionMultipleChoice:
		if len(options) > 0 {
			return kind
		}
		return models.QuestionComplete
	case models.QuestionTrueFalse, models.QuestionComplete:
		return kind
	}
	if len(options) > 0 {
		return models.QuestionMultipleChoice
	}
	if isTrueFalseAnswer(answer) {
		return models.QuestionTrueFalse
	}
	return models.QuestionComplete
}

func isTrueFalseAnswer(answer string) bool {
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "true", "false", "صح", "خطأ", "خطا", "صواب", "صحيح", "خاطئ":
		return true
	}
	return false
}

func firstPresent(m map[string]interface{}, keys ...string) interface{} {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

// scalarString renders strings, numbers and booleans as trimmed text
func scalarString(v interface{}) (string, bool) {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(t), true
	case json.Number:
		return t.String(), true
	}
	return "", false
}

// stringList accepts a list of scalars or a newline separated string
func stringList(v interface{}) []string {
	var out []string
	switch t := v.(type) {
	case []interface{}:
		for _, item := range t {
			if s, ok := scalarString(item); ok && s != "" {
				out = append(out, s)
			}
		}
	case string:
		for _, line := range strings.Split(t, "\n") {
			line = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "-•*"))
			if line != "" {
				out = append(out, line)
			}
		}
	}
	return out
}
