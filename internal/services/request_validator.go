package services

import (
	"errors"
	"strings"

	"lessonapp/internal/config"
	"lessonapp/internal/models"
	contextutils "lessonapp/internal/utils"

	"github.com/go-playground/validator/v10"
)

// RequestValidator normalizes and checks a lesson plan request against the curriculum taxonomy
type RequestValidator struct {
	curriculum config.CurriculumConfig
}

// NewRequestValidator creates a validator bound to the configured curriculum
func NewRequestValidator(curriculum config.CurriculumConfig) *RequestValidator {
	return &RequestValidator{curriculum: curriculum}
}

// Validate normalizes req in place and reports the first problem found.
// A grade without a stage fills in the stage it belongs to.
func (v *RequestValidator) Validate(req *models.LessonPlanRequest) error {
	if req == nil {
		return contextutils.WrapError(contextutils.ErrInvalidInput, "request is required")
	}
	req.Normalize()

	if req.Topic == "" {
		return contextutils.WrapError(contextutils.ErrMissingRequired, "topic is required")
	}
	if err := contextutils.Validator().Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fe.Field()+" ("+fe.Tag()+")")
			}
			return contextutils.WrapErrorf(contextutils.ErrValidationFailed, "invalid fields: %s", strings.Join(fields, ", "))
		}
		return contextutils.WrapError(contextutils.ErrValidationFailed, err.Error())
	}

	if req.GradeLevel != "" {
		stage, ok := v.curriculum.StageOfGrade(req.GradeLevel)
		if !ok {
			return contextutils.WrapErrorf(contextutils.ErrInvalidInput, "unknown grade level %q", req.GradeLevel)
		}
		if req.Stage != "" && req.Stage != stage.Code {
			return contextutils.WrapErrorf(contextutils.ErrInvalidInput, "grade level %q does not belong to stage %q", req.GradeLevel, req.Stage)
		}
		req.Stage = stage.Code
	} else if req.Stage != "" {
		if _, ok := v.curriculum.Stage(req.Stage); !ok {
			return contextutils.WrapErrorf(contextutils.ErrInvalidInput, "unknown stage %q", req.Stage)
		}
	}

	if req.Subject != "" && !v.curriculum.HasSubject(req.Subject) {
		return contextutils.WrapErrorf(contextutils.ErrInvalidInput, "unknown subject %q", req.Subject)
	}
	for _, s := range req.Strategies {
		if !v.curriculum.HasStrategy(s) {
			return contextutils.WrapErrorf(contextutils.ErrInvalidInput, "unknown strategy %q", s)
		}
	}
	return nil
}
