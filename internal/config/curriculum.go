package config

import (
	"strings"

	contextutils "lessonapp/internal/utils"
)

// Stage codes
const (
	StagePrimary     = "primary"
	StagePreparatory = "preparatory"
	StageSecondary   = "secondary"
)

// StageConfig is one school stage and its grades, in display order
type StageConfig struct {
	Code   string   `json:"code" yaml:"code" validate:"required"`
	Label  string   `json:"label" yaml:"label" validate:"required"`
	Grades []string `json:"grades" yaml:"grades" validate:"min=1,dive,required"`
}

// CurriculumConfig is the taxonomy behind the form's dropdowns
type CurriculumConfig struct {
	Stages     []StageConfig `json:"stages" yaml:"stages" validate:"dive"`
	Subjects   []string      `json:"subjects" yaml:"subjects" validate:"dive,required"`
	Strategies []string      `json:"strategies" yaml:"strategies" validate:"dive,required"`
}

func (c *CurriculumConfig) applyDefaults() {
	def := DefaultCurriculum()
	if len(c.Stages) == 0 {
		c.Stages = def.Stages
	}
	if len(c.Subjects) == 0 {
		c.Subjects = def.Subjects
	}
	if len(c.Strategies) == 0 {
		c.Strategies = def.Strategies
	}
}

// Validate rejects duplicate stage codes and grades claimed by two stages.
func (c *CurriculumConfig) Validate() error {
	seenStage := map[string]bool{}
	seenGrade := map[string]string{}
	for _, s := range c.Stages {
		if seenStage[s.Code] {
			return contextutils.WrapErrorf(contextutils.ErrConfiguration, "duplicate stage code %q", s.Code)
		}
		seenStage[s.Code] = true
		for _, g := range s.Grades {
			if other, ok := seenGrade[g]; ok {
				return contextutils.WrapErrorf(contextutils.ErrConfiguration, "grade %q listed under both %q and %q", g, other, s.Code)
			}
			seenGrade[g] = s.Code
		}
	}
	return nil
}

// Stage returns the stage with the given code.
func (c *CurriculumConfig) Stage(code string) (StageConfig, bool) {
	for _, s := range c.Stages {
		if s.Code == code {
			return s, true
		}
	}
	return StageConfig{}, false
}

// StageOfGrade returns the stage a grade label belongs to.
func (c *CurriculumConfig) StageOfGrade(grade string) (StageConfig, bool) {
	grade = strings.TrimSpace(grade)
	for _, s := range c.Stages {
		for _, g := range s.Grades {
			if g == grade {
				return s, true
			}
		}
	}
	return StageConfig{}, false
}

// HasSubject reports whether subject is a configured subject label.
func (c *CurriculumConfig) HasSubject(subject string) bool {
	return contains(c.Subjects, subject)
}

// HasStrategy reports whether strategy is a configured strategy label.
func (c *CurriculumConfig) HasStrategy(strategy string) bool {
	return contains(c.Strategies, strategy)
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

// DefaultCurriculum returns the Egyptian social-studies taxonomy.
func DefaultCurriculum() CurriculumConfig {
	return CurriculumConfig{
		Stages: []StageConfig{
			{
				Code:  StagePrimary,
				Label: "المرحلة الابتدائية",
				Grades: []string{
					"الصف الأول الابتدائي",
					"الصف الثاني الابتدائي",
					"الصف الثالث الابتدائي",
					"الصف الرابع الابتدائي",
					"الصف الخامس الابتدائي",
					"الصف السادس الابتدائي",
				},
			},
			{
				Code:  StagePreparatory,
				Label: "المرحلة الإعدادية",
				Grades: []string{
					"الصف الأول الإعدادي",
					"الصف الثاني الإعدادي",
					"الصف الثالث الإعدادي",
				},
			},
			{
				Code:  StageSecondary,
				Label: "المرحلة الثانوية",
				Grades: []string{
					"الصف الأول الثانوي",
					"الصف الثاني الثانوي",
					"الصف الثالث الثانوي",
				},
			},
		},
		Subjects: []string{
			"الجغرافيا",
			"الدراسات الاجتماعية",
			"التاريخ",
		},
		Strategies: []string{
			"العصف الذهني (Brainstorming)",
			"التعلم التعاوني (Cooperative Learning)",
			"الحوار والمناقشة (Dialogue and Discussion)",
			"عباءة الخبير (Mantle of the Expert)",
			"قبعات التفكير الست (Six Thinking Hats)",
			"التعلم المعكوس (Flipped Classroom)",
			"الرحلات المعرفية عبر الويب (WebQuests)",
			"إستراتيجية عظمة السمكة (Fishbone Strategy)",
			"جدول التعلم (K.W.L)",
			"فكر - زاوج - شارك (Think-Pair-Share)",
			"لعب الأدوار (Role Playing)",
			"حل المشكلات (Problem Solving)",
			"الاستقصاء والاكتشاف (Inquiry Based)",
			"استراتيجية (Jigsaw)",
			"الرؤوس المرقمة (Numbered Heads)",
			"الخرائط الذهنية (Mind Maps)",
			"الخرائط المفاهيمية (Concept Maps)",
			"التعلم باللعب / التلعيب (Gamification)",
			"تعلم الأقران (Peer Teaching)",
			"التفكير الناقد (Critical Thinking)",
			"مسرحة المناهج (Dramatization)",
		},
	}
}
