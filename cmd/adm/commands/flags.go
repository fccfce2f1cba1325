// Package commands provides CLI commands for the admin tool
package commands

import (
	"lessonapp/internal/models"

	"github.com/spf13/cobra"
)

// requestFlags mirrors the form fields on the command line
type requestFlags struct {
	topic      string
	stage      string
	grade      string
	subject    string
	strategies []string
	elements   []string
}

func (f *requestFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.topic, "topic", "t", "", "Lesson topic (required)")
	cmd.Flags().StringVar(&f.stage, "stage", "", "Stage code: primary, preparatory or secondary")
	cmd.Flags().StringVar(&f.grade, "grade", "", "Grade level label, as listed by 'curriculum'")
	cmd.Flags().StringVar(&f.subject, "subject", "", "Subject label")
	cmd.Flags().StringArrayVar(&f.strategies, "strategy", nil, "Active-learning strategy (repeatable)")
	cmd.Flags().StringArrayVar(&f.elements, "element", nil, "Content element to cover (repeatable)")
	_ = cmd.MarkFlagRequired("topic")
}

func (f *requestFlags) request() *models.LessonPlanRequest {
	req := &models.LessonPlanRequest{
		Topic:      f.topic,
		Stage:      f.stage,
		GradeLevel: f.grade,
		Subject:    f.subject,
		Strategies: append([]string(nil), f.strategies...),
	}
	for _, e := range f.elements {
		req.AddContentElement(e)
	}
	return req
}
