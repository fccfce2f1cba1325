package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"lessonapp/internal/config"
	"lessonapp/internal/observability"
	"lessonapp/internal/services"
	contextutils "lessonapp/internal/utils"

	"github.com/spf13/cobra"
)

// cliSessionID keys the generation slot used by the admin tool
const cliSessionID = "adm"

// LessonPlanCommands returns the curriculum, prompt and generate commands.
// exporters are selected by file extension with --format.
func LessonPlanCommands(service services.LessonPlanServiceInterface, exporters []services.Exporter, logger *observability.Logger) []*cobra.Command {
	return []*cobra.Command{
		curriculumCmd(service),
		promptCmd(service),
		generateCmd(service, exporters, logger),
	}
}

func curriculumCmd(service services.LessonPlanServiceInterface) *cobra.Command {
	return &cobra.Command{
		Use:   "curriculum",
		Short: "List stages, grades, subjects and strategies accepted by the form",
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			c := service.Curriculum()
			fmt.Fprintln(out, "Stages:")
			for _, s := range c.Stages {
				fmt.Fprintf(out, "  %s  %s\n", s.Code, s.Label)
				for _, g := range s.Grades {
					fmt.Fprintf(out, "      %s\n", g)
				}
			}
			fmt.Fprintln(out, "Subjects:")
			for _, s := range c.Subjects {
				fmt.Fprintf(out, "  %s\n", s)
			}
			fmt.Fprintln(out, "Strategies:")
			for _, s := range c.Strategies {
				fmt.Fprintf(out, "  %s\n", s)
			}
		},
	}
}

func promptCmd(service services.LessonPlanServiceInterface) *cobra.Command {
	var flags requestFlags
	var withSchema bool

	cmd := &cobra.Command{
		Use:   "prompt",
		Short: "Render the prompt for a request without calling any model",
		RunE: func(cmd *cobra.Command, _ []string) error {
			bundle, err := service.PreviewPrompt(flags.request())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "# System instruction")
			fmt.Fprintln(out, bundle.SystemInstruction)
			fmt.Fprintln(out)
			fmt.Fprintln(out, "# Prompt")
			fmt.Fprintln(out, bundle.UserPrompt)
			if withSchema {
				fmt.Fprintln(out)
				fmt.Fprintln(out, "# Response schema")
				fmt.Fprintln(out, bundle.Schema)
			}
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVar(&withSchema, "schema", false, "Also print the response JSON Schema")
	return cmd
}

func generateCmd(service services.LessonPlanServiceInterface, exporters []services.Exporter, logger *observability.Logger) *cobra.Command {
	var flags requestFlags
	var format, outPath string

	byExt := make(map[string]services.Exporter, len(exporters))
	formats := make([]string, 0, len(exporters))
	for _, e := range exporters {
		byExt[e.FileExtension()] = e
		formats = append(formats, e.FileExtension())
	}
	sort.Strings(formats)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a lesson plan and write it to stdout or a file",
		Long: `Generate a lesson plan with the configured provider and model fallback.

The document is written in the chosen format. Degraded documents (repaired or
partially defaulted) are still written; a notice goes to stderr.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			exporter, ok := byExt[format]
			if !ok {
				return contextutils.WrapErrorf(contextutils.ErrInvalidInput, "unknown format %q (want one of %s)", format, strings.Join(formats, ", "))
			}
			if err := service.ConfigurationError(); err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), config.GenerationTimeout)
			defer cancel()

			result, err := service.Generate(ctx, cliSessionID, flags.request())
			if err != nil {
				logger.Error(ctx, "Lesson plan generation failed", err)
				return err
			}
			if result.Degraded {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s (%s)\n",
					contextutils.GetLocalizedMessage(contextutils.ErrorCodeMalformedResponse, contextutils.LocaleArabic),
					result.Report.Stage)
			}

			var w io.Writer = cmd.OutOrStdout()
			if outPath != "" {
				f, err := os.Create(outPath)
				if err != nil {
					return contextutils.WrapErrorf(err, "failed to create %s", outPath)
				}
				defer func() { _ = f.Close() }()
				w = f
			}
			return exporter.Export(ctx, result, w)
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVarP(&format, "format", "f", "json", "Output format: "+strings.Join(formats, ", "))
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Write to this file instead of stdout")
	return cmd
}
