// Package main provides the entry point for the lesson planner admin CLI.
package main

import (
	"context"
	"fmt"
	"os"

	"lessonapp/cmd/adm/commands"
	"lessonapp/internal/config"
	"lessonapp/internal/handlers"
	"lessonapp/internal/observability"
	"lessonapp/internal/services"
	"lessonapp/internal/version"

	"github.com/spf13/cobra"
)

func main() {
	ctx := context.Background()

	cfg, err := config.NewConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// The admin tool logs errors only and never exports telemetry
	cfg.Server.LogLevel = "error"
	cfg.OpenTelemetry.EnableTracing = false
	cfg.OpenTelemetry.EnableMetrics = false
	cfg.OpenTelemetry.EnableLogging = false

	_, _, logger, err := observability.SetupObservability(&cfg.OpenTelemetry, "lesson-planner-adm", cfg.Server.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize observability: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	service, err := services.NewLessonPlanServiceFromConfig(ctx, cfg, nil, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize lesson plan service: %v\n", err)
		os.Exit(1)
	}
	renderer, err := handlers.NewRenderer()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load page templates: %v\n", err)
		os.Exit(1)
	}

	rootCmd := &cobra.Command{
		Use:   "adm",
		Short: "Lesson planner administration tool",
		Long: `Lesson planner administration tool

Checks the configuration, previews prompts and generates lesson plans
from the command line with the same pipeline the web server uses.`,
		SilenceUsage: true,
		Version:      version.Get("lesson-planner-adm").String(),
		Run: func(cmd *cobra.Command, _ []string) {
			if err := cmd.Help(); err != nil {
				fmt.Printf("Error showing help: %v\n", err)
			}
		},
	}

	rootCmd.AddCommand(commands.ConfigCommands(cfg))
	rootCmd.AddCommand(commands.LessonPlanCommands(service,
		[]services.Exporter{services.JSONExporter{}, handlers.NewPrintExporter(renderer)}, logger)...)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
