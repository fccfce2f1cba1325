package commands

import (
	"fmt"
	"strings"

	"lessonapp/internal/config"
	contextutils "lessonapp/internal/utils"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// ConfigCommands returns the configuration inspection commands
func ConfigCommands(cfg *config.Config) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration commands",
		Long: `Configuration commands for the lesson planner.

Available commands:
  check     - Validate the configuration and the AI credential
  show      - Print the effective configuration with secrets masked`,
	}

	configCmd.AddCommand(configCheckCmd(cfg))
	configCmd.AddCommand(configShowCmd(cfg))

	return configCmd
}

func configCheckCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate the configuration and the AI credential",
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			if err := cfg.Validate(); err != nil {
				return err
			}
			fmt.Fprintf(out, "provider: %s\n", cfg.AI.Provider)
			fmt.Fprintf(out, "endpoint: %s\n", orDefault(cfg.EndpointURL(), "(provider default)"))
			fmt.Fprintf(out, "models:   %s\n", strings.Join(cfg.CandidateModels(), ", "))

			if err := cfg.ValidateCredential(); err != nil {
				fmt.Fprintf(out, "credential: %s\n", contextutils.GetLocalizedMessageWithDetails(
					contextutils.GetErrorCode(err), contextutils.LocaleEnglish, err.Error()))
				return err
			}
			fmt.Fprintln(out, "credential: ok")
			return nil
		},
	}
}

func configShowCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration with secrets masked",
		RunE: func(cmd *cobra.Command, _ []string) error {
			masked := *cfg
			masked.AI.APIKey = maskSecret(cfg.AI.APIKey)
			masked.Server.SessionSecret = maskSecret(cfg.Server.SessionSecret)

			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(&masked); err != nil {
				return contextutils.WrapError(err, "failed to encode configuration")
			}
			return enc.Close()
		},
	}
}

func maskSecret(s string) string {
	if len(s) <= 4 {
		return strings.Repeat("*", len(s))
	}
	return s[:2] + strings.Repeat("*", len(s)-4) + s[len(s)-2:]
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
