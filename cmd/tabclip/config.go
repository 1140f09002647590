package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/tabclip/internal/command"
	"go.klb.dev/tabclip/internal/logging"
)

// bindViper wires a command's flags into a viper instance with the standard
// config file search order and TABCLIP_* env var prefix.
//
// Precedence (lowest → highest): defaults → config file → TABCLIP_* env vars → flags
func bindViper(cmd *cobra.Command, v *viper.Viper) error {
	configFlag, _ := cmd.Flags().GetString("config")
	if configFlag != "" {
		v.SetConfigFile(configFlag)
	} else {
		v.SetConfigName("tabclip")
		v.SetConfigType("toml")
		v.AddConfigPath("/etc/tabclip/")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(fmt.Sprintf("%s/.config/tabclip", home))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("config: %w", err)
		}
	}

	v.SetEnvPrefix("TABCLIP")
	v.AutomaticEnv()

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("binding flags: %w", err)
	}
	return nil
}

// addLoggingFlags adds the standard logging flags to a command.
func addLoggingFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("no-background", false, "run interactively: tinter logs + debug level")
	cmd.Flags().String("log-format", "auto", "log format: auto|text|json")
	cmd.Flags().String("log-level", "", "log level: debug|info|warn|error (default: info for service, debug for interactive)")
}

// addConfigFlag adds the --config flag to a command.
func addConfigFlag(cmd *cobra.Command) {
	cmd.Flags().String("config", "", "path to config file (overrides auto-discovery)")
}

// addFormatFlags adds the formatting-preference flags shared by serve and copy.
// The viper instance doubles as the default-preferences store for fields a
// command leaves unset.
func addFormatFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("format", "title-url", "payload shape: title-url|title|url|markdown|custom")
	f.String("template", "", "custom format template (${title} ${url} ${enter} ${tab} ${selection})")
	f.String("newline", "lf", "newline mode: lf|crlf|cr")
	f.String("separator", "", "separator between title and url (default: the newline sequence)")
}

// formatDefaults reads the preference store into command defaults.
func formatDefaults(v *viper.Viper) command.Defaults {
	return command.Defaults{
		Format:    command.ParseFormat(v.GetString("format")),
		Template:  v.GetString("template"),
		Newline:   command.ParseNewline(v.GetString("newline")),
		Separator: v.GetString("separator"),
	}
}

// setupLogging reads logging flags from viper and configures slog.
func setupLogging(v *viper.Viper) {
	interactive := v.GetBool("no-background") || logging.IsTTY(os.Stderr)
	resolveLogging(interactive, v.GetString("log-format"), v.GetString("log-level"))
}
