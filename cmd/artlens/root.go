// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Artlens Contributors

package main

import (
	"errors"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/artlens-dev/artlens/internal/config"
	"github.com/artlens-dev/artlens/internal/secrets"
	artlenserr "github.com/artlens-dev/artlens/pkg/errors"
)

// NewRootCmd creates the root artlens command with all subcommands registered.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "artlens",
		Short:         "Artlens — multi-modal artwork search",
		Long:          "Artlens indexes a museum catalog into per-modality vector collections and answers text, image, and hybrid queries over it.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := initViper(cmd); err != nil {
				return err
			}
			setupLogging(viper.GetBool("verbose"))
			return nil
		},
	}

	// Global flags — these map to viper keys via initViper.
	root.PersistentFlags().StringP("config", "c", "", "path to config file")
	root.PersistentFlags().String("data-dir", "", "path to data directory")
	root.PersistentFlags().BoolP("verbose", "v", false, "enable verbose output")

	// Register subcommands
	root.AddCommand(
		newSearchCmd(),
		newIndexCmd(),
		newServeCmd(),
		newDoctorCmd(),
		newSecretCmd(),
		newVersionCmd(),
	)

	return root
}

// initViper sets up the global Viper with defaults, env bindings, flag
// bindings, and optional config file so the standard precedence
// (flag > env > file > defaults) is handled uniformly.
func initViper(cmd *cobra.Command) error {
	v := viper.GetViper()

	config.SetDefaults(v)
	config.SetupEnv(v)

	if cfgFile, _ := cmd.Flags().GetString("config"); cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return artlenserr.Errorf(artlenserr.CodeConfigLoadReadFailure, "reading config file: %w", err)
		}
	} else {
		// Auto-discover artlens.yaml from standard locations.
		// Note: SetConfigType is intentionally omitted. When set, Viper
		// falls back to trying the bare config name without extension,
		// which collides with the ./artlens binary in the project root.
		v.SetConfigName("artlens")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/artlens")
		v.AddConfigPath("/etc/artlens")
		// No config file is fine — defaults and env vars still apply.
		// Parse or permission errors must surface.
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return artlenserr.Errorf(artlenserr.CodeConfigLoadReadFailure, "reading config: %w", err)
			}
			// No config found anywhere — bootstrap a default to ~/.config/artlens/.
			if path := config.BootstrapConfig(); path != "" {
				v.SetConfigFile(path)
				if err := v.ReadInConfig(); err != nil {
					return artlenserr.Errorf(artlenserr.CodeConfigLoadReadFailure, "reading bootstrapped config: %w", err)
				}
			}
		}
	}

	if cfgFile := v.ConfigFileUsed(); cfgFile != "" {
		config.WarnInsecurePermissions(cfgFile)
	}

	// Resolve keyring:// references up front so every consumer sees the
	// secret value. Values injected later (flags, env-only keys) are still
	// resolved per value at wiring time.
	secrets.ResolveViperSecrets(v, secretStoreFactory())

	// Bind persistent flags to viper keys.
	if err := v.BindPFlag("data_dir", cmd.Root().PersistentFlags().Lookup("data-dir")); err != nil {
		return artlenserr.Errorf(artlenserr.CodeCLISetupFailure, "binding data-dir flag: %w", err)
	}
	if err := v.BindPFlag("verbose", cmd.Root().PersistentFlags().Lookup("verbose")); err != nil {
		return artlenserr.Errorf(artlenserr.CodeCLISetupFailure, "binding verbose flag: %w", err)
	}

	return nil
}

// setupLogging installs the default slog handler. Logs go to stderr so
// command output on stdout stays parseable.
func setupLogging(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}
