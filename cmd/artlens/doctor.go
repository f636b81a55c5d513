// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Artlens Contributors

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sys/unix"

	"github.com/artlens-dev/artlens/internal/config"
	"github.com/artlens-dev/artlens/internal/ingest"
)

func newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Run diagnostics",
		Long:  "Check configuration, embedder setup, the index database, the build manifest, and disk space.",
		RunE:  runDoctor,
	}
}

func runDoctor(cmd *cobra.Command, _ []string) error {
	w := cmd.OutOrStdout()

	cfg, cfgErr := loadConfig()
	dataDir := doctorDataDir(cfg)

	checks := []struct {
		name string
		fn   func() string
	}{
		{"Binary", checkBinary},
		{"Platform", checkPlatform},
		{"Config", func() string { return checkConfig(cfgErr) }},
		{"Embedders", func() string { return checkEmbedders(cfg) }},
		{"Index", func() string { return checkIndex(cfg, dataDir) }},
		{"Manifest", func() string { return checkManifest(dataDir) }},
		{"Disk Space", func() string { return checkDiskSpace(dataDir) }},
	}

	for _, c := range checks {
		if _, err := fmt.Fprintf(w, "%-20s %s\n", c.name+":", c.fn()); err != nil {
			return err
		}
	}

	return nil
}

// doctorDataDir resolves the data dir even when config loading failed, so
// the remaining checks still run.
func doctorDataDir(cfg *config.Config) string {
	if cfg != nil && cfg.DataDir != "" {
		return cfg.DataDir
	}
	if dir, err := config.DefaultDataDir(); err == nil {
		return dir
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".artlens")
}

func checkBinary() string {
	return fmt.Sprintf("artlens %s (%s/%s)", version, runtime.GOOS, runtime.GOARCH)
}

func checkPlatform() string {
	return fmt.Sprintf("%s/%s, Go %s", runtime.GOOS, runtime.GOARCH, runtime.Version())
}

func checkConfig(cfgErr error) string {
	if cfgErr != nil {
		return fmt.Sprintf("invalid: %s", cfgErr)
	}
	if cfgFile := viper.ConfigFileUsed(); cfgFile != "" {
		return fmt.Sprintf("loaded from %s", cfgFile)
	}
	return "using defaults (no config file found)"
}

func checkEmbedders(cfg *config.Config) string {
	if cfg == nil {
		return "skipped (config invalid)"
	}
	reg, err := buildEmbedders(cfg)
	if err != nil {
		return fmt.Sprintf("error: %s", err)
	}

	parts := make([]string, 0, len(reg.Modalities()))
	for _, m := range reg.Modalities() {
		e, err := reg.ForModality(m)
		if err != nil {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s=%s/%s (%dd)", m, e.Provider(), e.Model(), e.Dimensions()))
	}
	if len(parts) == 0 {
		return "none configured"
	}
	return strings.Join(parts, ", ")
}

func checkIndex(cfg *config.Config, dataDir string) string {
	if cfg == nil {
		return "skipped (config invalid)"
	}
	st, err := openStore(cfg, dataDir)
	if err != nil {
		return fmt.Sprintf("error: %s", err)
	}
	defer func() { _ = st.Close() }()

	infos, err := st.Collections(context.Background())
	if err != nil {
		return fmt.Sprintf("error reading collections: %s", err)
	}
	if len(infos) == 0 {
		return "empty (run 'artlens index')"
	}

	parts := make([]string, len(infos))
	for i, info := range infos {
		parts[i] = fmt.Sprintf("%s: %d records", info.Name, info.Count)
	}
	return strings.Join(parts, ", ")
}

func checkManifest(dataDir string) string {
	path := filepath.Join(dataDir, manifestName)
	m, err := ingest.ReadManifest(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Sprintf("not found at %s (run 'artlens index')", path)
		}
		return fmt.Sprintf("error: %s", err)
	}

	total := 0
	for _, c := range m.Collections {
		total += c.Count
	}
	return fmt.Sprintf("built %s, %d collections, %d records", m.BuiltAt.Format("2006-01-02 15:04"), len(m.Collections), total)
}

func checkDiskSpace(dataDir string) string {
	path := dataDir
	if _, err := os.Stat(path); os.IsNotExist(err) {
		// Fall back to home directory if data dir doesn't exist yet.
		path, _ = os.UserHomeDir()
	}

	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return fmt.Sprintf("unable to check: %s", err)
	}

	availBytes := stat.Bavail * uint64(stat.Bsize)
	return formatBytes(availBytes) + " available"
}

// formatBytes formats a byte count as a human-readable string.
func formatBytes(b uint64) string {
	const (
		gb = 1024 * 1024 * 1024
		mb = 1024 * 1024
	)
	switch {
	case b >= gb:
		return fmt.Sprintf("%.1f GB", float64(b)/float64(gb))
	case b >= mb:
		return fmt.Sprintf("%.1f MB", float64(b)/float64(mb))
	default:
		return fmt.Sprintf("%d bytes", b)
	}
}
