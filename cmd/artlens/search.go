// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Artlens Contributors

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/artlens-dev/artlens/internal/retrieval"
	artlenserr "github.com/artlens-dev/artlens/pkg/errors"
)

func newSearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search the artwork index",
		Long:  "Search by text, by image, or by both. The mode is inferred from the inputs given; pass --mode to force one.",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSearch,
	}

	cmd.Flags().String("image", "", "path to a query image")
	cmd.Flags().String("mode", "", "query mode: text, image, or hybrid (default inferred)")
	cmd.Flags().Float64("weight", -1, "text branch weight for hybrid mode, 0..1")
	cmd.Flags().Int("limit", 0, "maximum results (default from config)")

	return cmd
}

func runSearch(cmd *cobra.Command, args []string) error {
	var text string
	if len(args) > 0 {
		text = args[0]
	}
	imagePath, _ := cmd.Flags().GetString("image")
	modeFlag, _ := cmd.Flags().GetString("mode")
	weight, _ := cmd.Flags().GetFloat64("weight")
	limit, _ := cmd.Flags().GetInt("limit")

	q := retrieval.Query{Text: text}

	if imagePath != "" {
		data, err := os.ReadFile(imagePath)
		if err != nil {
			return artlenserr.Errorf(artlenserr.CodeCLIInputInvalid, "reading query image: %w", err)
		}
		q.Image = data
	}

	mode, err := resolveMode(modeFlag, text, q.Image)
	if err != nil {
		return err
	}
	q.Mode = mode

	if weight >= 0 {
		q.Weight = &weight
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if limit < 1 {
		limit = cfg.Retrieval.DefaultResultCount
	}

	app, err := WireApp(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = app.Close() }()

	result, err := app.Engine.Retrieve(cmd.Context(), q, limit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if result.Warning != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", result.Warning)
	}
	if len(result.Results) == 0 {
		_, err := fmt.Fprintln(out, "No results.")
		return err
	}

	for i, r := range result.Results {
		if _, err := fmt.Fprintf(out, "%2d. %-10s %6.4f  %s\n", i+1, r.ID, r.Score, describeResult(r)); err != nil {
			return err
		}
	}
	return nil
}

// resolveMode infers the query mode from the inputs unless a --mode flag
// forces one.
func resolveMode(flag, text string, image []byte) (retrieval.Mode, error) {
	if flag != "" {
		mode := retrieval.Mode(strings.ToLower(flag))
		if !mode.Valid() {
			return "", artlenserr.Errorf(artlenserr.CodeCLIInputInvalid,
				"unknown mode %q: expected text, image, or hybrid", flag)
		}
		return mode, nil
	}

	hasText := strings.TrimSpace(text) != ""
	hasImage := len(image) > 0
	switch {
	case hasText && hasImage:
		return retrieval.ModeHybrid, nil
	case hasImage:
		return retrieval.ModeImage, nil
	case hasText:
		return retrieval.ModeText, nil
	default:
		return "", artlenserr.New(artlenserr.CodeCLIInputInvalid,
			"nothing to search for: give a text query, an --image, or both")
	}
}

func describeResult(r retrieval.RankedResult) string {
	title, _ := r.Metadata["title"].(string)
	artist, _ := r.Metadata["artist_title"].(string)
	switch {
	case title != "" && artist != "":
		return fmt.Sprintf("%s (%s)", title, artist)
	case title != "":
		return title
	default:
		return "(untitled)"
	}
}
