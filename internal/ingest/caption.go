// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Artlens Contributors

package ingest

import (
	"sort"
	"strings"

	"github.com/artlens-dev/artlens/internal/store"
)

// BuildCaption builds the caption-like text representation of an artwork
// that gets embedded into the text collection: title, a descriptive line
// (medium, artist, date), and a sorted tag line from the subject,
// classification, term and material vocabularies.
func BuildCaption(a Artwork) string {
	var bits []string

	if a.Title != "" {
		bits = append(bits, a.Title)
	}

	var desc []string
	if a.MediumDisplay != "" {
		desc = append(desc, a.MediumDisplay)
	}
	if a.ArtistTitle != "" {
		desc = append(desc, "by "+a.ArtistTitle)
	}
	if a.DateDisplay != "" {
		desc = append(desc, "from "+a.DateDisplay)
	}
	if len(desc) > 0 {
		bits = append(bits, strings.Join(desc, " "))
	}

	tags := map[string]bool{}
	for _, list := range [][]string{a.SubjectTitles, a.ClassificationTitles, a.TermTitles, a.MaterialTitles} {
		for _, t := range list {
			if t != "" {
				tags[t] = true
			}
		}
	}
	if len(tags) > 0 {
		sorted := make([]string, 0, len(tags))
		for t := range tags {
			sorted = append(sorted, t)
		}
		sort.Strings(sorted)
		bits = append(bits, "Tags: "+strings.Join(sorted, ", "))
	}

	text := strings.TrimSpace(strings.Join(bits, "\n"))
	if text == "" {
		text = "Artwork " + a.IDString()
	}
	return text
}

// DisplayMetadata builds the opaque metadata carried through the index for
// presentation: title, attribution and the IIIF image reference.
func DisplayMetadata(a Artwork) store.Metadata {
	return store.Metadata{
		"title":        a.Title,
		"artist_title": a.ArtistTitle,
		"date_display": a.DateDisplay,
		"image_id":     a.ImageID,
	}
}
