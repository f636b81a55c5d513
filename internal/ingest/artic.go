// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Artlens Contributors

package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	artlenserr "github.com/artlens-dev/artlens/pkg/errors"
)

// artworkFields is the field selection requested from the catalog API.
// Everything needed for the caption, the display metadata, and the IIIF
// image lookup, nothing more.
const artworkFields = "id,title,artist_title,date_display,medium_display,image_id,is_public_domain,subject_titles,classification_titles,term_titles,material_titles"

// Artwork is one catalog record as returned by the Art Institute of
// Chicago API.
type Artwork struct {
	ID                   int      `json:"id"`
	Title                string   `json:"title"`
	ArtistTitle          string   `json:"artist_title"`
	DateDisplay          string   `json:"date_display"`
	MediumDisplay        string   `json:"medium_display"`
	ImageID              string   `json:"image_id"`
	IsPublicDomain       bool     `json:"is_public_domain"`
	SubjectTitles        []string `json:"subject_titles"`
	ClassificationTitles []string `json:"classification_titles"`
	TermTitles           []string `json:"term_titles"`
	MaterialTitles       []string `json:"material_titles"`
}

// Pagination mirrors the catalog API's paging envelope.
type Pagination struct {
	Total       int `json:"total"`
	Limit       int `json:"limit"`
	TotalPages  int `json:"total_pages"`
	CurrentPage int `json:"current_page"`
}

type artworksResponse struct {
	Pagination Pagination `json:"pagination"`
	Data       []Artwork  `json:"data"`
}

// CatalogClient fetches artwork records from the catalog API.
// Safe for concurrent use.
type CatalogClient struct {
	baseURL string
	client  *http.Client
}

// NewCatalogClient creates a client for the catalog API at baseURL.
func NewCatalogClient(baseURL string) *CatalogClient {
	return &CatalogClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// Artworks fetches one page of artwork records.
func (c *CatalogClient) Artworks(ctx context.Context, page, pageSize int) ([]Artwork, Pagination, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(pageSize))
	q.Set("fields", artworkFields)

	reqURL := c.baseURL + "/artworks?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, Pagination{}, artlenserr.Wrapf(err, artlenserr.CodeIngestCatalogFailure, "building catalog request")
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, Pagination{}, artlenserr.Wrapf(err, artlenserr.CodeIngestCatalogFailure, "fetching artworks page %d", page)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, Pagination{}, artlenserr.Errorf(artlenserr.CodeIngestCatalogFailure,
			"catalog returned %s for page %d", resp.Status, page)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, Pagination{}, artlenserr.Wrapf(err, artlenserr.CodeIngestCatalogFailure, "reading artworks page %d", page)
	}

	var parsed artworksResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, Pagination{}, artlenserr.Wrapf(err, artlenserr.CodeIngestCatalogFailure, "decoding artworks page %d", page)
	}

	return parsed.Data, parsed.Pagination, nil
}

// IDString returns the artwork's stable identifier as stored in the index.
func (a Artwork) IDString() string {
	return fmt.Sprintf("%d", a.ID)
}
