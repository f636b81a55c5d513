// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Artlens Contributors

package ingest

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/artlens-dev/artlens/internal/embed"
	artlenserr "github.com/artlens-dev/artlens/pkg/errors"
)

const userAgent = "artlens/0.1 (+https://github.com/artlens-dev/artlens)"

// defaultImageSize is the IIIF width parameter used for embedding inputs.
const defaultImageSize = "843,"

// ImageClient downloads artwork images from a IIIF image server.
// Safe for concurrent use.
type ImageClient struct {
	baseURL string
	client  *http.Client
}

// NewImageClient creates a client for the IIIF server at baseURL.
func NewImageClient(baseURL string) *ImageClient {
	return &ImageClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// ImageURL builds the IIIF URL for an image id at the embedding size.
func (c *ImageClient) ImageURL(imageID string) string {
	return c.baseURL + "/" + imageID + "/full/" + defaultImageSize + "/0/default.jpg"
}

// Download fetches one image and verifies it decodes as a bitmap.
// A 403 means the image is not served for this artwork; callers skip it.
func (c *ImageClient) Download(ctx context.Context, imageID string) ([]byte, error) {
	reqURL := c.ImageURL(imageID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, artlenserr.Wrapf(err, artlenserr.CodeIngestImageUnfetched, "building image request for %s", imageID)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "image/avif,image/webp,image/apng,image/*,*/*;q=0.8")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, artlenserr.Wrapf(err, artlenserr.CodeIngestImageUnfetched, "fetching image %s", imageID)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusNotFound {
		return nil, artlenserr.Errorf(artlenserr.CodeIngestImageUnfetched,
			"image %s not served (%s)", imageID, resp.Status)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, artlenserr.Errorf(artlenserr.CodeIngestImageUnfetched,
			"image server returned %s for %s", resp.Status, imageID)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, artlenserr.Wrapf(err, artlenserr.CodeIngestImageUnfetched, "reading image %s", imageID)
	}

	if _, err := embed.ValidateImage(data); err != nil {
		return nil, artlenserr.Wrapf(err, artlenserr.CodeIngestImageUndecoded, "image %s", imageID)
	}

	return data, nil
}
