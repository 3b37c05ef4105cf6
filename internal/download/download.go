// Package download stages a dataset's source file on local disk.
package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"dataset-processor/internal/helper"
)

var ErrDownload = errors.New("download failed")

// Fetcher resolves a URI to a local file path.
type Fetcher struct {
	client     *http.Client
	stagingDir string
}

func NewFetcher(stagingDir string, timeout time.Duration) *Fetcher {
	return &Fetcher{
		client:     &http.Client{Timeout: timeout},
		stagingDir: stagingDir,
	}
}

// RawURL rewrites a github.com "blob" page URL to the raw content URL.
// Other URIs are returned unchanged.
func RawURL(uri string) string {
	u, err := url.Parse(uri)
	if err != nil {
		return uri
	}
	if u.Host != "github.com" && u.Host != "www.github.com" {
		return uri
	}
	if !strings.Contains(u.Path, "/blob/") {
		return uri
	}
	u.Host = "raw.githubusercontent.com"
	u.Path = strings.Replace(u.Path, "/blob/", "/", 1)
	u.RawPath = ""
	return u.String()
}

// Fetch downloads http(s) URIs into the staging folder, named after the
// last path element of the URI. Anything else is taken as a local path.
func (f *Fetcher) Fetch(ctx context.Context, uri string) (string, error) {
	u, err := url.Parse(uri)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return f.local(uri)
	}

	name := path.Base(u.Path)
	if name == "." || name == "/" || name == "" {
		return "", fmt.Errorf("%w: no file name in %s", ErrDownload, uri)
	}

	source := RawURL(uri)
	log.Info().Str("uri", source).Msg("Downloading file")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrDownload, err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrDownload, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("%w: GET %s: status %d: %s", ErrDownload, source, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := helper.CreateFolder(f.stagingDir); err != nil {
		return "", fmt.Errorf("%w: %w", ErrDownload, err)
	}
	filePath := filepath.Join(f.stagingDir, name)
	out, err := os.Create(filePath)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrDownload, err)
	}
	defer out.Close()

	n, err := io.Copy(out, resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: writing %s: %w", ErrDownload, filePath, err)
	}
	log.Debug().Str("path", filePath).Int64("bytes", n).Msg("Downloaded file")
	return filePath, nil
}

func (f *Fetcher) local(uri string) (string, error) {
	filePath := strings.TrimPrefix(uri, "file://")
	if _, err := os.Stat(filePath); err != nil {
		return "", fmt.Errorf("%w: %w", ErrDownload, err)
	}
	return filePath, nil
}
