// Package artifact downloads generated images and materializes them as
// files in a managed static directory. Asset URLs returned by the Labs
// API are signed and expire within minutes, so results must be fetched
// promptly and re-hosted locally.
package artifact

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/fluxnodes/types"
)

// Artifact is one stored generation result.
type Artifact struct {
	// Name of the artifact, without extension.
	Name string
	// Path of the stored file on disk.
	Path string
	// Size in bytes.
	Size int
}

// Downloader fetches asset bytes from signed URLs.
type Downloader struct {
	client *http.Client
	logger *zap.Logger
}

// NewDownloader creates a downloader with a 30s per-request timeout.
func NewDownloader(logger *zap.Logger) *Downloader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Downloader{
		client: &http.Client{Timeout: 30 * time.Second},
		logger: logger,
	}
}

// Fetch downloads the asset at url.
func (d *Downloader) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, types.NewError(types.ErrArtifact, "failed to build download request").WithCause(err)
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return nil, types.NewError(types.ErrArtifact, "failed to download image").WithCause(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, types.Errorf(types.ErrArtifact,
			"image download rejected: status=%d (signed URLs expire after a few minutes)", resp.StatusCode).
			WithHTTPStatus(resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, types.NewError(types.ErrArtifact, "failed to read image body").WithCause(err)
	}

	d.logger.Debug("downloaded generated image",
		zap.String("url", url),
		zap.Int("bytes", len(data)),
	)
	return data, nil
}

// Meta describes the generation an artifact came from, used to build a
// descriptive filename.
type Meta struct {
	// Model endpoint that produced the image.
	Model string
	// Seed the API reported, nil for random.
	Seed *int64
	// Format extension, "jpeg" or "png".
	Format string
}

// Store writes artifacts into a static-files directory.
type Store struct {
	dir    string
	logger *zap.Logger
}

// NewStore creates the directory if needed and returns a store.
func NewStore(dir string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, types.NewError(types.ErrArtifact, "failed to create artifact directory").WithCause(err)
	}
	return &Store{dir: dir, logger: logger}, nil
}

// Save writes data under a descriptive name:
// labs_{model}_{seed|random}_{unixms}.{ext}.
func (s *Store) Save(data []byte, meta Meta) (*Artifact, error) {
	seed := "random"
	if meta.Seed != nil {
		seed = fmt.Sprintf("%d", *meta.Seed)
	}
	model := strings.ReplaceAll(orDefault(meta.Model, "unknown"), "-", "_")
	name := fmt.Sprintf("labs_%s_%s_%d", model, seed, time.Now().UnixMilli())
	path := filepath.Join(s.dir, name+"."+orDefault(meta.Format, "jpeg"))

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, types.NewError(types.ErrArtifact, "failed to write artifact").WithCause(err)
	}

	s.logger.Debug("artifact stored",
		zap.String("path", path),
		zap.Int("bytes", len(data)),
	)
	return &Artifact{Name: name, Path: path, Size: len(data)}, nil
}

// Dir returns the static-files directory.
func (s *Store) Dir() string { return s.dir }

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
