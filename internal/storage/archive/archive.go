// Package archive stores full run documents in local or S3-compatible storage.
package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"github.com/newthinker/swingsim/internal/config"
	"github.com/newthinker/swingsim/internal/core"
	"github.com/newthinker/swingsim/internal/pipeline"
)

// Storage defines the interface for archive storage backends
type Storage interface {
	// Write stores data at the given path
	Write(ctx context.Context, path string, data []byte) error

	// Read retrieves data from the given path
	Read(ctx context.Context, path string) ([]byte, error)

	// List returns all paths matching the prefix
	List(ctx context.Context, prefix string) ([]string, error)

	// Delete removes the data at the given path
	Delete(ctx context.Context, path string) error

	// Exists checks if data exists at the given path
	Exists(ctx context.Context, path string) (bool, error)
}

// New creates the configured backend. It returns nil when archiving is disabled.
func New(cfg config.ArchiveConfig) (Storage, error) {
	switch cfg.Type {
	case "", "none":
		return nil, nil
	case "localfs":
		return NewLocalFS(cfg.Path)
	case "s3":
		return NewS3(cfg.S3)
	default:
		return nil, core.Errorf(core.ErrConfigInvalid, "unknown archive type: %q", cfg.Type)
	}
}

// ResultPath returns runs/<pair>/<yyyy-mm-dd>/<id>.json for a run document.
func ResultPath(doc pipeline.Document) string {
	return path.Join("runs", doc.Pair, doc.StartedAt.UTC().Format("2006-01-02"), doc.ID+".json")
}

// SaveResult writes the document, portfolio included, and returns its path.
func SaveResult(ctx context.Context, st Storage, res *pipeline.Result) (string, error) {
	doc := res.Document(true)
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", core.WrapError(core.ErrStorage, fmt.Errorf("encoding run %s: %w", doc.ID, err))
	}

	p := ResultPath(doc)
	if err := st.Write(ctx, p, data); err != nil {
		return "", err
	}
	return p, nil
}

// LoadResult reads a document written by SaveResult.
func LoadResult(ctx context.Context, st Storage, p string) (*pipeline.Document, error) {
	data, err := st.Read(ctx, p)
	if err != nil {
		return nil, err
	}
	var doc pipeline.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, core.WrapError(core.ErrStorage, fmt.Errorf("decoding %s: %w", p, err))
	}
	return &doc, nil
}

// cleanPath rejects absolute paths and paths escaping the archive root.
func cleanPath(p string) (string, error) {
	c := path.Clean(strings.ReplaceAll(p, "\\", "/"))
	if c == "." || strings.HasPrefix(c, "/") || c == ".." || strings.HasPrefix(c, "../") {
		return "", core.Errorf(core.ErrStorage, "invalid archive path: %q", p)
	}
	return c, nil
}
