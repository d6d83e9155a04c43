// Package archive exports stored simulation results to portable files and
// imports them back.
package archive

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/nvandessel/phsim/internal/store"
)

// PayloadVersion is the version of the Archive JSON document.
const PayloadVersion = 1

// Archive is the exported document.
type Archive struct {
	Version   int               `json:"version"`
	CreatedAt time.Time         `json:"created_at"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Results   []store.Result    `json:"results"`
}

// Header is the plain-text first line of a compressed archive.
type Header struct {
	Version     int               `json:"version"`
	CreatedAt   time.Time         `json:"created_at"`
	Checksum    string            `json:"checksum"`
	ResultCount int               `json:"result_count"`
	Compressed  bool              `json:"compressed"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// ImportMode controls how Import handles IDs that already exist.
type ImportMode string

const (
	// ImportMerge skips results whose ID already exists (default).
	ImportMerge ImportMode = "merge"
	// ImportReplace overwrites existing results with the archived copy.
	ImportReplace ImportMode = "replace"
)

// ParseImportMode validates s. The empty string means ImportMerge.
func ParseImportMode(s string) (ImportMode, error) {
	switch ImportMode(s) {
	case "", ImportMerge:
		return ImportMerge, nil
	case ImportReplace:
		return ImportReplace, nil
	}
	return "", fmt.Errorf("invalid import mode %q (valid: merge, replace)", s)
}

// ImportResult counts what Import did.
type ImportResult struct {
	Imported int `json:"imported"`
	Replaced int `json:"replaced"`
	Skipped  int `json:"skipped"`
}

// Build collects every result in s into an Archive.
func Build(ctx context.Context, s store.ResultStore, metadata map[string]string) (*Archive, error) {
	results, err := s.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read results: %w", err)
	}
	for i := range results {
		results[i].Scope = ""
	}
	if results == nil {
		results = []store.Result{}
	}
	return &Archive{
		Version:   PayloadVersion,
		CreatedAt: time.Now().UTC(),
		Metadata:  metadata,
		Results:   results,
	}, nil
}

// Export writes every result in s to path. plain selects indented JSON
// instead of a compressed archive.
func Export(ctx context.Context, s store.ResultStore, path string, plain bool) (*Archive, error) {
	a, err := Build(ctx, s, map[string]string{"source": "phsim"})
	if err != nil {
		return nil, err
	}
	if plain {
		err = WritePlainFile(path, a)
	} else {
		err = WriteFile(path, a)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to write archive: %w", err)
	}
	return a, nil
}

// Import loads the archive at path into s.
func Import(ctx context.Context, s store.ResultStore, path string, mode ImportMode) (*ImportResult, error) {
	a, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	if a.Version != PayloadVersion {
		return nil, fmt.Errorf("unsupported archive version: %d", a.Version)
	}

	result := &ImportResult{}
	for _, r := range a.Results {
		if r.ID == "" {
			return nil, fmt.Errorf("archive contains a result without an ID")
		}

		_, err := s.Get(ctx, r.ID)
		exists := err == nil
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("failed to check existing result %s: %w", r.ID, err)
		}
		if exists && mode != ImportReplace {
			result.Skipped++
			continue
		}

		r.Scope = ""
		if _, err := s.Save(ctx, r); err != nil {
			return nil, fmt.Errorf("failed to import result %s: %w", r.ID, err)
		}
		if exists {
			result.Replaced++
		} else {
			result.Imported++
		}
	}
	return result, nil
}

// GeneratePath returns a timestamped archive filename in dir.
func GeneratePath(dir string, now time.Time) string {
	return filepath.Join(dir, fmt.Sprintf("phsim-archive-%s.json.gz", now.Format("20060102-150405")))
}
