package prd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tidwall/jsonc"

	"ralph/internal/jsonutil"
)

// ConfigError indicates the document on disk is missing, malformed, or
// structurally invalid. It is fatal at startup.
type ConfigError struct {
	Path string
	Err  error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("prd %s: %v", e.Path, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// Store reads and writes the document at a fixed path. It hands out deep
// copies on Load and writes atomically on Save, so no reader ever observes
// a partially written file.
type Store struct {
	Path string
}

// NewStore returns a store for the document at path.
func NewStore(path string) *Store {
	return &Store{Path: path}
}

// Load reads and parses the document. The on-disk format is JSONC: JSON
// extended with // line comments, /* block comments */, and trailing
// commas.
func (s *Store) Load() (*Document, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, &ConfigError{Path: s.Path, Err: err}
	}

	var doc Document
	if err := jsonutil.UnmarshalWithContext(jsonc.ToJSON(data), &doc, "parsing document"); err != nil {
		return nil, &ConfigError{Path: s.Path, Err: err}
	}
	if err := doc.Validate(); err != nil {
		return nil, &ConfigError{Path: s.Path, Err: err}
	}
	return &doc, nil
}

// Marshal serializes a document in the canonical indented form used on
// disk.
func Marshal(doc *Document) ([]byte, error) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal document: %w", err)
	}
	return append(data, '\n'), nil
}

// Save persists the document atomically: write a temp file in the same
// directory, then rename over the target. Comments from the original file
// are not preserved; serialization is lossless over content, not formatting.
func (s *Store) Save(doc *Document) error {
	data, err := Marshal(doc)
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.Path)
	tmp, err := os.CreateTemp(dir, ".prd-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.Path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
