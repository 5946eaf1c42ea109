// Package document loads files into editor content and writes it back.
package document

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/tsawler/tabula/docx"
	"github.com/tsawler/tabula/odt"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"quill/internal/domain"
)

var ErrReadOnlyFormat = errors.New("format can be opened but not saved")

// textExtractor is the part of the tabula readers the store needs.
type textExtractor interface {
	Text() (string, error)
	Close() error
}

var richFormats = map[string]func(string) (textExtractor, error){
	".docx": func(p string) (textExtractor, error) { return docx.Open(p) },
	".odt":  func(p string) (textExtractor, error) { return odt.Open(p) },
}

// Store reads plain text and word-processor documents and saves plain text.
type Store struct{}

func NewStore() *Store { return &Store{} }

// Load returns the document content. Word-processor files yield their
// paragraph text joined by newlines; everything else is decoded as UTF-8
// with a BOM honoured and invalid bytes replaced.
func (s *Store) Load(path string) (domain.Document, error) {
	if open, ok := richFormats[strings.ToLower(filepath.Ext(path))]; ok {
		r, err := open(path)
		if err != nil {
			return domain.Document{}, fmt.Errorf("open %s: %w", filepath.Base(path), err)
		}
		defer r.Close()
		text, err := r.Text()
		if err != nil {
			return domain.Document{}, fmt.Errorf("read %s: %w", filepath.Base(path), err)
		}
		return domain.Document{Path: path, Content: normalizeNewlines(text)}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return domain.Document{}, err
	}
	defer f.Close()
	dec := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	data, err := io.ReadAll(transform.NewReader(f, dec))
	if err != nil {
		return domain.Document{}, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	return domain.Document{Path: path, Content: normalizeNewlines(string(data))}, nil
}

// Save writes content as UTF-8 through a temp file in the same directory and
// renames it over path.
func (s *Store) Save(path, content string) error {
	if _, ok := richFormats[strings.ToLower(filepath.Ext(path))]; ok {
		return fmt.Errorf("%w: %s", ErrReadOnlyFormat, filepath.Ext(path))
	}
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }
	if _, err := io.WriteString(tmp, content); err != nil {
		_ = tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return err
	}
	mode := os.FileMode(0o644)
	if fi, err := os.Stat(path); err == nil {
		mode = fi.Mode().Perm()
	}
	if err := os.Chmod(tmpName, mode); err != nil {
		cleanup()
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return err
	}
	return nil
}

// IsReadOnly reports whether path has a format Save refuses.
func IsReadOnly(path string) bool {
	_, ok := richFormats[strings.ToLower(filepath.Ext(path))]
	return ok
}

func normalizeNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}
