// Package artifact persists generated project files to disk and keeps
// an index of everything written so far.
package artifact

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fabrica-ai/fabrica/internal/extract"
)

const indexFile = "generated_projects.json"

// IndexEntry records one written project in the index file.
type IndexEntry struct {
	Name      string    `json:"name"`
	Path      string    `json:"path"`
	Files     []string  `json:"files"`
	CreatedAt time.Time `json:"created_at"`
}

// Writer writes project trees under a base output directory. Safe for
// concurrent use.
type Writer struct {
	mu      sync.Mutex
	baseDir string
	zip     bool
}

// NewWriter returns a Writer rooted at baseDir. When zipOutput is set,
// each project also gets a sibling .zip archive.
func NewWriter(baseDir string, zipOutput bool) *Writer {
	return &Writer{baseDir: baseDir, zip: zipOutput}
}

// WriteProject writes the files under baseDir/name, sanitizing each
// filename, and appends the project to the index. Existing files are
// overwritten.
func (w *Writer) WriteProject(name string, files map[string]string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	dir := filepath.Join(w.baseDir, name)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating project directory: %w", err)
	}

	written := make([]string, 0, len(files))
	for rawName, content := range files {
		clean := extract.SanitizeFilename(rawName, "artifact.py")
		path := filepath.Join(dir, clean)
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			return fmt.Errorf("writing %s: %w", clean, err)
		}
		written = append(written, clean)
	}
	sort.Strings(written)

	if w.zip {
		archive, err := Zip(files)
		if err != nil {
			return fmt.Errorf("archiving %s: %w", name, err)
		}
		zipPath := filepath.Join(w.baseDir, name+".zip")
		if err := os.WriteFile(zipPath, archive, 0644); err != nil {
			return fmt.Errorf("writing archive: %w", err)
		}
	}

	if err := w.appendIndex(IndexEntry{
		Name:      name,
		Path:      dir,
		Files:     written,
		CreatedAt: time.Now().UTC(),
	}); err != nil {
		// The project tree is already on disk; a broken index should
		// not fail the write.
		log.Printf("[artifact] updating index: %v", err)
	}

	log.Printf("[artifact] wrote %d files to %s", len(written), dir)
	return nil
}

// Index returns the recorded projects, oldest first.
func (w *Writer) Index() ([]IndexEntry, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.readIndex()
}

func (w *Writer) readIndex() ([]IndexEntry, error) {
	data, err := os.ReadFile(filepath.Join(w.baseDir, indexFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading index: %w", err)
	}

	var entries []IndexEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parsing index: %w", err)
	}
	return entries, nil
}

func (w *Writer) appendIndex(entry IndexEntry) error {
	entries, err := w.readIndex()
	if err != nil {
		return err
	}
	entries = append(entries, entry)

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(w.baseDir, indexFile), data, 0644)
}

// Zip renders the files as an in-memory zip archive with entries in
// sorted name order.
func Zip(files map[string]string) ([]byte, error) {
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range names {
		clean := extract.SanitizeFilename(name, "artifact.py")
		f, err := zw.Create(clean)
		if err != nil {
			return nil, fmt.Errorf("adding %s to archive: %w", clean, err)
		}
		if _, err := f.Write([]byte(files[name])); err != nil {
			return nil, fmt.Errorf("writing %s to archive: %w", clean, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("finalizing archive: %w", err)
	}
	return buf.Bytes(), nil
}
