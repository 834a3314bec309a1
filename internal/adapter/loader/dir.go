// Package loader reads the knowledge base from the local filesystem.
package loader

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/arturoeanton/bizreg-assistant/internal/domain"
	"github.com/arturoeanton/bizreg-assistant/internal/port"
)

// documentNamespace scopes document ids so that the same file name always
// maps to the same id across restarts.
var documentNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("bizreg-assistant/knowledge"))

// DirLoader implements port.DocumentLoader over a flat directory of text files.
type DirLoader struct {
	extensions map[string]bool // empty = accept every file
}

// NewDirLoader creates a loader. When extensions are given (".txt", ".md")
// only matching files are read.
func NewDirLoader(extensions ...string) *DirLoader {
	l := &DirLoader{extensions: make(map[string]bool, len(extensions))}
	for _, ext := range extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		l.extensions[ext] = true
	}
	return l
}

// Load reads every regular file directly inside dir, in name order.
// Subdirectories and dot-files are ignored. A file that cannot be read or is
// not valid UTF-8 is skipped with a warning.
func (l *DirLoader) Load(ctx context.Context, dir string) ([]domain.SourceDocument, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, &port.LoadError{Dir: dir, Err: err}
	}

	docs := make([]domain.SourceDocument, 0, len(entries))
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, &port.LoadError{Dir: dir, Err: err}
		}

		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") || !l.accepts(name) {
			continue
		}

		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			slog.Warn("skipping unreadable document", "file", path, "error", err)
			continue
		}
		if !utf8.Valid(data) {
			slog.Warn("skipping non-text document", "file", path)
			continue
		}

		docs = append(docs, domain.SourceDocument{
			ID:       DocumentID(name),
			Content:  string(data),
			Metadata: domain.DocumentMetadata{SourceName: name},
		})
	}

	slog.Info("knowledge documents loaded", "dir", dir, "documents", len(docs))
	return docs, nil
}

func (l *DirLoader) accepts(name string) bool {
	if len(l.extensions) == 0 {
		return true
	}
	return l.extensions[strings.ToLower(filepath.Ext(name))]
}

// DocumentID returns the stable id assigned to a document with the given
// source name.
func DocumentID(sourceName string) string {
	return uuid.NewSHA1(documentNamespace, []byte(sourceName)).String()
}
