// Package artifact persists generated reports as markdown files on disk.
package artifact

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"
)

// Artifact is one saved report file.
type Artifact struct {
	Name      string    `json:"name"`
	Path      string    `json:"path"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

// Store writes report files under a single directory.
type Store struct {
	dir string
}

// NewStore creates the artifacts directory if needed.
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		return nil, errors.New("artifacts directory cannot be empty")
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving artifacts directory: %w", err)
	}
	if err := os.MkdirAll(absDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating artifacts directory: %w", err)
	}
	return &Store{dir: absDir}, nil
}

// Save writes content to a new timestamped markdown file named after title.
// The write goes through a temp file and rename so a crash never leaves a
// half-written report.
func (s *Store) Save(title, content string) (*Artifact, error) {
	name := fmt.Sprintf("%s-%s.md", time.Now().Format("20060102-150405"), Slug(title))
	path := filepath.Join(s.dir, name)

	tmp, err := os.CreateTemp(s.dir, ".report-*")
	if err != nil {
		return nil, fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.WriteString(content); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return nil, fmt.Errorf("writing report: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return nil, fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return nil, fmt.Errorf("renaming report: %w", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat report: %w", err)
	}

	return &Artifact{
		Name:      name,
		Path:      path,
		Size:      info.Size(),
		CreatedAt: info.ModTime(),
	}, nil
}

// List returns saved reports, newest first.
func (s *Store) List() ([]Artifact, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("reading artifacts directory: %w", err)
	}

	var out []Artifact
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		out = append(out, Artifact{
			Name:      entry.Name(),
			Path:      filepath.Join(s.dir, entry.Name()),
			Size:      info.Size(),
			CreatedAt: info.ModTime(),
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// Read returns the content of a saved report by file name. The name must not
// contain path separators.
func (s *Store) Read(name string) (string, error) {
	if name != filepath.Base(name) {
		return "", fmt.Errorf("invalid artifact name: %q", name)
	}
	content, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		return "", fmt.Errorf("reading artifact: %w", err)
	}
	return string(content), nil
}

// Slug converts a title into a safe file name fragment.
func Slug(title string) string {
	s := strings.ToLower(strings.TrimSpace(title))
	s = slugPattern.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if s == "" {
		return "report"
	}
	if len(s) > 60 {
		s = strings.Trim(s[:60], "-")
	}
	return s
}
