package docstore

import (
	"context"
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"trialtab/internal/errors"
)

// Source fetches raw study documents by id
type Source interface {
	Fetch(ctx context.Context, id string) ([]byte, error)
	List(ctx context.Context) ([]string, error)
}

// FileSource reads study documents from local disk. Explicitly mapped ids win;
// any other id is read from <dir>/<id>.json.
type FileSource struct {
	dir   string
	files map[string]string
}

// NewFileSource creates a file source
func NewFileSource(dir string, files map[string]string) *FileSource {
	cp := make(map[string]string, len(files))
	for id, p := range files {
		cp[id] = p
	}
	return &FileSource{dir: dir, files: cp}
}

// Path returns the file backing a study id
func (s *FileSource) Path(id string) (string, error) {
	if p, ok := s.files[id]; ok {
		return p, nil
	}
	if id == "" || strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
		return "", errors.InvalidInput(fmt.Sprintf("invalid study id %q", id))
	}
	if s.dir == "" {
		return "", errors.NotFound("study " + id)
	}
	return filepath.Join(s.dir, id+".json"), nil
}

// Fetch reads the raw bytes of a study
func (s *FileSource) Fetch(ctx context.Context, id string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := s.Path(id)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if stderrors.Is(err, fs.ErrNotExist) {
		return nil, errors.NotFound("study " + id)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

// List returns mapped ids plus every *.json file in the directory, sorted
func (s *FileSource) List(ctx context.Context) ([]string, error) {
	seen := make(map[string]bool)
	for id := range s.files {
		seen[id] = true
	}
	if s.dir != "" {
		entries, err := os.ReadDir(s.dir)
		if err != nil && !stderrors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("list %s: %w", s.dir, err)
		}
		for _, e := range entries {
			if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".json") {
				continue
			}
			seen[strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))] = true
		}
	}

	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Dirs returns the absolute directories holding this source's files
func (s *FileSource) Dirs() []string {
	set := make(map[string]bool)
	if s.dir != "" {
		if abs, err := filepath.Abs(s.dir); err == nil {
			set[abs] = true
		}
	}
	for _, p := range s.files {
		if abs, err := filepath.Abs(p); err == nil {
			set[filepath.Dir(abs)] = true
		}
	}
	dirs := make([]string, 0, len(set))
	for d := range set {
		dirs = append(dirs, d)
	}
	sort.Strings(dirs)
	return dirs
}

// IDForPath maps a file path back to the study id it backs
func (s *FileSource) IDForPath(path string) (string, bool) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", false
	}
	for id, p := range s.files {
		if pa, err := filepath.Abs(p); err == nil && pa == abs {
			return id, true
		}
	}
	if s.dir == "" || !strings.EqualFold(filepath.Ext(abs), ".json") {
		return "", false
	}
	dir, err := filepath.Abs(s.dir)
	if err != nil || filepath.Dir(abs) != dir {
		return "", false
	}
	base := filepath.Base(abs)
	return strings.TrimSuffix(base, filepath.Ext(base)), true
}
