package loader

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/awmpietro/golang-decision-engine/internal/errs"
)

// Extensions tried, in order, after the bare key when it has no extension.
var Extensions = []string{".json", ".yaml", ".yml"}

// Filesystem loads documents from files under a root directory. Keys are
// slash separated paths relative to the root; keys escaping it are rejected.
type Filesystem struct {
	root string
}

func NewFilesystem(root string) *Filesystem {
	return &Filesystem{root: root}
}

func (f *Filesystem) Root() string { return f.root }

func (f *Filesystem) Load(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, backendFailure(key, err)
	}
	rel := filepath.FromSlash(strings.TrimPrefix(key, "/"))
	if key == "" || !filepath.IsLocal(rel) {
		return nil, errs.New(errs.LoaderNotFound, "decision key %q is outside the loader root", key)
	}

	candidates := []string{rel}
	if filepath.Ext(rel) == "" {
		for _, ext := range Extensions {
			candidates = append(candidates, rel+ext)
		}
	}

	for _, c := range candidates {
		data, err := os.ReadFile(filepath.Join(f.root, c))
		if err == nil {
			return data, nil
		}
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		return nil, backendFailure(key, err)
	}
	return nil, notFound(key)
}

// KeysFor lists the keys a file path under the root can be loaded by.
func (f *Filesystem) KeysFor(path string) []string {
	rel, err := filepath.Rel(f.root, path)
	if err != nil || !filepath.IsLocal(rel) {
		return nil
	}
	key := filepath.ToSlash(rel)
	keys := []string{key}
	ext := filepath.Ext(key)
	for _, known := range Extensions {
		if ext == known {
			keys = append(keys, strings.TrimSuffix(key, ext))
			break
		}
	}
	return keys
}
