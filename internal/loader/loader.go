// Package loader resolves decision keys to document bytes. Every backend
// reports failures as errs.LoaderNotFound or errs.LoaderBackendFailure.
package loader

import (
	"context"
	"sync"

	"github.com/awmpietro/golang-decision-engine/internal/errs"
)

type Loader interface {
	Load(ctx context.Context, key string) ([]byte, error)
}

func notFound(key string) error {
	return errs.New(errs.LoaderNotFound, "decision %q not found", key)
}

func backendFailure(key string, err error) error {
	return errs.Wrap(errs.LoaderBackendFailure, err, "load %q", key)
}

// classify keeps loader errors as they are and turns anything else into a
// backend failure.
func classify(key string, err error) error {
	if errs.IsLoaderError(err) {
		return err
	}
	return backendFailure(key, err)
}

// Memory serves documents from a map. It is safe for concurrent use.
type Memory struct {
	mu   sync.RWMutex
	docs map[string][]byte
}

func NewMemory(docs map[string][]byte) *Memory {
	m := &Memory{docs: make(map[string][]byte, len(docs))}
	for k, v := range docs {
		m.docs[k] = v
	}
	return m
}

func (m *Memory) Put(key string, content []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[key] = content
}

func (m *Memory) Load(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.docs[key]
	if !ok {
		return nil, notFound(key)
	}
	return doc, nil
}

// Func adapts a host callback. A nil result without error means not found.
type Func func(ctx context.Context, key string) ([]byte, error)

func (f Func) Load(ctx context.Context, key string) ([]byte, error) {
	data, err := f(ctx, key)
	if err != nil {
		return nil, classify(key, err)
	}
	if data == nil {
		return nil, notFound(key)
	}
	return data, nil
}

// StringFunc adapts a string based host callback. An empty result means not
// found; a returned error is reported as a backend failure.
type StringFunc func(key string) (string, error)

func (f StringFunc) Load(_ context.Context, key string) ([]byte, error) {
	s, err := f(key)
	if err != nil {
		return nil, classify(key, err)
	}
	if s == "" {
		return nil, notFound(key)
	}
	return []byte(s), nil
}
