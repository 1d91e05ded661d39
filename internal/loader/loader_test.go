package loader

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/awmpietro/golang-decision-engine/internal/errs"
)

func TestMemory(t *testing.T) {
	m := NewMemory(map[string][]byte{"a": []byte("A")})
	m.Put("b", []byte("B"))

	data, err := m.Load(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, "A", string(data))

	data, err = m.Load(context.Background(), "b")
	require.NoError(t, err)
	assert.Equal(t, "B", string(data))

	_, err = m.Load(context.Background(), "c")
	assert.ErrorIs(t, err, errs.LoaderNotFound)
}

func TestFunc(t *testing.T) {
	f := Func(func(_ context.Context, key string) ([]byte, error) {
		switch key {
		case "ok":
			return []byte("{}"), nil
		case "gone":
			return nil, errs.New(errs.LoaderNotFound, "gone")
		case "broken":
			return nil, errors.New("disk on fire")
		}
		return nil, nil
	})

	data, err := f.Load(context.Background(), "ok")
	require.NoError(t, err)
	assert.Equal(t, "{}", string(data))

	_, err = f.Load(context.Background(), "gone")
	assert.ErrorIs(t, err, errs.LoaderNotFound)

	_, err = f.Load(context.Background(), "broken")
	assert.ErrorIs(t, err, errs.LoaderBackendFailure)
	assert.Contains(t, err.Error(), "disk on fire")

	_, err = f.Load(context.Background(), "other")
	assert.ErrorIs(t, err, errs.LoaderNotFound)
}

func TestStringFunc(t *testing.T) {
	f := StringFunc(func(key string) (string, error) {
		switch key {
		case "ok":
			return `{"nodes":[]}`, nil
		case "broken":
			return "", errors.New("upstream said no")
		}
		return "", nil
	})

	data, err := f.Load(context.Background(), "ok")
	require.NoError(t, err)
	assert.Equal(t, `{"nodes":[]}`, string(data))

	_, err = f.Load(context.Background(), "broken")
	assert.ErrorIs(t, err, errs.LoaderBackendFailure)

	_, err = f.Load(context.Background(), "missing")
	assert.ErrorIs(t, err, errs.LoaderNotFound)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestFilesystem(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "pricing.json"), "json")
	writeFile(t, filepath.Join(root, "nested", "tax.yaml"), "yaml")
	writeFile(t, filepath.Join(root, "plain"), "plain")
	writeFile(t, filepath.Join(filepath.Dir(root), "secret.json"), "secret")

	fsys := NewFilesystem(root)
	ctx := context.Background()

	cases := []struct {
		key  string
		want string
	}{
		{key: "pricing.json", want: "json"},
		{key: "pricing", want: "json"},
		{key: "nested/tax", want: "yaml"},
		{key: "/nested/tax.yaml", want: "yaml"},
		{key: "plain", want: "plain"},
		{key: "absent", want: ""},
	}
	for _, tc := range cases {
		data, err := fsys.Load(ctx, tc.key)
		if tc.want == "" {
			assert.ErrorIs(t, err, errs.LoaderNotFound, tc.key)
			continue
		}
		require.NoError(t, err, tc.key)
		assert.Equal(t, tc.want, string(data), tc.key)
	}

	for _, key := range []string{"../secret.json", "nested/../../secret", ""} {
		_, err := fsys.Load(ctx, key)
		assert.ErrorIs(t, err, errs.LoaderNotFound, key)
	}
}

func TestFilesystem_KeysFor(t *testing.T) {
	fsys := NewFilesystem("/decisions")
	assert.Equal(t, []string{"a/b.json", "a/b"}, fsys.KeysFor("/decisions/a/b.json"))
	assert.Equal(t, []string{"notes.txt"}, fsys.KeysFor("/decisions/notes.txt"))
	assert.Nil(t, fsys.KeysFor("/elsewhere/x.json"))
}
