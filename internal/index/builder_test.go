package index

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kcosr/symgrep/internal/lang"
	"github.com/kcosr/symgrep/internal/model"
)

const loginSource = `package auth

// loginUser checks the token.
func loginUser(token string) error {
	return nil
}

func logoutUser() {}
`

func writeSource(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func newTestBuilder(t *testing.T) (*Builder, Store, string) {
	t.Helper()
	root := t.TempDir()
	store, err := OpenSQLite(filepath.Join(root, DefaultDir, DefaultSQLiteName))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	return NewBuilder(store, lang.NewRegistry(), logger), store, root
}

func TestBuilderIndexesRepo(t *testing.T) {
	builder, _, root := newTestBuilder(t)
	writeSource(t, root, "auth/login.go", loginSource)

	summary, err := builder.Run(context.Background(), BuildOptions{Paths: []string{root}})
	require.NoError(t, err)
	assert.Equal(t, BackendSQLite, summary.Backend)
	assert.Equal(t, 1, summary.FilesIndexed)
	assert.Equal(t, 2, summary.SymbolsIndexed)
	assert.NotNil(t, summary.CreatedAt)
	assert.NotNil(t, summary.UpdatedAt)
}

func TestBuilderUnchangedIsNoOp(t *testing.T) {
	builder, store, root := newTestBuilder(t)
	writeSource(t, root, "auth/login.go", loginSource)

	first, err := builder.Run(context.Background(), BuildOptions{Paths: []string{root}})
	require.NoError(t, err)

	second, err := builder.Run(context.Background(), BuildOptions{Paths: []string{root}})
	require.NoError(t, err)
	assert.Equal(t, first.SymbolsIndexed, second.SymbolsIndexed)
	assert.Equal(t, first.FilesIndexed, second.FilesIndexed)

	files, err := store.ListFiles()
	require.NoError(t, err)
	require.Len(t, files, 1)
}

// Scenario: external annotations survive a reindex of a file whose
// symbols are unchanged.
func TestBuilderPreservesAttributesAcrossReindex(t *testing.T) {
	builder, store, root := newTestBuilder(t)
	writeSource(t, root, "auth/login.go", loginSource)

	_, err := builder.Run(context.Background(), BuildOptions{Paths: []string{root}})
	require.NoError(t, err)

	require.NoError(t, store.UpdateSymbolAttributes(
		SymbolSelector{Name: "loginUser"},
		model.SymbolAttributes{Keywords: []string{"auth", "jwt"}, Description: "Session entry."},
	))

	// Touch the file so change detection reparses it: same symbols, new
	// trailing comment keeps identity keys stable.
	writeSource(t, root, "auth/login.go", loginSource+"\n// trailing note\n")
	_, err = builder.Run(context.Background(), BuildOptions{Paths: []string{root}})
	require.NoError(t, err)

	records, err := store.QuerySymbols(SymbolQuery{Name: "loginUser"})
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.NotNil(t, records[0].Extra)
	assert.Equal(t, []string{"auth", "jwt"}, records[0].Extra.Keywords)
	assert.Equal(t, "Session entry.", records[0].Extra.Description)
	assert.Equal(t, "loginUser checks the token.", records[0].Extra.Comment)
}

func TestBuilderPrunesDeletedFiles(t *testing.T) {
	builder, store, root := newTestBuilder(t)
	writeSource(t, root, "a.go", "package a\n\nfunc A() {}\n")
	writeSource(t, root, "b.go", "package b\n\nfunc B() {}\n")

	_, err := builder.Run(context.Background(), BuildOptions{Paths: []string{root}})
	require.NoError(t, err)

	require.NoError(t, os.Remove(filepath.Join(root, "b.go")))
	summary, err := builder.Run(context.Background(), BuildOptions{Paths: []string{root}})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.FilesIndexed)

	rec, err := store.GetFileByPath("b.go")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestBuilderSkipsBrokenFiles(t *testing.T) {
	builder, _, root := newTestBuilder(t)
	writeSource(t, root, "good.go", "package good\n\nfunc Good() {}\n")
	writeSource(t, root, "bad.go", "package bad\n\nfunc broken( {\n")

	summary, err := builder.Run(context.Background(), BuildOptions{Paths: []string{root}})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.SymbolsIndexed)
}
