package codetools

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RSuyash/repomesh/internal/apperr"
)

const sampleSource = `package sample

// Greeter says hello.
type Greeter struct {
	Name string
}

// Greet returns a greeting.
func Greet(name string) string {
	return "hello " + name
}

func (g *Greeter) Say() string {
	return Greet(g.Name)
}
`

func writeSample(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return name
}

func TestFileSkeleton(t *testing.T) {
	dir := t.TempDir()
	rel := writeSample(t, dir, "sample.go", sampleSource)
	svc := NewService(dir)

	t.Run("extracts top-level symbols", func(t *testing.T) {
		skeleton, err := svc.FileSkeleton(rel)
		require.NoError(t, err)
		assert.Equal(t, "go", skeleton.Language)
		require.Len(t, skeleton.Symbols, 3)

		assert.Equal(t, "struct", skeleton.Symbols[0].Kind)
		assert.Equal(t, "Greeter", skeleton.Symbols[0].Name)

		assert.Equal(t, "function", skeleton.Symbols[1].Kind)
		assert.Equal(t, "Greet", skeleton.Symbols[1].Name)
		assert.Contains(t, skeleton.Symbols[1].Doc, "Greet returns a greeting")

		assert.Equal(t, "function", skeleton.Symbols[2].Kind)
		assert.Equal(t, "Say", skeleton.Symbols[2].Name)
	})

	t.Run("non-go file returns note", func(t *testing.T) {
		rel := writeSample(t, dir, "readme.txt", "hello")
		skeleton, err := svc.FileSkeleton(rel)
		require.NoError(t, err)
		assert.Empty(t, skeleton.Symbols)
		assert.NotEmpty(t, skeleton.Note)
	})

	t.Run("missing file errors", func(t *testing.T) {
		_, err := svc.FileSkeleton("does-not-exist.go")
		require.Error(t, err)
		ae, ok := apperr.As(err)
		require.True(t, ok)
		assert.Equal(t, apperr.CodeValidationError, ae.Code)
	})
}

func TestSymbolLogic(t *testing.T) {
	dir := t.TempDir()
	rel := writeSample(t, dir, "sample.go", sampleSource)
	svc := NewService(dir)

	t.Run("finds a function", func(t *testing.T) {
		result, err := svc.SymbolLogic(rel, "Greet")
		require.NoError(t, err)
		assert.Equal(t, "function", result.Kind)
		assert.Contains(t, result.Source, "func Greet(name string) string")
	})

	t.Run("finds a type", func(t *testing.T) {
		result, err := svc.SymbolLogic(rel, "Greeter")
		require.NoError(t, err)
		assert.Equal(t, "type", result.Kind)
		assert.Contains(t, result.Source, "Greeter struct")
	})

	t.Run("unknown symbol errors", func(t *testing.T) {
		_, err := svc.SymbolLogic(rel, "DoesNotExist")
		require.Error(t, err)
		ae, ok := apperr.As(err)
		require.True(t, ok)
		assert.Equal(t, apperr.CodeValidationError, ae.Code)
	})
}

func TestSearchReplace(t *testing.T) {
	t.Run("replaces when count matches", func(t *testing.T) {
		dir := t.TempDir()
		rel := writeSample(t, dir, "sample.go", sampleSource)
		svc := NewService(dir)

		result, err := svc.SearchReplace(rel, "hello ", "hi ", 1)
		require.NoError(t, err)
		assert.Equal(t, 1, result.ReplacedCount)

		updated, err := os.ReadFile(filepath.Join(dir, rel))
		require.NoError(t, err)
		assert.Contains(t, string(updated), `"hi " + name`)
	})

	t.Run("conflict when count mismatches", func(t *testing.T) {
		dir := t.TempDir()
		rel := writeSample(t, dir, "sample.go", sampleSource)
		svc := NewService(dir)

		_, err := svc.SearchReplace(rel, "Greet", "Salute", 1)
		require.Error(t, err)
		ae, ok := apperr.As(err)
		require.True(t, ok)
		assert.Equal(t, apperr.CodeConflict, ae.Code)
		assert.Equal(t, 6, ae.Details["actual_count"])
		assert.Equal(t, 1, ae.Details["expected_count"])
	})

	t.Run("rejects non-positive expected count", func(t *testing.T) {
		dir := t.TempDir()
		rel := writeSample(t, dir, "sample.go", sampleSource)
		svc := NewService(dir)

		_, err := svc.SearchReplace(rel, "Greet", "Salute", 0)
		require.Error(t, err)
		ae, ok := apperr.As(err)
		require.True(t, ok)
		assert.Equal(t, apperr.CodeValidationError, ae.Code)
	})
}

func TestResolvePath_RejectsEscape(t *testing.T) {
	dir := t.TempDir()
	writeSample(t, dir, "sample.go", sampleSource)
	svc := NewService(dir)

	_, err := svc.SymbolLogic("../../etc/passwd", "x")
	require.Error(t, err)
	ae, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.CodeValidationError, ae.Code)
}

func TestResolvePath_RejectsDirectory(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "subdir")
	require.NoError(t, os.Mkdir(sub, 0o755))
	svc := NewService(dir)

	_, err := svc.FileSkeleton("subdir")
	require.Error(t, err)
	ae, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.CodeValidationError, ae.Code)
}
