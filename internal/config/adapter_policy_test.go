package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitCSV(t *testing.T) {
	t.Run("splits and trims entries", func(t *testing.T) {
		assert.Equal(t, []string{"go test", "go build"}, splitCSV("go test, go build"))
	})

	t.Run("drops empty entries", func(t *testing.T) {
		assert.Equal(t, []string{"go test"}, splitCSV("go test,,  "))
	})

	t.Run("blank input yields nil", func(t *testing.T) {
		assert.Nil(t, splitCSV(""))
		assert.Nil(t, splitCSV("   "))
	})
}

func TestRuntimePolicy_MergesStaticAndFile(t *testing.T) {
	policy := NewRuntimePolicy(AdapterConfig{
		AllowedCommandsCSV: "go test, go build",
		PrepassCommandsCSV: "go vet",
	})

	assert.Equal(t, []string{"go test", "go build"}, policy.AllowedCommandPrefixes())
	assert.Equal(t, []string{"go vet"}, policy.DefaultPrepassCommands())

	policy.Update(AdapterPolicy{
		AllowedCommands: []string{"npm test"},
		PrepassCommands: []string{"npm ci"},
	})

	assert.Equal(t, []string{"go test", "go build", "npm test"}, policy.AllowedCommandPrefixes())
	assert.Equal(t, []string{"go vet", "npm ci"}, policy.DefaultPrepassCommands())
}

func TestLoadAdapterPolicy(t *testing.T) {
	t.Run("parses a valid yaml file", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "policy.yaml")
		content := "allowed_commands:\n  - go test\n  - go build\nprepass_commands:\n  - go vet\n"
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

		policy, err := LoadAdapterPolicy(path)
		require.NoError(t, err)
		assert.Equal(t, []string{"go test", "go build"}, policy.AllowedCommands)
		assert.Equal(t, []string{"go vet"}, policy.PrepassCommands)
	})

	t.Run("errors on missing file", func(t *testing.T) {
		_, err := LoadAdapterPolicy(filepath.Join(t.TempDir(), "missing.yaml"))
		assert.Error(t, err)
	})
}
