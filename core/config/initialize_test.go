package config

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitialize(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, Initialize(fs, "/etc/anvil", false))

	cfg, err := Load(fs, "/etc/anvil")
	require.NoError(t, err)
	assert.NotEmpty(t, cfg.Prompt)

	// A second initialize must not clobber the existing file.
	assert.Error(t, Initialize(fs, "/etc/anvil", false))

	// Unless forced.
	require.NoError(t, afero.WriteFile(fs, "/etc/anvil/"+ConfigurationName, []byte("prompt: \"# \"\n"), 0644))
	require.NoError(t, Initialize(fs, "/etc/anvil", true))
	cfg, err = Load(fs, "/etc/anvil")
	require.NoError(t, err)
	assert.Equal(t, Default().Prompt, cfg.Prompt)
}

func TestLoadAcceptsFilePath(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, Initialize(fs, "/etc/anvil", false))

	cfg, err := Load(fs, "/etc/anvil/"+ConfigurationName)
	require.NoError(t, err)
	assert.NotEmpty(t, cfg.Prompt)
}

func TestLoadOrDefault(t *testing.T) {
	fs := afero.NewMemMapFs()
	cfg, err := LoadOrDefault(fs, "/nowhere")
	require.NoError(t, err)
	assert.NotEmpty(t, cfg.Prompt)

	require.NoError(t, afero.WriteFile(fs, "/etc/anvil/"+ConfigurationName, []byte("not: [valid"), 0644))
	_, err = LoadOrDefault(fs, "/etc/anvil")
	assert.Error(t, err)
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	fs := afero.NewMemMapFs()
	doc := "prompt: \"$ \"\nnot_a_real_field: true\n"
	require.NoError(t, afero.WriteFile(fs, "/etc/anvil/"+ConfigurationName, []byte(doc), 0644))
	_, err := Load(fs, "/etc/anvil")
	assert.Error(t, err)
}
