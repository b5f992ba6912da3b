package config

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Nil(t, cfg.Validate())
	assert.Equal(t, 10, cfg.Limits.MaxStages)
	assert.Equal(t, 64, cfg.Limits.MaxArgs)
	assert.Equal(t, 512, cfg.Limits.MaxPathLen)
	assert.Equal(t, 100, cfg.Limits.MaxDepth)
	assert.Equal(t, 100, cfg.Limits.HistorySize)
	assert.Equal(t, ColorAuto, cfg.Color)
}

func TestLoad_missingFileUsesDefaults(t *testing.T) {
	fsys := afero.NewMemMapFs()

	cfg, err := Load(fsys, "/home/user")
	require.Nil(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad(t *testing.T) {
	fsys := afero.NewMemMapFs()
	contents := []byte("color: never\nlimits:\n  max_stages: 4\n")
	require.Nil(t, afero.WriteFile(fsys, "/etc/msh/msh.yaml", contents, 0644))

	cfg, err := Load(fsys, "/etc/msh")
	require.Nil(t, err)

	// Overridden values apply, everything else keeps its default.
	assert.Equal(t, ColorNever, cfg.Color)
	assert.Equal(t, 4, cfg.Limits.MaxStages)
	assert.Equal(t, 64, cfg.Limits.MaxArgs)
}

func TestLoad_acceptsFilePath(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.Nil(t, afero.WriteFile(fsys, "/etc/msh/msh.yaml", []byte("color: always\n"), 0644))

	cfg, err := Load(fsys, "/etc/msh/msh.yaml")
	require.Nil(t, err)
	assert.Equal(t, ColorAlways, cfg.Color)
}

func TestLoad_errors(t *testing.T) {
	cases := map[string]string{
		"unknown-field": "no_such_field: true\n",
		"bad-color":     "color: sometimes\n",
		"bad-limit":     "limits:\n  max_stages: 0\n",
	}

	for tn, tc := range cases {
		t.Run(tn, func(t *testing.T) {
			fsys := afero.NewMemMapFs()
			require.Nil(t, afero.WriteFile(fsys, "/msh.yaml", []byte(tc), 0644))

			_, err := Load(fsys, "/")
			assert.NotNil(t, err)
		})
	}
}
