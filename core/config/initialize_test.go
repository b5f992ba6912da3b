package config

import (
	"io/ioutil"
	"log"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitialize(t *testing.T) {
	fsys := afero.NewMemMapFs()
	logger := log.New(ioutil.Discard, "", 0)

	require.Nil(t, Initialize(fsys, "/conf", logger))

	// The written config must round-trip through Load and match defaults.
	cfg, err := Load(fsys, "/conf")
	require.Nil(t, err)
	assert.Equal(t, Default(), cfg)

	// A second initialize must refuse to clobber the first.
	err = Initialize(fsys, "/conf", logger)
	require.NotNil(t, err)
	assert.Contains(t, err.Error(), "already exists")
}
