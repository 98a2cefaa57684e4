package cli

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStudiesListsEveryStudy(t *testing.T) {
	cfgPath := writeTestConfig(t, multiStudyConfig)

	buf := &bytes.Buffer{}
	root := NewRootCommand()
	root.SetOut(buf)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"studies", "--config", cfgPath})

	require.NoError(t, root.Execute())

	out := buf.String()
	assert.Contains(t, out, "unit")
	assert.Contains(t, out, "second")
	assert.Contains(t, out, "covariates: xgrad, noise")
	assert.Contains(t, out, "models:     glm, rf")
	assert.Contains(t, out, "threshold:  youden")
}

func TestStudiesShowsClassColumnRule(t *testing.T) {
	cfgPath := writeTestConfig(t, `
studies:
  - name: labelled
    survey:
      path: survey.csv
      response: response
      latitude: lat
      longitude: lon
      class: good
    covariates:
      - name: xgrad
        path: xgrad.asc
`)

	buf := &bytes.Buffer{}
	root := NewRootCommand()
	root.SetOut(buf)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"studies", "--config", cfgPath})

	require.NoError(t, root.Execute())

	assert.Contains(t, buf.String(), "classes from column good")
	assert.NotContains(t, buf.String(), "quantile")
}

func TestStudiesMissingConfig(t *testing.T) {
	root := NewRootCommand()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"studies", "--config", filepath.Join(t.TempDir(), "absent.yaml")})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config")
}
