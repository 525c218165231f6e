package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"honnef.co/go/tools/staticcheck"

	"github.com/patric-chuzhbe/notekeeper/cmd/staticlint/noosexit"
	"github.com/patric-chuzhbe/notekeeper/cmd/staticlint/sqlsprintf"
)

func TestShippedConfigIsValid(t *testing.T) {
	cfg, err := loadConfig(Config)
	require.NoError(t, err)
	require.NotEmpty(t, cfg.Staticcheck)

	checks, err := buildChecks(cfg, staticcheck.Analyzers)
	require.NoError(t, err)

	names := make([]string, 0, len(checks))
	for _, check := range checks {
		names = append(names, check.Name)
	}
	assert.Contains(t, names, noosexit.Analyzer.Name)
	assert.Contains(t, names, sqlsprintf.Analyzer.Name)
	for _, name := range cfg.Staticcheck {
		assert.Contains(t, names, name)
	}
}

func TestBuildChecksRejectsUnknownAnalyzer(t *testing.T) {
	_, err := buildChecks(&ConfigData{Staticcheck: []string{"SA1000", "SA0000"}}, staticcheck.Analyzers)
	assert.ErrorContains(t, err, "SA0000")
}

func TestLoadConfig(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []string
		wantErr bool
	}{
		{name: "valid", content: `{"Staticcheck":["SA1000","SA4006"]}`, want: []string{"SA1000", "SA4006"}},
		{name: "empty list", content: `{"Staticcheck":[]}`, want: []string{}},
		{name: "broken json", content: `{"Staticcheck":`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), Config)
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o600))

			cfg, err := loadConfig(path)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg.Staticcheck)
		})
	}

	_, err := loadConfig(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
