// Command staticlint is the project's multichecker. It runs a fixed set of
// go/analysis passes, ineffassign, nilerr and the project's own analyzers,
// plus the staticcheck analyzers enabled in config.json next to the binary.
//
// Custom analyzers:
//   - noosexit: os.Exit in commands and log.Fatal outside main.main, so that
//     run() can always finish its deferred storage and logger cleanup.
//   - sqlsprintf: SQL built with fmt.Sprintf instead of placeholders.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gordonklaus/ineffassign/pkg/ineffassign"
	"github.com/gostaticanalysis/nilerr"
	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/multichecker"
	"golang.org/x/tools/go/analysis/passes/copylock"
	"golang.org/x/tools/go/analysis/passes/loopclosure"
	"golang.org/x/tools/go/analysis/passes/lostcancel"
	"golang.org/x/tools/go/analysis/passes/printf"
	"golang.org/x/tools/go/analysis/passes/structtag"
	"golang.org/x/tools/go/analysis/passes/unmarshal"
	"golang.org/x/tools/go/analysis/passes/unreachable"
	"honnef.co/go/tools/analysis/lint"
	"honnef.co/go/tools/staticcheck"

	"github.com/patric-chuzhbe/notekeeper/cmd/staticlint/noosexit"
	"github.com/patric-chuzhbe/notekeeper/cmd/staticlint/sqlsprintf"
)

// Config is the name of the JSON configuration file that lists enabled staticcheck analyzers.
const Config = `config.json`

// ConfigData describes the structure of the configuration file.
// The Staticcheck field contains the names of enabled staticcheck analyzers, e.g., "SA1000", "SA4010".
type ConfigData struct {
	Staticcheck []string
}

func loadConfig(path string) (*ConfigData, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("in cmd/staticlint/main.go/loadConfig(): error while `os.ReadFile()` calling: %w", err)
	}

	var cfg ConfigData
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("in cmd/staticlint/main.go/loadConfig(): error while `json.Unmarshal()` calling: %w", err)
	}

	return &cfg, nil
}

// buildChecks returns the always-on analyzers followed by the enabled
// staticcheck ones. Unknown names are reported so a typo in config.json does
// not silently disable a check.
func buildChecks(cfg *ConfigData, available []*lint.Analyzer) ([]*analysis.Analyzer, error) {
	checks := []*analysis.Analyzer{
		copylock.Analyzer,
		loopclosure.Analyzer,
		lostcancel.Analyzer,
		printf.Analyzer,
		structtag.Analyzer,
		unmarshal.Analyzer,
		unreachable.Analyzer,

		ineffassign.Analyzer,
		nilerr.Analyzer,

		noosexit.Analyzer,
		sqlsprintf.Analyzer,
	}

	byName := make(map[string]*analysis.Analyzer, len(available))
	for _, v := range available {
		byName[v.Analyzer.Name] = v.Analyzer
	}

	for _, name := range cfg.Staticcheck {
		analyzer, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("unknown staticcheck analyzer %q in %s", name, Config)
		}
		checks = append(checks, analyzer)
	}

	return checks, nil
}

func main() {
	appfile, err := os.Executable()
	if err != nil {
		panic(err)
	}

	cfg, err := loadConfig(filepath.Join(filepath.Dir(appfile), Config))
	if err != nil {
		panic(err)
	}

	checks, err := buildChecks(cfg, staticcheck.Analyzers)
	if err != nil {
		panic(err)
	}

	multichecker.Main(checks...)
}
