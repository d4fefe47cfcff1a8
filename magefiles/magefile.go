//go:build mage

// Package main contains Mage build targets for nasa-ads developer tooling.
package main

import (
	"bufio"
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binDir  = "bin"
	binName = "nasa-ads"
	cmdPkg  = "./cmd/nasa-ads"
)

// Default is the target run by a bare `mage`.
var Default = Build

// projectDirs are created by Init.
var projectDirs = []string{
	"output",
	".secrets",
}

// configTemplate is written to nasa_ads.yaml by Init when none exists.
const configTemplate = `# nasa-ads configuration. Environment variables NASA_ADS_<KEY> override
# these values; the API key can also live in .secrets/ads-api-key.
api_base_url: https://api.adsabs.harvard.edu/v1
timeout: 30
max_retries: 3
retry_backoff_factor: 0.5
rate_limit_delay: 0.1
rows_per_request: 100
output_format: csv
log_level: INFO
log_format: console
`

// Init creates the working directories and a starter nasa_ads.yaml.
func Init() error {
	for _, dir := range projectDirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
		fmt.Println("  ", dir)
	}
	if _, err := os.Stat("nasa_ads.yaml"); os.IsNotExist(err) {
		if err := os.WriteFile("nasa_ads.yaml", []byte(configTemplate), 0o644); err != nil {
			return fmt.Errorf("writing nasa_ads.yaml: %w", err)
		}
		fmt.Println("   nasa_ads.yaml")
	}
	fmt.Println("Project initialized. Put your ADS token in .secrets/ads-api-key.")
	return nil
}

// Build compiles the CLI binary into bin/, stamping the version from git.
func Build() error {
	mg.Deps(Vet)
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", binDir, err)
	}
	version, err := sh.Output("git", "describe", "--tags", "--always", "--dirty")
	if err != nil || version == "" {
		version = "dev"
	}
	out := filepath.Join(binDir, binName)
	ldflags := "-X main.version=" + version
	if err := sh.RunV("go", "build", "-ldflags", ldflags, "-o", out, cmdPkg); err != nil {
		return fmt.Errorf("go build: %w", err)
	}
	fmt.Printf("Built %s (%s)\n", out, version)
	return nil
}

// Vet runs go vet over every package.
func Vet() error {
	return sh.RunV("go", "vet", "./...")
}

// Test runs the unit tests with the race detector.
func Test() error {
	return sh.RunV("go", "test", "-race", "-count=1", "./...")
}

// Cover writes coverage.out and prints the per-function summary.
func Cover() error {
	if err := sh.RunV("go", "test", "-coverprofile=coverage.out", "./..."); err != nil {
		return err
	}
	return sh.RunV("go", "tool", "cover", "-func=coverage.out")
}

// Clean removes build and coverage artifacts.
func Clean() error {
	for _, p := range []string{binDir, "coverage.out"} {
		if err := sh.Rm(p); err != nil {
			return err
		}
	}
	return nil
}

// Stats prints non-blank Go lines per package, split into production and
// test code.
func Stats() error {
	type counts struct{ prod, test int }
	byPkg := map[string]*counts{}

	err := filepath.WalkDir(".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if name := d.Name(); path != "." && (strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_")) {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) != ".go" {
			return nil
		}
		n, err := nonBlankLines(path)
		if err != nil {
			return err
		}
		pkg := filepath.Dir(path)
		c, ok := byPkg[pkg]
		if !ok {
			c = &counts{}
			byPkg[pkg] = c
		}
		if strings.HasSuffix(path, "_test.go") {
			c.test += n
		} else {
			c.prod += n
		}
		return nil
	})
	if err != nil {
		return err
	}

	pkgs := make([]string, 0, len(byPkg))
	for p := range byPkg {
		pkgs = append(pkgs, p)
	}
	sort.Strings(pkgs)

	var prod, test int
	fmt.Printf("%-28s %8s %8s\n", "package", "prod", "test")
	for _, p := range pkgs {
		c := byPkg[p]
		fmt.Printf("%-28s %8d %8d\n", p, c.prod, c.test)
		prod += c.prod
		test += c.test
	}
	fmt.Printf("%-28s %8d %8d\n", "total", prod, test)
	return nil
}

func nonBlankLines(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("reading %s: %w", path, err)
	}
	n := 0
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		if strings.TrimSpace(sc.Text()) != "" {
			n++
		}
	}
	return n, sc.Err()
}
