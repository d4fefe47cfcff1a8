// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets reads credentials kept as plain-text files, one per
// secret, in a local directory (by default .secrets/). The filename is the
// secret's name and the trimmed file contents are its value. The ADS token
// lives in .secrets/ads-api-key.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// DefaultDir is the secrets directory relative to the working directory.
const DefaultDir = ".secrets"

// APIKeyName is the file holding the ADS API token.
const APIKeyName = "ads-api-key"

// Load returns every non-empty secret in dir keyed by filename. Dotfiles
// and subdirectories are ignored. A missing directory yields an empty
// map. Unreadable files are skipped with a warning.
func Load(dir string, logger *zap.Logger) (map[string]string, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	out := make(map[string]string, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			logger.Warn("could not read secret", zap.String("name", name), zap.Error(err))
			continue
		}
		if v := strings.TrimSpace(string(data)); v != "" {
			out[name] = v
		}
	}
	return out, nil
}

// APIKey returns the ADS token stored in dir, or "" when none is present.
func APIKey(dir string, logger *zap.Logger) (string, error) {
	s, err := Load(dir, logger)
	if err != nil {
		return "", err
	}
	return s[APIKeyName], nil
}
