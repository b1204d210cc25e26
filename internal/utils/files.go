package utils

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"
)

// EnsureDir ensures the provided directory exists.
func EnsureDir(dir string) error {
	return os.MkdirAll(dir, 0o755)
}

// SafeWriteFile writes data to a temp file and atomically renames it into place.
func SafeWriteFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := EnsureDir(dir); err != nil {
			return errors.Wrap(err, "create output dir")
		}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errors.Wrap(err, "write temp file")
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return errors.Wrap(err, "atomic rename")
	}
	return nil
}

// PrettyJSON marshals a value as indented JSON.
func PrettyJSON(v any) ([]byte, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "marshal json")
	}
	return b, nil
}

// PrettyYAML marshals a value as YAML with two-space indentation.
func PrettyYAML(v any) ([]byte, error) {
	var sb strings.Builder
	enc := yaml.NewEncoder(&sb)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return nil, errors.Wrap(err, "marshal yaml")
	}
	if err := enc.Close(); err != nil {
		return nil, errors.Wrap(err, "marshal yaml")
	}
	return []byte(sb.String()), nil
}

// Slug lowercases s and keeps letters and digits, folding spaces, dashes and
// underscores into single dashes. An empty result becomes fallback.
func Slug(s, fallback string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	for _, r := range s {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			if !strings.HasSuffix(b.String(), "-") {
				b.WriteRune('-')
			}
		}
	}
	out := strings.Trim(b.String(), "-")
	if out == "" {
		return fallback
	}
	return out
}

// UniquePath returns dir/base+suffix, or the first free dir/base__N+suffix
// (N >= 2) when that file already exists. renamed reports whether a numbered
// name was chosen.
func UniquePath(dir, base, suffix string) (path string, renamed bool) {
	path = filepath.Join(dir, base+suffix)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return path, false
	}
	for idx := 2; ; idx++ {
		cand := filepath.Join(dir, fmt.Sprintf("%s__%d%s", base, idx, suffix))
		if _, err := os.Stat(cand); os.IsNotExist(err) {
			return cand, true
		}
	}
}
