// Package registry loads the source and analyst registries from the configuration directory.
//
// A registry named "source_registry" is read from the first existing file among
// source_registry.json, source_registry.yaml, source_registry.yml and source_registry.toml.
// TOML has no top level arrays, so TOML lists are written as [[entries]] tables.
package registry

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/chaintracker/chain-tracker/internal/constants"
	"gopkg.in/yaml.v3"
)

// ErrNotFound is returned when no file exists for a registry.
var ErrNotFound = errors.New("registry file not found")

// EntriesKey wraps top level lists in TOML registries.
const EntriesKey = "entries"

// Extensions lists the supported registry file extensions, by order of precedence.
var Extensions = []string{".json", ".yaml", ".yml", ".toml"}

// Find returns the path of the file holding the registry name in dir.
func Find(dir, name string) (string, error) {
	for _, ext := range Extensions {
		p := filepath.Join(dir, name+ext)
		if fi, err := os.Stat(p); err == nil && !fi.IsDir() {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrNotFound, filepath.Join(dir, name+Extensions[0]))
}

// IsRegistryFile reports whether path names a registry file with a supported extension.
func IsRegistryFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// LoadFile decodes a registry file into generic values.
//
// Objects are decoded as map[string]any and lists as []any. Whole numbers are int64 and other
// numbers are float64, whatever the file format, so that callers can check value types.
// Whole numbers beyond the int64 range are float64 too.
func LoadFile(path string) (any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var v any
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		if err := dec.Decode(&v); err != nil {
			return nil, fmt.Errorf("invalid JSON: %v", err)
		}
		if _, err := dec.Token(); err != io.EOF {
			return nil, errors.New("invalid JSON: extra data after top level value")
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("invalid YAML: %v", err)
		}
	case ".toml":
		var m map[string]any
		if err := toml.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("invalid TOML: %v", err)
		}
		v = m
		if list, ok := m[EntriesKey]; ok && len(m) == 1 {
			v = list
		}
	default:
		return nil, fmt.Errorf("unsupported registry format %q", filepath.Ext(path))
	}

	return normalize(v), nil
}

func normalize(v any) any {
	switch v := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, e := range v {
			out[k] = normalize(e)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(v))
		for k, e := range v {
			out[fmt.Sprint(k)] = normalize(e)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = normalize(e)
		}
		return out
	case []map[string]any:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = normalize(e)
		}
		return out
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i
		}
		if f, err := v.Float64(); err == nil {
			return f
		}
		return v.String()
	case int:
		return int64(v)
	case int32:
		return int64(v)
	case uint64:
		if v > math.MaxInt64 {
			return float64(v)
		}
		return int64(v)
	case float32:
		return float64(v)
	case time.Time:
		if v.Hour() == 0 && v.Minute() == 0 && v.Second() == 0 && v.Nanosecond() == 0 {
			return v.Format(constants.DateLayout)
		}
		return v.Format(time.RFC3339)
	}
	return v
}

// TypeName names the type of a generic value the way registry authors know it.
func TypeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case int64:
		return "integer"
	case float64:
		return "number"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	}
	return fmt.Sprintf("%T", v)
}
