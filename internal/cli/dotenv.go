package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/ini.v1"
)

// LoadDotEnv exports the KEY=VALUE pairs of the dotenv file at path into the process environment.
//
// Variables already present in the environment are left untouched.
// A missing file is not an error.
func LoadDotEnv(l *slog.Logger, path string) error {
	if path == "" {
		return nil
	}

	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		l.Debug("No dotenv file", "path", path)
		return nil
	}

	f, err := ini.LoadSources(ini.LoadOptions{SpaceBeforeInlineComment: true}, path)
	if err != nil {
		return fmt.Errorf("could not parse dotenv file %s: %v", path, err)
	}

	for _, key := range f.Section(ini.DefaultSection).Keys() {
		name := strings.TrimSpace(strings.TrimPrefix(key.Name(), "export "))
		if name == "" {
			continue
		}
		if _, set := os.LookupEnv(name); set {
			l.Debug("Environment variable already set, ignoring dotenv value", "name", name)
			continue
		}
		if err := os.Setenv(name, key.String()); err != nil {
			return fmt.Errorf("could not export %s: %v", name, err)
		}
	}

	l.Info("Loaded dotenv file", "path", path)
	return nil
}
