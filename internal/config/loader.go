package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix starts every environment override.
const EnvPrefix = "VECFS_"

// maxFileBytes bounds the config file read.
const maxFileBytes int64 = 1 << 20

// configDirs lists the directories a config file may live in.
func configDirs() ([]string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolving home directory: %w", err)
	}
	return []string{filepath.Join(home, ".config", "vecfs"), "/etc/vecfs"}, nil
}

// DefaultPath returns ~/.config/vecfs/config.yaml.
func DefaultPath() (string, error) {
	dirs, err := configDirs()
	if err != nil {
		return "", err
	}
	return filepath.Join(dirs[0], "config.yaml"), nil
}

// LoadWithFile builds a Config in three layers: defaults, then the YAML
// file at configPath (skipped when absent), then VECFS_* environment
// variables. An empty configPath means DefaultPath.
//
// The file must sit under ~/.config/vecfs/ or /etc/vecfs/, be owner-only
// (0600 or 0400) and no larger than 1MB.
//
// Environment names lose the prefix and split once into section and field:
//
//	VECFS_SERVER_PORT                 -> server.port
//	VECFS_STORAGE_VALUE_LOG_FILE_SIZE -> storage.value_log_file_size
func LoadWithFile(configPath string) (*Config, error) {
	if configPath == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		configPath = p
	}
	if err := checkLocation(configPath); err != nil {
		return nil, fmt.Errorf("config path validation failed: %w", err)
	}

	k := koanf.New(".")
	raw, err := readGuarded(configPath)
	if err != nil {
		return nil, err
	}
	if raw != nil {
		if err := k.Load(rawbytes.Provider(raw), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", configPath, err)
		}
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}

	cfg := new(Config)
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	applyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// envKey turns VECFS_SECTION_FIELD_NAME into section.field_name.
func envKey(name string) string {
	key := strings.ToLower(name[len(EnvPrefix):])
	if i := strings.IndexByte(key, '_'); i > 0 {
		return key[:i] + "." + key[i+1:]
	}
	return key
}

// checkLocation resolves symlinks where possible and requires the result
// to be inside one of configDirs.
func checkLocation(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", path, err)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		abs = resolved
	}
	dirs, err := configDirs()
	if err != nil {
		return err
	}
	for _, dir := range dirs {
		rel, err := filepath.Rel(dir, abs)
		if err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return nil
		}
	}
	return errors.New("config file must be in ~/.config/vecfs/ or /etc/vecfs/")
}

// readGuarded reads path after checking mode and size on the open handle.
// A missing file yields nil, nil.
func readGuarded(path string) ([]byte, error) {
	f, err := os.Open(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("opening config file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat config file: %w", err)
	}
	if perm := info.Mode().Perm(); runtime.GOOS != "windows" && perm != 0o600 && perm != 0o400 {
		return nil, fmt.Errorf("insecure config file permissions: %v (expected 0600 or 0400)", perm)
	}
	if info.Size() > maxFileBytes {
		return nil, fmt.Errorf("config file is %d bytes, limit %d", info.Size(), maxFileBytes)
	}
	return io.ReadAll(io.LimitReader(f, maxFileBytes))
}

// ExpandPath replaces a leading ~ with the user's home directory.
func ExpandPath(p string) (string, error) {
	rest, ok := strings.CutPrefix(p, "~")
	if !ok || (rest != "" && rest[0] != '/') {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, rest), nil
}
