package secrets

import (
	"errors"
	"fmt"
	"os"
	"regexp"

	"github.com/BurntSushi/toml"
)

// ErrInvalidAllowlist is returned for unreadable allowlist files and bad
// patterns.
var ErrInvalidAllowlist = errors.New("invalid allowlist")

// Allowlist holds content patterns that are never redacted.
type Allowlist struct {
	Regexes []string
}

// LoadAllowlist reads the [allowlist] table of a gitleaks-style TOML file.
// A missing file yields an empty allowlist.
func LoadAllowlist(path string) (*Allowlist, error) {
	var doc struct {
		Allowlist struct {
			Regexes []string `toml:"regexes"`
		} `toml:"allowlist"`
	}
	if _, err := toml.DecodeFile(path, &doc); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Allowlist{}, nil
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidAllowlist, path, err)
	}
	al := &Allowlist{Regexes: doc.Allowlist.Regexes}
	if _, err := al.compile(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return al, nil
}

func (a *Allowlist) compile() ([]*regexp.Regexp, error) {
	if a == nil {
		return nil, nil
	}
	out := make([]*regexp.Regexp, 0, len(a.Regexes))
	for _, p := range a.Regexes {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("%w: pattern %q: %v", ErrInvalidAllowlist, p, err)
		}
		out = append(out, re)
	}
	return out, nil
}
