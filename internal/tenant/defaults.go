package tenant

import (
	"os"
	"regexp"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
)

// DefaultID returns the tenant used in single-tenant mode: the git
// user.name from the global config, else $USER, else "local".
func DefaultID() string {
	return IDForPath("")
}

// IDForPath prefers the GitHub owner of the origin remote of the repo at
// repoPath, then falls back to DefaultID's sources.
func IDForPath(repoPath string) string {
	if repoPath != "" {
		if owner := githubOwner(repoPath); owner != "" {
			return sanitize(owner)
		}
	}
	if cfg, err := config.LoadConfig(config.GlobalScope); err == nil && cfg.User.Name != "" {
		return sanitize(strings.ReplaceAll(cfg.User.Name, " ", "_"))
	}
	if user := os.Getenv("USER"); user != "" {
		return sanitize(user)
	}
	return "local"
}

func githubOwner(repoPath string) string {
	repo, err := git.PlainOpen(repoPath)
	if err != nil {
		return ""
	}
	remote, err := repo.Remote("origin")
	if err != nil {
		return ""
	}
	urls := remote.Config().URLs
	if len(urls) == 0 {
		return ""
	}
	return parseGitHubOwner(urls[0])
}

// Matches git@github.com:owner/repo and https://github.com/owner/repo.
var githubRemote = regexp.MustCompile(`github\.com[:/]([^/]+)/`)

func parseGitHubOwner(url string) string {
	if m := githubRemote.FindStringSubmatch(url); len(m) > 1 {
		return m[1]
	}
	return ""
}

// sanitize lowercases s and keeps only characters Validate accepts.
func sanitize(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '_' || r == '-' || r == '.':
			if b.Len() > 0 {
				b.WriteRune(r)
			}
		}
	}
	id := b.String()
	if len(id) > MaxIDLength {
		id = id[:MaxIDLength]
	}
	if id == "" {
		return "local"
	}
	return id
}
