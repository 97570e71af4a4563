package secrets

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	gitleaksconfig "github.com/zricethezav/gitleaks/v8/config"
	"github.com/zricethezav/gitleaks/v8/detect"
	"go.uber.org/zap"
)

var redactionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "vecfs",
	Subsystem: "secrets",
	Name:      "redactions_total",
	Help:      "Secrets redacted from ingested text, by gitleaks rule",
}, []string{"rule"})

// Finding is one redacted secret. The secret itself is never kept.
type Finding struct {
	RuleID      string `json:"rule_id"`
	Description string `json:"description"`
	// Line is as reported by gitleaks.
	Line int `json:"line"`
}

// Result is scrubbed text plus what was removed from it.
type Result struct {
	Text     string
	Findings []Finding
}

// Redacted reports whether anything was replaced.
func (r Result) Redacted() bool {
	return len(r.Findings) > 0
}

// Scrubber redacts secrets. It is safe for concurrent use.
type Scrubber struct {
	rules  gitleaksconfig.Config
	allow  []*regexp.Regexp
	logger *zap.Logger
}

// New loads the gitleaks default rules. allow may be nil.
func New(allow *Allowlist, logger *zap.Logger) (*Scrubber, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	patterns, err := allow.compile()
	if err != nil {
		return nil, err
	}
	d, err := detect.NewDetectorDefaultConfig()
	if err != nil {
		return nil, fmt.Errorf("loading gitleaks rules: %w", err)
	}
	return &Scrubber{rules: d.Config, allow: patterns, logger: logger}, nil
}

// Scrub returns text with every detected secret replaced by a marker.
func (s *Scrubber) Scrub(text string) Result {
	if text == "" {
		return Result{Text: text}
	}
	// A detector accumulates findings, so each call gets its own.
	found := detect.NewDetector(s.rules).DetectString(text)
	if len(found) == 0 {
		return Result{Text: text}
	}

	type match struct {
		secret string
		rule   string
	}
	var (
		matches  []match
		findings []Finding
	)
	for _, f := range found {
		secret := f.Secret
		if secret == "" {
			secret = f.Match
		}
		if secret == "" || allowed(s.allow, secret) {
			continue
		}
		matches = append(matches, match{secret: secret, rule: f.RuleID})
		findings = append(findings, Finding{RuleID: f.RuleID, Description: f.Description, Line: f.StartLine})
		redactionsTotal.WithLabelValues(f.RuleID).Inc()
	}
	if len(matches) == 0 {
		return Result{Text: text}
	}

	// Longest first so a secret containing another is replaced whole.
	sort.SliceStable(matches, func(i, j int) bool {
		return len(matches[i].secret) > len(matches[j].secret)
	})
	out := text
	for _, m := range matches {
		out = strings.ReplaceAll(out, m.secret, "[REDACTED:"+m.rule+"]")
	}
	s.logger.Debug("secrets redacted", zap.Int("findings", len(findings)))
	return Result{Text: out, Findings: findings}
}

func allowed(patterns []*regexp.Regexp, secret string) bool {
	for _, re := range patterns {
		if re.MatchString(secret) {
			return true
		}
	}
	return false
}
