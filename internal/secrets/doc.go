// Package secrets redacts credentials from document text before it is
// embedded and stored.
//
// Detection uses the gitleaks default rule set. Each match is replaced by a
// [REDACTED:<rule-id>] marker, so embeddings still see that a credential of
// some kind was there. Allowlist regexes, from config or a gitleaks-style
// TOML file, exempt matches.
package secrets
