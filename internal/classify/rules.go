package classify

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Patterns holds the raw pattern strings organized by category. The zero
// value is not usable; start from DefaultPatterns or a YAML file.
type Patterns struct {
	DestructiveVerbs []string `yaml:"destructive_verbs"`
	SecretPatterns   []string `yaml:"secret_patterns"`
	WideScope        []string `yaml:"wide_scope"`
	ProtectedPaths   []string `yaml:"protected_paths"`
}

// DefaultPatterns are the built-in detection patterns. They are
// intentionally broad: a miss here fails closed at the unknown tier, it
// does not grant permissiveness.
var DefaultPatterns = Patterns{
	DestructiveVerbs: []string{
		"rm -rf", "rm -fr", "delete", "drop table", "drop database",
		"truncate", "force-push", "push --force", "push -f",
		"overwrite", "mkfs", "dd if=", "shred", "reset --hard",
	},
	SecretPatterns: []string{
		`AKIA[0-9A-Z]{16}`,
		`-----BEGIN( RSA| EC| OPENSSH)? PRIVATE KEY-----`,
		`ghp_[A-Za-z0-9]{36}`,
		`xox[bpars]-[A-Za-z0-9-]{10,}`,
		`(?i)(api[_-]?key|secret|token|password)\s*[:=]\s*\S+`,
	},
	WideScope: []string{
		"-r ", "-rf", "--recursive", "/*", "/**", " *", "all tables",
	},
	ProtectedPaths: []string{
		"/", "/etc", "/usr", "/var", "/home", "~", ".git",
	},
}

// Ruleset is a compiled pattern set ready for matching.
type Ruleset struct {
	destructive []string
	secrets     []*regexp.Regexp
	wideScope   []string
	protected   map[string]bool
	raw         Patterns
	hash        string
}

// Compile builds a Ruleset from raw patterns. Secret patterns that fail to
// compile are rejected outright rather than silently dropped: a missing
// detector widens the permissive surface.
func Compile(p Patterns) (*Ruleset, error) {
	rs := &Ruleset{raw: p, protected: make(map[string]bool)}

	for _, v := range p.DestructiveVerbs {
		rs.destructive = append(rs.destructive, strings.ToLower(v))
	}
	for _, s := range p.SecretPatterns {
		re, err := regexp.Compile(s)
		if err != nil {
			return nil, fmt.Errorf("classify: bad secret pattern %q: %w", s, err)
		}
		rs.secrets = append(rs.secrets, re)
	}
	for _, w := range p.WideScope {
		rs.wideScope = append(rs.wideScope, strings.ToLower(w))
	}
	for _, pp := range p.ProtectedPaths {
		rs.protected[pp] = true
	}

	rs.hash = hashPatterns(p)
	return rs, nil
}

// Default returns the compiled built-in ruleset.
func Default() *Ruleset {
	rs, err := Compile(DefaultPatterns)
	if err != nil {
		// DefaultPatterns is covered by tests; this cannot fire outside
		// a broken build.
		panic(err)
	}
	return rs
}

// Load reads a ruleset from a YAML file. Falls back to the defaults if the
// file does not exist. Empty categories in the file inherit the defaults:
// an operator can tighten the set but a sparse file never loosens it.
func Load(path string) (*Ruleset, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}

	var p Patterns
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("classify: parse ruleset %s: %w", path, err)
	}

	if len(p.DestructiveVerbs) == 0 {
		p.DestructiveVerbs = DefaultPatterns.DestructiveVerbs
	} else {
		p.DestructiveVerbs = append(p.DestructiveVerbs, DefaultPatterns.DestructiveVerbs...)
	}
	if len(p.SecretPatterns) == 0 {
		p.SecretPatterns = DefaultPatterns.SecretPatterns
	}
	if len(p.WideScope) == 0 {
		p.WideScope = DefaultPatterns.WideScope
	}
	if len(p.ProtectedPaths) == 0 {
		p.ProtectedPaths = DefaultPatterns.ProtectedPaths
	}

	return Compile(p)
}

// Hash returns a stable identifier for the compiled ruleset, recorded in
// audit entries so a verifier can tie decisions to the rules in force.
func (rs *Ruleset) Hash() string { return rs.hash }
