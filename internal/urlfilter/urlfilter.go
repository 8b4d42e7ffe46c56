// Package urlfilter implements §4.1: canonicalizing a raw link against a
// base URL and applying allow/deny rules. Normalization resolves relative
// references, drops the fragment, and requires an http/https scheme and
// non-empty host; filtering applies an allowed-domains suffix match, a
// deny-pattern regex, and an optional allow-pattern regex. Never panics:
// unresolvable or non-http links are simply rejected, matching the source's
// parser.extract_links validation and the teacher's resolveRelativeURL /
// subdomain helpers.
package urlfilter

import (
	"net/url"
	"regexp"
	"strings"
)

// Filter canonicalizes and admits links discovered during a crawl.
type Filter struct {
	AllowedDomains  []string
	ExcludePatterns []*regexp.Regexp
	IncludePatterns []*regexp.Regexp
}

// Config is the construction-time configuration, using raw regex strings so
// callers (config loading, CLI flags) don't need to import regexp directly.
type Config struct {
	AllowedDomains  []string
	ExcludePatterns []string
	IncludePatterns []string
}

// New compiles Config into a Filter. Invalid regexes are skipped rather than
// erroring the whole crawl, since a malformed pattern in a large allowlist
// shouldn't abort an otherwise-valid crawl configuration.
func New(cfg Config) *Filter {
	f := &Filter{AllowedDomains: cfg.AllowedDomains}
	for _, p := range cfg.ExcludePatterns {
		if re, err := regexp.Compile(p); err == nil {
			f.ExcludePatterns = append(f.ExcludePatterns, re)
		}
	}
	for _, p := range cfg.IncludePatterns {
		if re, err := regexp.Compile(p); err == nil {
			f.IncludePatterns = append(f.IncludePatterns, re)
		}
	}
	return f
}

// Normalize resolves raw against base, strips the fragment, and requires an
// http/https scheme with a non-empty host. ok is false for anything that
// cannot be resolved into such a URL.
func Normalize(raw string, base *url.URL) (canonical string, ok bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.HasPrefix(raw, "#") || strings.HasPrefix(raw, "javascript:") {
		return "", false
	}

	ref, err := url.Parse(raw)
	if err != nil {
		return "", false
	}

	resolved := ref
	if base != nil {
		resolved = base.ResolveReference(ref)
	}

	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return "", false
	}
	if resolved.Hostname() == "" {
		return "", false
	}

	resolved.Fragment = ""
	return resolved.String(), true
}

// Allowed reports whether canonical passes the domain allowlist and the
// exclude/include regex rules. canonical must already be Normalize'd.
func (f *Filter) Allowed(canonical string) bool {
	u, err := url.Parse(canonical)
	if err != nil {
		return false
	}

	if len(f.AllowedDomains) > 0 && !hostMatchesAny(u.Hostname(), f.AllowedDomains) {
		return false
	}

	for _, re := range f.ExcludePatterns {
		if re.MatchString(canonical) {
			return false
		}
	}

	if len(f.IncludePatterns) > 0 {
		matched := false
		for _, re := range f.IncludePatterns {
			if re.MatchString(canonical) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}

	return true
}

// NormalizeAndFilter combines Normalize and Allowed into the single
// resolve-and-admit step the worker loop performs for every discovered link.
func (f *Filter) NormalizeAndFilter(raw string, base *url.URL) (canonical string, ok bool) {
	canonical, ok = Normalize(raw, base)
	if !ok {
		return "", false
	}
	if !f.Allowed(canonical) {
		return "", false
	}
	return canonical, true
}

// hostMatchesAny reports whether host equals or is a subdomain of any of
// domains (a suffix match on the host component, per §4.1).
func hostMatchesAny(host string, domains []string) bool {
	host = strings.ToLower(host)
	for _, d := range domains {
		d = strings.ToLower(strings.TrimSpace(d))
		if d == "" {
			continue
		}
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}
