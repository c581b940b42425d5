// Package path provides pure functions for working with the hierarchical,
// slash-separated qualified names used throughout the statechart engine
// (e.g. "/Model/A/B"). All functions operate on plain strings and allocate
// only when constructing a result; none of them touch the model graph.
package path

import "strings"

const sep = "/"

// Split returns the non-empty segments of p. Leading slashes and repeated
// separators are ignored, so Split("/a//b/") == Split("a/b") == ["a", "b"].
func Split(p string) []string {
	raw := strings.Split(p, sep)
	segs := make([]string, 0, len(raw))
	for _, s := range raw {
		if s != "" {
			segs = append(segs, s)
		}
	}
	return segs
}

// IsAbsolute reports whether p starts with a separator.
func IsAbsolute(p string) bool {
	return strings.HasPrefix(p, sep)
}

// join rebuilds an absolute path from segments.
func join(segs []string) string {
	if len(segs) == 0 {
		return sep
	}
	return sep + strings.Join(segs, sep)
}

// Normalize collapses repeated separators and resolves "." and ".." segments.
// ".." above the root is clamped to the root rather than erroring. An input
// that normalizes to nothing becomes ".".
func Normalize(p string) string {
	abs := IsAbsolute(p)
	raw := strings.Split(p, sep)
	var out []string
	for _, s := range raw {
		switch s {
		case "", ".":
			continue
		case "..":
			if len(out) > 0 {
				out = out[:len(out)-1]
			}
			// ".." at root (or beyond) is clamped: nothing to pop.
		default:
			out = append(out, s)
		}
	}
	if abs {
		return join(out)
	}
	if len(out) == 0 {
		return "."
	}
	return strings.Join(out, sep)
}

// Join concatenates parts with single separators and normalizes the result.
// A leading separator on any part after the first is absorbed rather than
// treated as resetting the path to an absolute root.
func Join(parts ...string) string {
	if len(parts) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(parts[0])
	for _, p := range parts[1:] {
		if b.Len() > 0 && !strings.HasSuffix(b.String(), sep) {
			b.WriteString(sep)
		}
		b.WriteString(strings.TrimPrefix(p, sep))
	}
	return Normalize(b.String())
}

// IsAncestor reports whether b is strictly below a in the hierarchy. Both
// paths must be absolute; matching honors segment boundaries, so "/A" is not
// an ancestor of "/Abc".
func IsAncestor(a, b string) bool {
	as, bs := Split(a), Split(b)
	if len(as) >= len(bs) {
		return false
	}
	for i, s := range as {
		if bs[i] != s {
			return false
		}
	}
	return true
}

// LCA returns the longest common prefix of a and b that is itself a valid
// absolute path. When a and b share nothing but the root, LCA returns "/".
func LCA(a, b string) string {
	as, bs := Split(a), Split(b)
	n := len(as)
	if len(bs) < n {
		n = len(bs)
	}
	i := 0
	for i < n && as[i] == bs[i] {
		i++
	}
	return join(as[:i])
}

// ResolveRelative resolves target against base, the qualified name of the
// enclosing vertex a relative target is written against. An absolute target
// is normalized and returned as-is; "." resolves to base itself; ".." walks
// to base's parent; any other leading segment is treated as a child name of
// base. Mixed forms like "../sibling/grandchild" are supported because the
// whole result is run back through Normalize.
func ResolveRelative(base, target string) string {
	if IsAbsolute(target) {
		return Normalize(target)
	}
	switch {
	case target == "." || target == "":
		return Normalize(base)
	case target == "..":
		return Normalize(Join(base, ".."))
	default:
		return Normalize(Join(base, target))
	}
}

// Match reports whether path matches a shell-style glob pattern, where "*"
// matches any run of characters (including separators) and "?" matches
// exactly one character. It is used for deferred-event lookups that include
// wildcards; the precomputed deferred table itself only stores literal names.
func Match(pattern, path string) bool {
	return matchHere(pattern, path)
}

// matchHere implements a small non-backtracking-free glob matcher. Go's
// stdlib path.Match deliberately excludes "/" from "*"; the statechart
// engine's contract requires "*" to cross segment boundaries, so this is a
// hand-rolled matcher rather than a stdlib.Match wrapper.
func matchHere(pattern, s string) bool {
	// Classic recursive glob matching (pattern, string) -> bool.
	// Memoization isn't needed: patterns here are short, human-authored
	// event/path globs, not adversarial input.
	if pattern == "" {
		return s == ""
	}
	switch pattern[0] {
	case '*':
		if matchHere(pattern[1:], s) {
			return true
		}
		for i := 0; i < len(s); i++ {
			if matchHere(pattern[1:], s[i+1:]) {
				return true
			}
		}
		return false
	case '?':
		if s == "" {
			return false
		}
		return matchHere(pattern[1:], s[1:])
	default:
		if s == "" || s[0] != pattern[0] {
			return false
		}
		return matchHere(pattern[1:], s[1:])
	}
}
