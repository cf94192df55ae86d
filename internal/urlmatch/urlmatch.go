// FocusGuard - Challenge-Based Website Blocking Engine
// Copyright 2026 FocusGuard Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/focusguard/focusguard

// Package urlmatch canonicalizes URLs and tests membership against a set
// of blocked URL fragments.
package urlmatch

import "strings"

// internalSchemes are browser-internal URL schemes that must never be
// redirected (settings pages, extension pages, devtools).
var internalSchemes = []string{
	"chrome://",
	"chrome-extension://",
	"edge://",
	"about:",
	"moz-extension://",
	"devtools://",
	"brave://",
	"vivaldi://",
}

// Normalize canonicalizes a URL for block-set comparison:
//
//  1. Strip a leading http:// or https:// (case-insensitive)
//  2. Strip a leading www.
//  3. Strip exactly one trailing /
//  4. Lowercase the result
//
// Empty input normalizes to "". Normalize is idempotent except for inputs
// with repeated trailing slashes: "exactly one trailing /" is the wire
// contract, so "example.com//" loses one slash per pass. Do not "fix"
// either side — the stripping rule is compatibility-critical.
func Normalize(rawURL string) string {
	if rawURL == "" {
		return ""
	}

	u := rawURL

	lower := strings.ToLower(u)
	switch {
	case strings.HasPrefix(lower, "https://"):
		u = u[len("https://"):]
	case strings.HasPrefix(lower, "http://"):
		u = u[len("http://"):]
	}

	if strings.HasPrefix(strings.ToLower(u), "www.") {
		u = u[len("www."):]
	}

	u = strings.TrimSuffix(u, "/")

	return strings.ToLower(u)
}

// IsInternal reports whether rawURL uses a browser-internal scheme.
func IsInternal(rawURL string) bool {
	lower := strings.ToLower(rawURL)
	for _, scheme := range internalSchemes {
		if strings.HasPrefix(lower, scheme) {
			return true
		}
	}

	return false
}

// BlockedSet is a set of normalized URL fragments currently blocked. It is
// a derived cache: rebuilt from scratch from the challenge list plus the
// current time, replaced wholesale, and never the source of truth.
type BlockedSet map[string]struct{}

// NewBlockedSet builds a set from already-normalized fragments.
func NewBlockedSet(fragments ...string) BlockedSet {
	s := make(BlockedSet, len(fragments))
	for _, f := range fragments {
		s[f] = struct{}{}
	}

	return s
}

// Add inserts a normalized fragment.
func (s BlockedSet) Add(fragment string) {
	s[fragment] = struct{}{}
}

// Len returns the number of blocked fragments.
func (s BlockedSet) Len() int {
	return len(s)
}

// Fragments returns the blocked fragments in unspecified order.
func (s BlockedSet) Fragments() []string {
	out := make([]string, 0, len(s))
	for f := range s {
		out = append(out, f)
	}

	return out
}

// IsBlocked reports whether rawURL matches the set. The URL is normalized,
// then tested for an exact match, a prefix match, or a substring match
// against every entry.
//
// The substring fallback is intentionally broad: a navigation whose
// normalized form contains a blocked fragment anywhere is blocked, not only
// domain/path prefixes. Blocking "youtube.com" blocks
// "youtube.com/watch?v=..." but can also incidentally match an unrelated
// URL embedding that string. This matches the upstream clients exactly and
// is a known over-blocking trade-off; do not tighten it here.
func (s BlockedSet) IsBlocked(rawURL string) bool {
	if rawURL == "" {
		return false
	}

	normalized := Normalize(rawURL)

	if _, ok := s[normalized]; ok {
		return true
	}

	for fragment := range s {
		if normalized == fragment ||
			strings.HasPrefix(normalized, fragment) ||
			strings.Contains(normalized, fragment) {
			return true
		}
	}

	return false
}
