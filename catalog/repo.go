package catalog

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrMalformedRepoURL is returned when a repository URL cannot be
// reduced to its canonical owner/name form.
var ErrMalformedRepoURL = errors.New("malformed repository url")

// RepoKey canonicalizes a repository URL to scheme, host, and the first
// two path segments, so deep links into the same repository collapse to
// one key. Returns ErrMalformedRepoURL when the URL has no host or
// fewer than two path segments.
func RepoKey(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse repository url %q: %w", raw, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("%w: %q", ErrMalformedRepoURL, raw)
	}

	segments := splitPath(u.Path)
	if len(segments) < 2 {
		return "", fmt.Errorf("%w: %q", ErrMalformedRepoURL, raw)
	}

	return u.Scheme + "://" + u.Host + "/" + segments[0] + "/" + segments[1], nil
}

// RepoSlug returns the "owner/name" part of a canonical repository key.
func RepoSlug(key string) string {
	u, err := url.Parse(key)
	if err != nil {
		return key
	}
	segments := splitPath(u.Path)
	if len(segments) < 2 {
		return strings.Trim(u.Path, "/")
	}
	return segments[0] + "/" + segments[1]
}

// PackageName extracts a package name from a registry URL. Registry
// pages nest the name under a "project" segment; otherwise the last
// path segment is taken.
func PackageName(raw string) (string, bool) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", false
	}
	segments := splitPath(u.Path)
	if len(segments) == 0 {
		return "", false
	}
	for i, seg := range segments {
		if seg == "project" && i+1 < len(segments) {
			return segments[i+1], true
		}
	}
	return segments[len(segments)-1], true
}

func splitPath(path string) []string {
	var segments []string
	for _, seg := range strings.Split(path, "/") {
		if seg != "" {
			segments = append(segments, seg)
		}
	}
	return segments
}
