package service

import (
	"regexp"
	"strings"
)

var (
	slugSpaces  = regexp.MustCompile(`\s+`)
	slugInvalid = regexp.MustCompile(`[^a-z0-9-]`)
	slugPattern = regexp.MustCompile(`^[a-z0-9-]+$`)
)

// Slugify lowercases name, turns whitespace runs into hyphens and drops
// everything outside [a-z0-9-].
func Slugify(name string) string {
	s := strings.ToLower(name)
	s = slugSpaces.ReplaceAllString(s, "-")
	return slugInvalid.ReplaceAllString(s, "")
}

func ValidSlug(slug string) bool {
	return slugPattern.MatchString(slug)
}
