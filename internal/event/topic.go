package event

import "strings"

// Topic is a hierarchical event type using dot notation.
type Topic string

// Wildcards for subscription patterns.
const (
	WildcardSingle = "*"
	WildcardMulti  = "**"
	Separator      = "."
)

// String returns the topic as a string.
func (t Topic) String() string {
	return string(t)
}

// Segments returns the topic split by the separator.
func (t Topic) Segments() []string {
	if t == "" {
		return nil
	}
	return strings.Split(string(t), Separator)
}

// Valid reports whether the topic is non-empty and has no empty segments.
func (t Topic) Valid() bool {
	if t == "" {
		return false
	}
	for _, s := range t.Segments() {
		if s == "" {
			return false
		}
	}
	return true
}

// Matches reports whether t matches pattern.
func (t Topic) Matches(pattern Topic) bool {
	return matchSegments(t.Segments(), pattern.Segments())
}

func matchSegments(topic, pattern []string) bool {
	for i, p := range pattern {
		if p == WildcardMulti {
			return true
		}
		if i >= len(topic) {
			return false
		}
		if p != WildcardSingle && p != topic[i] {
			return false
		}
	}
	return len(topic) == len(pattern)
}
