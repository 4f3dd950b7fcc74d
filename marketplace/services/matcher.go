package services

import "strings"

// Matcher decides whether a user's post title refers to a price feed item.
// It is an interface so the containment rule below can be swapped for an
// exact-key or fuzzy strategy without touching the report assembly.
type Matcher interface {
	Match(postTitle, feedItemName string) bool
}

// SubstringMatcher matches when either name contains the other,
// case-insensitively. "Tomato Sale" matches the feed item "Tomato".
type SubstringMatcher struct{}

func (SubstringMatcher) Match(postTitle, feedItemName string) bool {
	title := strings.ToLower(postTitle)
	item := strings.ToLower(feedItemName)
	return strings.Contains(item, title) || strings.Contains(title, item)
}
