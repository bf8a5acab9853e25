package textutil

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	bracketTagPattern = regexp.MustCompile(`[\[(][^\])]*[\])]`)
	separatorReplacer = strings.NewReplacer("_", " ", ".", " ")
	spacePattern      = regexp.MustCompile(`\s+`)
	leadingIndex      = regexp.MustCompile(`^\d{1,3}\s*[-.]?\s+`)
)

// CleanName strips bracketed tags, separator characters, and leading track
// numbers from a file stem and collapses whitespace.
func CleanName(stem string) string {
	cleaned := bracketTagPattern.ReplaceAllString(stem, " ")
	cleaned = separatorReplacer.Replace(cleaned)
	cleaned = spacePattern.ReplaceAllString(cleaned, " ")
	cleaned = strings.TrimSpace(cleaned)
	if stripped := leadingIndex.ReplaceAllString(cleaned, ""); stripped != "" {
		cleaned = stripped
	}
	return strings.Trim(cleaned, " -")
}

// SplitAuthorTitle splits the "Author - Title" naming convention. Without a
// separator the whole value is the title.
func SplitAuthorTitle(value string) (author, title string) {
	author, title, found := strings.Cut(value, " - ")
	if !found {
		return "", strings.TrimSpace(value)
	}
	author = strings.TrimSpace(author)
	title = strings.TrimSpace(title)
	if title == "" {
		return "", author
	}
	return author, title
}

// TitleCase capitalizes each word of value.
func TitleCase(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	return cases.Title(language.Und).String(value)
}
