package script

import "regexp"

// rule is a single regular-expression rewrite.
type rule struct {
	name    string
	pattern *regexp.Regexp
	replace string
}

func applyRules(text string, rules []rule) string {
	for _, r := range rules {
		text = r.pattern.ReplaceAllString(text, r.replace)
	}
	return text
}

var (
	fencedMarkupPattern = regexp.MustCompile("(?i)```\\s*(?:xml)?\\s*(<speak[\\s\\S]+?)```")
	bareMarkupPattern   = regexp.MustCompile(`(?i)(<speak[\s\S]+?</speak>)`)
)

// markupRules reduce a <speak> document to plain text. Whitespace rules
// never cross a newline so paragraph breaks survive as blank lines.
var markupRules = []rule{
	{name: "speak root", pattern: regexp.MustCompile(`(?i)</?speak[^>]*>`), replace: " "},
	{name: "paragraph end", pattern: regexp.MustCompile(`(?i)</p>`), replace: "\n\n"},
	{name: "tags", pattern: regexp.MustCompile(`<[^>]+>`), replace: " "},
	{name: "inline whitespace", pattern: regexp.MustCompile(`[ \t]+`), replace: " "},
	{name: "trailing space", pattern: regexp.MustCompile(`[ \t]+\n`), replace: "\n"},
	{name: "leading space", pattern: regexp.MustCompile(`\n[ \t]+`), replace: "\n"},
	{name: "blank runs", pattern: regexp.MustCompile(`\n{3,}`), replace: "\n\n"},
}

// markdownRules strip the markdown subset scripts use: fenced and inline
// code, links, emphasis, headings, list bullets and stray inline tags.
var markdownRules = []rule{
	{name: "fenced code", pattern: regexp.MustCompile("```[\\s\\S]*?```"), replace: "\n"},
	{name: "inline code", pattern: regexp.MustCompile("`([^`]+)`"), replace: "$1"},
	{name: "links", pattern: regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`), replace: "$1"},
	{name: "emphasis", pattern: regexp.MustCompile(`[*_]{1,3}([^*_]+)[*_]{1,3}`), replace: "$1"},
	{name: "headings", pattern: regexp.MustCompile(`(?m)^[ \t]{0,3}#+[ \t]*`), replace: ""},
	{name: "bullets", pattern: regexp.MustCompile(`(?m)^[ \t]{0,3}(?:[-*+][ \t]+|\d+\.[ \t]+)`), replace: ""},
	{name: "tags", pattern: regexp.MustCompile(`<[^>]+>`), replace: " "},
}

var (
	paragraphSplitPattern = regexp.MustCompile(`\n\s*\n`)
	inlineSpacePattern    = regexp.MustCompile(`[ \t]+`)
)
