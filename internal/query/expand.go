package query

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// DefaultMaxExpansionDepth bounds the number of rewrite passes before
// expansion gives up. Recursive compound-tag definitions are caught by this
// guard rather than detected up front.
const DefaultMaxExpansionDepth = 20

// metatagValuePattern mirrors the value syntax accepted by the lexer. Values
// are masked during expansion so compound-tag labels inside them are never
// rewritten.
var metatagValuePattern = regexp.MustCompile(
	`(\w+\s*:\s*(?:plain|regex)\s*:\s*)("(?:\\.|[^"\\])*"|[\w.*?\\-]+)`)

// Expand rewrites whole-word occurrences of compound-tag labels in text to
// their parenthesized definitions, iterating until a pass changes nothing.
// defs maps label to definition. maxDepth caps the number of passes; zero or
// negative selects DefaultMaxExpansionDepth. If the limit is hit before a
// fixed point, Expand fails with a RecursionLimitError.
func Expand(text string, defs map[string]string, maxDepth int) (string, error) {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxExpansionDepth
	}
	if len(defs) == 0 {
		return text, nil
	}

	text, masked := maskMetatagValues(text)

	// Deterministic rewrite order regardless of map iteration.
	labels := make([]string, 0, len(defs))
	for label := range defs {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	type rule struct {
		pattern     *regexp.Regexp
		replacement string
	}
	rules := make([]rule, len(labels))
	for i, label := range labels {
		rules[i] = rule{
			pattern:     regexp.MustCompile(`\b` + regexp.QuoteMeta(label) + `\b`),
			replacement: "(" + defs[label] + ")",
		}
	}

	for depth := 0; ; depth++ {
		if depth >= maxDepth {
			return "", &RecursionLimitError{Limit: maxDepth}
		}
		previous := text
		for _, r := range rules {
			text = r.pattern.ReplaceAllLiteralString(text, r.replacement)
		}
		if text == previous {
			break
		}
	}

	return unmaskMetatagValues(text, masked), nil
}

// maskMetatagValues replaces every metatag value with a placeholder and
// returns the placeholder table. A value like "vacation" must survive
// expansion even when a compound tag of the same name exists.
func maskMetatagValues(text string) (string, []string) {
	var masked []string
	text = metatagValuePattern.ReplaceAllStringFunc(text, func(m string) string {
		sub := metatagValuePattern.FindStringSubmatch(m)
		masked = append(masked, sub[2])
		return sub[1] + fmt.Sprintf("%%%%%d%%%%", len(masked))
	})
	return text, masked
}

func unmaskMetatagValues(text string, masked []string) string {
	for i, value := range masked {
		text = strings.Replace(text, fmt.Sprintf("%%%%%d%%%%", i+1), value, 1)
	}
	return text
}
