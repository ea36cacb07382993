package template

import (
	"fmt"
	"regexp"
	"sort"
)

// tagPattern is the tag grammar: double braces around one or more name
// characters. Matching runs over raw part bytes so tags a word processor
// split across adjacent runs inside one paragraph still surface once the
// run markup between the braces carries no brace characters itself.
var tagPattern = regexp.MustCompile(`\{\{([A-Za-z0-9_]+)\}\}`)

// ExtractTags scans the candidate parts of an archive and returns the
// unique tag names sorted ascending by code point. Tag names are
// case-sensitive. Returns ErrNoTags when no candidate part holds a tag.
func ExtractTags(a Archive) ([]string, error) {
	seen := make(map[string]struct{})

	for _, name := range CandidateParts {
		content, ok, err := a.Part(name)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", name, err)
		}
		if !ok {
			continue
		}

		// Join split runs before scanning so a tag fragmented inside one
		// paragraph is seen whole, same reconciliation the renderer applies.
		joined := joinSplitRuns(string(content), DefaultDelimiters)
		for _, m := range tagPattern.FindAllStringSubmatch(joined, -1) {
			seen[m[1]] = struct{}{}
		}
	}

	if len(seen) == 0 {
		return nil, ErrNoTags
	}

	tags := make([]string, 0, len(seen))
	for tag := range seen {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags, nil
}
