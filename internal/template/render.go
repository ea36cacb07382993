package template

import (
	"errors"
	"regexp"
	"strings"

	"github.com/docfill/engine/pkg/types"
)

// Delimiters configures the tag markers around placeholder names. The zero
// value is rejected at render time so single-brace engine defaults can never
// sneak in silently.
type Delimiters struct {
	Open  string
	Close string
}

// DefaultDelimiters is the double-brace convention documents use.
var DefaultDelimiters = Delimiters{Open: "{{", Close: "}}"}

var (
	paragraphPattern = regexp.MustCompile(`(?s)<w:p(?:>| [^>]*>).*?</w:p>`)
	runPattern       = regexp.MustCompile(`(?s)<w:r(?:>| [^>]*>).*?</w:r>`)
	textPattern      = regexp.MustCompile(`(?s)<w:t(?: [^>]*)?(?:/>|>(.*?)</w:t>)`)
)

// Renderer performs run joining, literal substitution and archive
// re-serialization. Stateless; one value serves all requests.
type Renderer struct{}

// Render substitutes every tag occurrence in the candidate parts with its
// mapped value and serializes a new archive. Only parts that actually
// changed are rewritten; everything else passes through byte-for-byte.
// Missing mapping keys substitute the empty string, unknown keys are
// ignored.
func (Renderer) Render(a Archive, delims Delimiters, values types.ValueMapping) ([]byte, error) {
	if delims.Open == "" || delims.Close == "" {
		return nil, &RenderError{Stage: "configure", Err: errors.New("tag delimiters must be set explicitly")}
	}

	pattern, err := compileTagPattern(delims)
	if err != nil {
		return nil, &RenderError{Stage: "configure", Err: err}
	}

	modified := make(map[string][]byte)
	for _, name := range CandidateParts {
		content, ok, readErr := a.Part(name)
		if readErr != nil {
			return nil, &RenderError{Stage: "read " + name, Err: readErr}
		}
		if !ok {
			continue
		}

		original := string(content)
		joined := joinSplitRuns(original, delims)
		substituted := substituteTags(joined, pattern, delims, values)
		if substituted != original {
			modified[name] = []byte(substituted)
		}
	}

	result, err := a.Rewrite(modified)
	if err != nil {
		return nil, &RenderError{Stage: "serialize", Err: err}
	}
	return result, nil
}

// compileTagPattern builds the substitution regex for a delimiter pair.
func compileTagPattern(delims Delimiters) (*regexp.Regexp, error) {
	if delims == DefaultDelimiters {
		return tagPattern, nil
	}
	return regexp.Compile(regexp.QuoteMeta(delims.Open) + `([A-Za-z0-9_]+)` + regexp.QuoteMeta(delims.Close))
}

// substituteTags replaces every tag occurrence with its XML-escaped value.
func substituteTags(content string, pattern *regexp.Regexp, delims Delimiters, values types.ValueMapping) string {
	return pattern.ReplaceAllStringFunc(content, func(m string) string {
		name := m[len(delims.Open) : len(m)-len(delims.Close)]
		return escapeValue(values[name])
	})
}

// joinSplitRuns reconciles tags a word processor fragmented across several
// runs inside one paragraph. Whenever a run's text leaves a tag open, the
// texts of the following runs are folded into it until the delimiters
// balance; the emptied runs are dropped and the first run keeps its
// formatting. Tags split across paragraph boundaries stay fragmented.
func joinSplitRuns(content string, delims Delimiters) string {
	return paragraphPattern.ReplaceAllStringFunc(content, func(paragraph string) string {
		return joinParagraphRuns(paragraph, delims)
	})
}

func joinParagraphRuns(paragraph string, delims Delimiters) string {
	runSpans := runPattern.FindAllStringIndex(paragraph, -1)
	if len(runSpans) < 2 {
		return paragraph
	}

	texts := make([]string, len(runSpans))
	for i, span := range runSpans {
		texts[i] = runText(paragraph[span[0]:span[1]])
	}

	var b strings.Builder
	pos := 0
	for i := 0; i < len(runSpans); i++ {
		if !tagLeftOpen(texts[i], delims) {
			continue
		}

		merged := texts[i]
		j := i + 1
		for j < len(runSpans) && tagLeftOpen(merged, delims) {
			merged += texts[j]
			j++
		}
		if j == i+1 {
			continue
		}
		// Commit only when the join produced a finished tag. A stray brace
		// that never closes must not collapse the paragraph's run formatting.
		if tagLeftOpen(merged, delims) || !containsCompleteTag(merged, delims) {
			continue
		}

		// Everything before this run, then the run with the merged text,
		// then skip ahead past the absorbed runs.
		b.WriteString(paragraph[pos:runSpans[i][0]])
		b.WriteString(replaceRunText(paragraph[runSpans[i][0]:runSpans[i][1]], merged))
		pos = runSpans[j-1][1]
		i = j - 1
	}

	if pos == 0 {
		return paragraph
	}
	b.WriteString(paragraph[pos:])
	return b.String()
}

// tagLeftOpen reports whether text ends inside a tag: an opening delimiter
// without its close, or a trailing partial opener (the split can land
// between the two brace characters).
func tagLeftOpen(text string, delims Delimiters) bool {
	openIdx := strings.LastIndex(text, delims.Open)
	closeIdx := strings.LastIndex(text, delims.Close)
	if openIdx > closeIdx {
		return true
	}
	for i := 1; i < len(delims.Open); i++ {
		if strings.HasSuffix(text, delims.Open[:i]) {
			return true
		}
	}
	return false
}

// containsCompleteTag reports whether text holds an opening delimiter with
// a closing one somewhere after it.
func containsCompleteTag(text string, delims Delimiters) bool {
	openIdx := strings.Index(text, delims.Open)
	if openIdx < 0 {
		return false
	}
	return strings.Contains(text[openIdx+len(delims.Open):], delims.Close)
}

// runText extracts the concatenated w:t content of one run.
func runText(run string) string {
	var b strings.Builder
	for _, m := range textPattern.FindAllStringSubmatch(run, -1) {
		b.WriteString(m[1])
	}
	return b.String()
}

// replaceRunText rewrites the first w:t element of a run to hold text,
// preserving significant whitespace, and drops any further text elements.
func replaceRunText(run, text string) string {
	spans := textPattern.FindAllStringIndex(run, -1)
	if len(spans) == 0 {
		return run
	}

	var b strings.Builder
	b.WriteString(run[:spans[0][0]])
	b.WriteString(`<w:t xml:space="preserve">`)
	b.WriteString(text)
	b.WriteString(`</w:t>`)
	pos := spans[0][1]
	for _, span := range spans[1:] {
		b.WriteString(run[pos:span[0]])
		pos = span[1]
	}
	b.WriteString(run[pos:])
	return b.String()
}

// escapeValue makes an arbitrary replacement value safe to embed in the
// document markup. XML-special characters are entity-escaped and newlines
// become explicit line breaks so multi-line values survive.
func escapeValue(v string) string {
	var b strings.Builder
	for _, r := range v {
		switch r {
		case '&':
			b.WriteString("&amp;")
		case '<':
			b.WriteString("&lt;")
		case '>':
			b.WriteString("&gt;")
		case '"':
			b.WriteString("&quot;")
		case '\'':
			b.WriteString("&apos;")
		case '\n':
			b.WriteString(`</w:t><w:br/><w:t xml:space="preserve">`)
		case '\r':
			// CRLF collapses to the w:br emitted for the LF
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
