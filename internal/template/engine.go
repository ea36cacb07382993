// Package template implements the placeholder pipeline: tag extraction over
// the raw XML of a document's text parts, paragraph-scoped joining of tags a
// word processor split across formatting runs, and literal substitution of
// caller-supplied values.
//
// Extraction is a regex scan over raw markup, not a parser. A tag whose
// opening braces, name and closing braces land in non-adjacent XML elements
// of different paragraphs is undetectable; that boundary is accepted rather
// than papered over with a full OOXML parser.
package template

import (
	"fmt"

	"github.com/cespare/xxhash/v2"

	"github.com/docfill/engine/internal/docx"
	"github.com/docfill/engine/pkg/types"
)

// CandidateParts are the archive members scanned for tags and rewritten
// during rendering. Parts absent from a given document are skipped.
var CandidateParts = []string{
	"word/document.xml",
	"word/header1.xml",
	"word/header2.xml",
	"word/header3.xml",
	"word/footer1.xml",
	"word/footer2.xml",
	"word/footer3.xml",
}

// Archive is the narrow container contract the pipeline depends on.
// internal/docx provides the concrete implementation.
type Archive interface {
	// Part returns the decoded bytes of a named part; the bool is false
	// when the part does not exist.
	Part(name string) ([]byte, bool, error)
	// Rewrite serializes a new archive with the given parts replaced and
	// everything else carried over byte-for-byte.
	Rewrite(modified map[string][]byte) ([]byte, error)
}

// ArchiveReader opens uploaded bytes as an Archive.
type ArchiveReader interface {
	Open(data []byte) (Archive, error)
}

// TagRenderer substitutes mapping values into an opened archive and returns
// the serialized result.
type TagRenderer interface {
	Render(a Archive, delims Delimiters, values types.ValueMapping) ([]byte, error)
}

// DocxReader adapts internal/docx to the ArchiveReader contract. Open
// failures are classified as bad input since the bytes came straight from
// the client upload.
type DocxReader struct{}

func (DocxReader) Open(data []byte) (Archive, error) {
	a, err := docx.Open(data)
	if err != nil {
		return nil, &BadInputError{Reason: "unreadable document", Err: err}
	}
	return a, nil
}

// Fingerprint returns the 16-hex-char xxhash64 of the uploaded bytes, used
// for response metadata and event correlation only.
func Fingerprint(data []byte) string {
	return fmt.Sprintf("%016x", xxhash.Sum64(data))
}
