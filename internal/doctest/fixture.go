// Package doctest builds minimal in-memory Word document archives for tests.
// The fixtures carry just enough OOXML structure (content types, package
// relationships, main body) to pass archive validation.
package doctest

import (
	"archive/zip"
	"bytes"
	"fmt"
	"sort"
	"strings"
)

const contentTypesXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
  <Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
  <Default Extension="xml" ContentType="application/xml"/>
  <Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
</Types>`

const relsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
  <Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>
</Relationships>`

// BuildArchive zips the given members verbatim. Member order is name-sorted
// so fixtures are deterministic.
func BuildArchive(members map[string]string) []byte {
	names := make([]string, 0, len(members))
	for name := range members {
		names = append(names, name)
	}
	sort.Strings(names)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range names {
		w, err := zw.Create(name)
		if err != nil {
			panic(err)
		}
		if _, err := w.Write([]byte(members[name])); err != nil {
			panic(err)
		}
	}
	if err := zw.Close(); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// BuildDocx builds a document whose main body holds one paragraph per
// bodyText entry, each as a single run. Extra parts (headers, footers,
// media) are added verbatim under their given names.
func BuildDocx(bodyTexts []string, extraParts map[string]string) []byte {
	members := map[string]string{
		"[Content_Types].xml": contentTypesXML,
		"_rels/.rels":         relsXML,
		"word/document.xml":   DocumentXML(bodyTexts...),
	}
	for name, content := range extraParts {
		members[name] = content
	}
	return BuildArchive(members)
}

// DocumentXML renders a main body part with one single-run paragraph per text.
func DocumentXML(texts ...string) string {
	paragraphs := make([]string, len(texts))
	for i, text := range texts {
		paragraphs[i] = Paragraph(Run(text))
	}
	return DocumentWithParagraphs(paragraphs...)
}

// DocumentWithParagraphs renders a main body part from pre-built paragraph
// markup, for fixtures that need runs split the way an editor splits them.
func DocumentWithParagraphs(paragraphs ...string) string {
	return `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>` + strings.Join(paragraphs, "") + `</w:body>
</w:document>`
}

// HeaderXML renders a header part with a single paragraph.
func HeaderXML(text string) string {
	return `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:hdr xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">` +
		Paragraph(Run(text)) + `</w:hdr>`
}

// FooterXML renders a footer part with a single paragraph.
func FooterXML(text string) string {
	return `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:ftr xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">` +
		Paragraph(Run(text)) + `</w:ftr>`
}

// Paragraph wraps pre-rendered run markup in a w:p element.
func Paragraph(runs ...string) string {
	return "<w:p>" + strings.Join(runs, "") + "</w:p>"
}

// Run renders a single w:r element holding text.
func Run(text string) string {
	return fmt.Sprintf(`<w:r><w:t xml:space="preserve">%s</w:t></w:r>`, text)
}

// StyledRun renders a run carrying run properties, the shape a word
// processor produces when it splits text during formatting.
func StyledRun(props, text string) string {
	return fmt.Sprintf(`<w:r><w:rPr>%s</w:rPr><w:t xml:space="preserve">%s</w:t></w:r>`, props, text)
}
