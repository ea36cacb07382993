// Package docx provides read and rewrite access to the ZIP container
// underlying a Word document. An Archive exposes the named XML parts of an
// uploaded template; Rewrite produces a new container in which only the
// caller-modified parts are re-encoded and every other member keeps its
// original bytes and header metadata.
package docx

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/flate"
)

// DocumentPart is the main body part every valid document must contain.
const DocumentPart = "word/document.xml"

// Archive is an opened document container. It is immutable once opened and
// safe for concurrent reads.
type Archive struct {
	raw   []byte
	zr    *zip.Reader
	parts map[string]*zip.File
}

// Open parses data as a document archive. It fails if the bytes are not a
// valid ZIP container or the container has no word/document.xml.
func Open(data []byte) (*Archive, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("not a valid document archive: %w", err)
	}

	a := &Archive{
		raw:   data,
		zr:    zr,
		parts: make(map[string]*zip.File, len(zr.File)),
	}
	for _, f := range zr.File {
		a.parts[f.Name] = f
	}

	if _, ok := a.parts[DocumentPart]; !ok {
		return nil, fmt.Errorf("not a valid document archive: missing %s", DocumentPart)
	}

	return a, nil
}

// Part returns the decompressed bytes of the named part. The second return
// value is false when the part does not exist in the container.
func (a *Archive) Part(name string) ([]byte, bool, error) {
	f, ok := a.parts[name]
	if !ok {
		return nil, false, nil
	}

	rc, err := f.Open()
	if err != nil {
		return nil, true, fmt.Errorf("open part %s: %w", name, err)
	}
	defer rc.Close()

	content, err := io.ReadAll(rc)
	if err != nil {
		return nil, true, fmt.Errorf("read part %s: %w", name, err)
	}
	return content, true, nil
}

// HasPart reports whether the named part exists in the container.
func (a *Archive) HasPart(name string) bool {
	_, ok := a.parts[name]
	return ok
}

// PartNames returns the member names in archive order.
func (a *Archive) PartNames() []string {
	names := make([]string, 0, len(a.zr.File))
	for _, f := range a.zr.File {
		names = append(names, f.Name)
	}
	return names
}

// Size returns the byte length of the original archive.
func (a *Archive) Size() int {
	return len(a.raw)
}

// Rewrite serializes a new archive. Members named in modified are written
// with the replacement bytes; every other member is copied through with its
// original header so styles, media and relationships survive untouched.
// Output members are deflate-compressed.
func (a *Archive) Rewrite(modified map[string][]byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	zw.RegisterCompressor(zip.Deflate, func(w io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(w, flate.DefaultCompression)
	})

	for _, f := range a.zr.File {
		content, replaced := modified[f.Name]
		if !replaced {
			rc, err := f.Open()
			if err != nil {
				zw.Close()
				return nil, fmt.Errorf("open part %s: %w", f.Name, err)
			}
			content, err = io.ReadAll(rc)
			rc.Close()
			if err != nil {
				zw.Close()
				return nil, fmt.Errorf("read part %s: %w", f.Name, err)
			}
		}

		// Reuse the original header so member metadata (timestamps, extra
		// fields) carries over; sizes and CRC are recomputed on write.
		header := f.FileHeader
		w, err := zw.CreateHeader(&header)
		if err != nil {
			zw.Close()
			return nil, fmt.Errorf("write header for %s: %w", f.Name, err)
		}
		if _, err := w.Write(content); err != nil {
			zw.Close()
			return nil, fmt.Errorf("write part %s: %w", f.Name, err)
		}
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("finalize archive: %w", err)
	}
	return buf.Bytes(), nil
}
