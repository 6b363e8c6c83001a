package app

import (
	"bytes"
	"io"
	"log/slog"

	"github.com/ledongthuc/pdf"
)

// NoteFile is the uploaded file handle: temp files and in-memory buffers
// both qualify.
type NoteFile interface {
	io.Reader
	io.ReaderAt
	io.Seeker
}

var pdfMagic = []byte("%PDF-")

// validatePDF rejects files without a PDF header and returns the page
// count when the document parses. Page count is best effort; a PDF that
// fails to parse is still accepted with a zero count.
func validatePDF(f NoteFile, size int64) (int, error) {
	header := make([]byte, len(pdfMagic))
	if _, err := io.ReadFull(f, header); err != nil {
		return 0, ErrNotPDF
	}
	if !bytes.Equal(header, pdfMagic) {
		return 0, ErrNotPDF
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return 0, err
	}
	pages := countPages(f, size)
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return 0, err
	}
	return pages, nil
}

func countPages(f io.ReaderAt, size int64) (pages int) {
	defer func() {
		if r := recover(); r != nil {
			slog.Warn("pdf page count failed", "panic", r)
			pages = 0
		}
	}()
	reader, err := pdf.NewReader(f, size)
	if err != nil {
		slog.Warn("pdf page count failed", "error", err)
		return 0
	}
	return reader.NumPage()
}
