package documents

import (
	"bytes"

	"github.com/ledongthuc/pdf"
)

// pdfPageCount returns the number of pages in a PDF, or 0 when the file
// cannot be parsed. Inspection never fails an upload.
func pdfPageCount(data []byte) (n int) {
	defer func() {
		// The parser panics on some malformed inputs.
		if recover() != nil {
			n = 0
		}
	}()
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0
	}
	return r.NumPage()
}

func inspectPageCount(contentType string, data []byte) int {
	if normalizeContentType(contentType) != "application/pdf" {
		return 0
	}
	return pdfPageCount(data)
}
