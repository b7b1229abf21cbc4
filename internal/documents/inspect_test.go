package documents

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPDFPageCount(t *testing.T) {
	assert.Equal(t, 1, pdfPageCount(minimalPDF(1)))
	assert.Equal(t, 4, pdfPageCount(minimalPDF(4)))
	assert.Zero(t, pdfPageCount([]byte("%PDF-1.4 truncated")))
	assert.Zero(t, pdfPageCount(nil))
}

func TestInspectPageCountSkipsImages(t *testing.T) {
	assert.Zero(t, inspectPageCount("image/png", minimalPDF(2)))
	assert.Equal(t, 2, inspectPageCount("application/pdf", minimalPDF(2)))
}
