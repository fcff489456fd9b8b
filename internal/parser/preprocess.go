package parser

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// PageSet is the preprocessed form of one upload: the full document plus
// one in-memory single-page PDF per page. It is owned by a single pipeline
// run and released with it; nothing here is ever persisted.
type PageSet struct {
	Raw       []byte
	Pages     [][]byte
	PageCount int
}

// Preprocess buffers the upload while enforcing the size cap, sniffs the
// content type, and splits the document into single-page PDFs for the
// vision strategy. The cap is enforced during the read, so an oversized
// stream is rejected before it is fully buffered.
func Preprocess(r io.Reader, declaredSize, maxSize int64) (*PageSet, error) {
	if declaredSize > maxSize {
		return nil, &ValidationError{Reason: fmt.Sprintf("declared size %d exceeds the %d byte limit", declaredSize, maxSize)}
	}

	raw, err := readCapped(r, maxSize)
	if err != nil {
		return nil, err
	}
	if !sniffPDF(raw) {
		return nil, &ValidationError{Reason: "upload is not a PDF document"}
	}

	conf := pdfConfiguration()
	rs := bytes.NewReader(raw)
	pageCount, err := api.PageCount(rs, conf)
	if err != nil {
		return nil, &ValidationError{Reason: fmt.Sprintf("unreadable PDF: %v", err)}
	}
	if pageCount == 0 {
		return nil, &ValidationError{Reason: "document has no pages"}
	}

	pages := make([][]byte, 0, pageCount)
	for i := 1; i <= pageCount; i++ {
		if _, err := rs.Seek(0, io.SeekStart); err != nil {
			return nil, fmt.Errorf("rewinding upload buffer: %w", err)
		}
		var buf bytes.Buffer
		if err := api.Trim(rs, &buf, []string{strconv.Itoa(i)}, conf); err != nil {
			return nil, &ValidationError{Reason: fmt.Sprintf("extracting page %d: %v", i, err)}
		}
		pages = append(pages, buf.Bytes())
	}

	return &PageSet{Raw: raw, Pages: pages, PageCount: pageCount}, nil
}

// readCapped buffers at most max bytes and fails as soon as the stream
// proves longer, bounding memory for oversized uploads.
func readCapped(r io.Reader, max int64) ([]byte, error) {
	var buf bytes.Buffer
	n, err := io.Copy(&buf, io.LimitReader(r, max+1))
	if err != nil {
		return nil, fmt.Errorf("reading upload: %w", err)
	}
	if n > max {
		return nil, &ValidationError{Reason: fmt.Sprintf("upload exceeds the %d byte limit", max)}
	}
	return buf.Bytes(), nil
}

// sniffPDF checks the actual content, regardless of the declared extension
// or Content-Type.
func sniffPDF(b []byte) bool {
	if bytes.HasPrefix(b, []byte("%PDF-")) {
		return true
	}
	return http.DetectContentType(b) == "application/pdf"
}

func pdfConfiguration() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}
