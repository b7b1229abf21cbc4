package object

import (
	"io"
	"math"
)

// ProgressFunc receives the cumulative bytes transferred and the expected total.
type ProgressFunc func(transferred, total int64)

// Percent converts a transfer count into a 0-100 value.
func Percent(transferred, total int64) int {
	if total <= 0 {
		return 0
	}
	p := int(math.Round(float64(transferred) / float64(total) * 100))
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

// ProgressReader reports bytes read from the wrapped reader.
type ProgressReader struct {
	r     io.Reader
	total int64
	n     int64
	fn    ProgressFunc
}

// NewProgressReader wraps r. A nil fn only counts bytes.
func NewProgressReader(r io.Reader, total int64, fn ProgressFunc) *ProgressReader {
	return &ProgressReader{r: r, total: total, fn: fn}
}

func (p *ProgressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.n += int64(n)
		if p.fn != nil {
			p.fn(p.n, p.total)
		}
	}
	return n, err
}

// ProgressSink turns Read calls of a given length into progress callbacks.
// Some SDKs (minio) report upload progress by reading from a caller-supplied reader.
type ProgressSink struct {
	total int64
	n     int64
	fn    ProgressFunc
}

// NewProgressSink builds a sink reporting to fn.
func NewProgressSink(total int64, fn ProgressFunc) *ProgressSink {
	return &ProgressSink{total: total, fn: fn}
}

func (s *ProgressSink) Read(b []byte) (int, error) {
	s.n += int64(len(b))
	if s.fn != nil {
		s.fn(s.n, s.total)
	}
	return len(b), nil
}
