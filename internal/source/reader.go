package source

import (
	"io"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// decodeReader strips a leading byte order mark and replaces invalid UTF-8
// with U+FFFD. A UTF-16 BOM switches decoding to UTF-16.
func decodeReader(r io.Reader) io.Reader {
	return transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
}

// limitedReader counts bytes read and fails with errTooLarge once more
// than max bytes arrive. Unlike io.LimitReader it distinguishes a body
// that ends exactly at the cap from one that runs past it.
type limitedReader struct {
	r     io.Reader
	max   int64
	count int64
}

func newLimitedReader(r io.Reader, max int64) *limitedReader {
	return &limitedReader{r: r, max: max}
}

func (l *limitedReader) Read(p []byte) (int, error) {
	if l.count > l.max {
		return 0, errTooLarge
	}
	// Read at most one byte past the cap so an oversize body is detected
	// without buffering it.
	if remaining := l.max - l.count + 1; int64(len(p)) > remaining {
		p = p[:remaining]
	}
	n, err := l.r.Read(p)
	l.count += int64(n)
	if l.count > l.max {
		return n, errTooLarge
	}
	return n, err
}

// BytesRead returns the number of bytes read so far.
func (l *limitedReader) BytesRead() int64 {
	return l.count
}
