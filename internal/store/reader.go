package store

// reader.go provides the readers that sit between the store file and the
// line scanner in GetAll.
//
// The store file is plain text edited by this program, but it can be opened
// and re-saved by other tools. The scan path therefore tolerates:
//
//   - a UTF-8 byte order mark written by Windows editors (bomSkippingReader);
//   - invalid UTF-8 sequences, replaced with '?' so that the affected line
//     fails validation instead of aborting the scan (utf8Sanitizer).
//
// countingReader tracks the bytes consumed for the scan summary log.

import (
	"bytes"
	"io"
	"unicode/utf8"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// bomSkippingReader drops a leading UTF-8 BOM.
type bomSkippingReader struct {
	r       io.Reader
	checked bool
	head    []byte // bytes read while checking for the BOM, not yet returned
}

func newBOMSkippingReader(r io.Reader) *bomSkippingReader {
	return &bomSkippingReader{r: r}
}

func (b *bomSkippingReader) Read(p []byte) (int, error) {
	if !b.checked {
		b.checked = true

		buf := make([]byte, len(utf8BOM))
		n, err := io.ReadFull(b.r, buf)
		if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
			return 0, err
		}
		if n == len(utf8BOM) && bytes.Equal(buf, utf8BOM) {
			b.head = nil
		} else {
			b.head = buf[:n]
		}
	}

	if len(b.head) > 0 {
		n := copy(p, b.head)
		b.head = b.head[n:]
		return n, nil
	}

	return b.r.Read(p)
}

// utf8Sanitizer replaces invalid UTF-8 bytes with '?' on the fly.
// Multi-byte sequences split across reads are carried over to the next read.
type utf8Sanitizer struct {
	r       io.Reader
	buf     []byte // read buffer; carried bytes are copied to its front
	pending []byte // incomplete trailing sequence from the last read
	ready   []byte // sanitized bytes not yet returned, aliases buf
	err     error  // underlying error, returned once ready is drained
}

func newUTF8Sanitizer(r io.Reader) *utf8Sanitizer {
	return &utf8Sanitizer{
		r:       r,
		buf:     make([]byte, sanitizerBufSize),
		pending: make([]byte, 0, utf8.UTFMax),
	}
}

const (
	sanitizerBufSize = 4096
	maxEmptyReads    = 100
)

func (s *utf8Sanitizer) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	for i := 0; len(s.ready) == 0 && s.err == nil; i++ {
		if i == maxEmptyReads {
			return 0, io.ErrNoProgress
		}
		s.fill()
	}
	if len(s.ready) == 0 {
		return 0, s.err
	}

	n := copy(p, s.ready)
	s.ready = s.ready[n:]
	return n, nil
}

// fill reads the next block behind the carried bytes and sanitizes it.
func (s *utf8Sanitizer) fill() {
	carried := copy(s.buf, s.pending)
	s.pending = s.pending[:0]

	n, err := s.r.Read(s.buf[carried:])
	data := s.buf[:carried+n]
	s.ready = data[:s.sanitize(data, err == io.EOF)]
	s.err = err
}

// sanitize rewrites data in place and returns the number of bytes to hand out.
// When atEOF is false an incomplete trailing sequence is kept for the next read.
func (s *utf8Sanitizer) sanitize(data []byte, atEOF bool) int {
	if utf8.Valid(data) {
		return len(data)
	}

	write := 0
	for read := 0; read < len(data); {
		if !atEOF && !utf8.FullRune(data[read:]) {
			s.pending = append(s.pending, data[read:]...)
			return write
		}

		r, size := utf8.DecodeRune(data[read:])
		if r == utf8.RuneError && size == 1 {
			data[write] = '?'
			write++
			read++
			continue
		}

		copy(data[write:], data[read:read+size])
		write += size
		read += size
	}

	return write
}

// countingReader counts bytes read.
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

// newScanReader wraps r for line scanning. The order matters: the BOM must be
// stripped before sanitization would rewrite its bytes.
func newScanReader(r io.Reader) *countingReader {
	return &countingReader{r: newUTF8Sanitizer(newBOMSkippingReader(r))}
}
