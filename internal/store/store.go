// Package store persists subjects to a flat, semicolon-delimited text file.
//
// The file holds one subject per line in the canonical field order:
//
//	name;surname;patronymic;passport_number;birthday
//
// The store is append-only. A FileStore keeps its file open from Open until
// Close and is meant to be owned by a single registry for the process
// lifetime; concurrent writers from other processes are not supported.
package store

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/JonMunkholm/subjects/internal/apperrors"
	"github.com/JonMunkholm/subjects/internal/subject"
)

const (
	// Delimiter separates fields within a stored line.
	Delimiter = ";"

	// FieldCount is the number of fields a stored line must have.
	FieldCount = 5

	// maxLineSize bounds a single stored line, terminator included. Longer
	// lines are skipped. Valid lines are far shorter.
	maxLineSize = 64 * 1024
)

// ErrClosed is returned by every operation on a closed store.
var ErrClosed = apperrors.New(apperrors.CodeClosed, "store is closed")

// ParseError describes a stored line with the right field count that does not
// form a valid subject. Such lines are skipped by GetAll.
type ParseError struct {
	Line int    // 1-based line number
	Raw  string // the line as read, without the line terminator
	Err  error  // the construction error, usually a *subject.ValidationError
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: can't convert %q: %v", e.Line, e.Raw, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match a ParseError against the CodeParse category.
func (e *ParseError) Is(target error) bool {
	t, ok := target.(*apperrors.Error)
	return ok && t.Code == apperrors.CodeParse
}

// Option configures a FileStore.
type Option func(*FileStore)

// WithLogger sets the logger used for diagnostics. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *FileStore) {
		s.logger = logger
	}
}

// WithSync makes every flush also fsync the file.
func WithSync(enabled bool) Option {
	return func(s *FileStore) {
		s.fsync = enabled
	}
}

// WithSkipHook registers fn to be called for every line skipped by GetAll
// because it failed validation.
func WithSkipHook(fn func(ParseError)) Option {
	return func(s *FileStore) {
		s.onSkip = fn
	}
}

// FileStore is the file-backed subject store.
type FileStore struct {
	mu     sync.Mutex
	path   string
	file   *os.File
	w      *bufio.Writer
	logger *slog.Logger
	fsync  bool
	onSkip func(ParseError)
	closed bool
}

// Open opens the store file at path for reading and appending, creating it if
// it does not exist. A failure is returned as an IO error and leaves nothing
// open.
func Open(path string, opts ...Option) (*FileStore, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_APPEND|os.O_CREATE, 0o644)
	if err != nil {
		return nil, apperrors.IO("open", path, err)
	}

	s := &FileStore{
		path:   path,
		file:   f,
		w:      bufio.NewWriter(f),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.logger.Debug("store opened", "path", path)
	return s, nil
}

// Path returns the file path the store was opened with.
func (s *FileStore) Path() string {
	return s.path
}

// IsStoreFile reports whether path names the open store file, through any
// link or alternate spelling. A path that cannot be stat'ed is not the store
// file.
func (s *FileStore) IsStoreFile(path string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false, ErrClosed
	}
	own, err := s.file.Stat()
	if err != nil {
		return false, apperrors.IO("stat", s.path, err)
	}
	other, err := os.Stat(path)
	if err != nil {
		return false, nil
	}
	return os.SameFile(own, other), nil
}

// GetAll reads every stored line from the beginning of the file and returns
// the subjects in file order.
//
// Lines that do not split into exactly FieldCount fields are skipped silently.
// Lines with FieldCount fields that fail validation are skipped and reported
// as a ParseError diagnostic. GetAll can be called repeatedly; each call
// rescans the whole file.
func (s *FileStore) GetAll() ([]subject.Subject, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrClosed
	}
	if err := s.w.Flush(); err != nil {
		return nil, apperrors.IO("flush", s.path, err)
	}

	info, err := s.file.Stat()
	if err != nil {
		return nil, apperrors.IO("stat", s.path, err)
	}

	// A section reader reads at explicit offsets, so the scan neither depends
	// on nor disturbs the append position of the shared handle.
	src := newScanReader(io.NewSectionReader(s.file, 0, info.Size()))
	lines := bufio.NewReaderSize(src, 4096)

	var (
		result  []subject.Subject
		lineNum int
		skipped int
		ignored int
	)
	for {
		raw, tooLong, err := readLine(lines, maxLineSize)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, apperrors.IO("read", s.path, err)
		}
		lineNum++

		if tooLong {
			ignored++
			s.logger.Warn("store: skipping over-long line",
				"path", s.path,
				"line", lineNum,
				"limit", maxLineSize,
			)
			continue
		}

		line := string(raw)
		fields := strings.Split(line, Delimiter)
		if len(fields) != FieldCount {
			ignored++
			continue
		}

		subj, err := subject.Parse(fields[0], fields[1], fields[2], fields[3], fields[4])
		if err != nil {
			skipped++
			s.reportSkip(ParseError{Line: lineNum, Raw: line, Err: err})
			continue
		}
		result = append(result, subj)
	}

	s.logger.Info("store scanned",
		"path", s.path,
		"bytes", src.n,
		"lines", lineNum,
		"subjects", len(result),
		"skipped", skipped,
		"ignored", ignored,
	)

	return result, nil
}

// readLine returns the next line of r without its LF or CRLF terminator.
// A line longer than limit bytes is read through to its end and reported as
// tooLong with no content. The last line needs no terminator. io.EOF is
// returned only when no bytes are left.
func readLine(r *bufio.Reader, limit int) (line []byte, tooLong bool, err error) {
	var buf []byte
	read := 0
	for {
		chunk, err := r.ReadSlice('\n')
		read += len(chunk)
		if !tooLong {
			if len(buf)+len(chunk) > limit {
				tooLong = true
				buf = nil
			} else {
				buf = append(buf, chunk...)
			}
		}

		switch {
		case errors.Is(err, bufio.ErrBufferFull):
			continue
		case errors.Is(err, io.EOF):
			if read == 0 {
				return nil, false, io.EOF
			}
		case err != nil:
			return nil, false, err
		}

		if tooLong {
			return nil, true, nil
		}
		buf = bytes.TrimSuffix(buf, []byte("\n"))
		buf = bytes.TrimSuffix(buf, []byte("\r"))
		return buf, false, nil
	}
}

func (s *FileStore) reportSkip(perr ParseError) {
	s.logger.Warn("store: skipping unreadable line",
		"path", s.path,
		"line", perr.Line,
		"raw", perr.Raw,
		"error", perr.Err,
	)
	if s.onSkip != nil {
		s.onSkip(perr)
	}
}

// Put appends one subject and flushes it to the file before returning.
func (s *FileStore) Put(subj subject.Subject) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if err := s.writeLine(subj); err != nil {
		return err
	}
	return s.flush()
}

// PutAll appends a batch of subjects with a single flush after the batch.
// If a write fails part way, the lines written so far may still reach the file.
func (s *FileStore) PutAll(subjects []subject.Subject) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	for _, subj := range subjects {
		if err := s.writeLine(subj); err != nil {
			return err
		}
	}
	return s.flush()
}

// Close flushes pending writes and releases the file. The handle is released
// even when the flush fails. Calling Close again returns ErrClosed.
func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	s.closed = true

	flushErr := s.flush()
	if err := s.file.Close(); err != nil {
		return apperrors.IO("close", s.path, err)
	}
	if flushErr != nil {
		return flushErr
	}

	s.logger.Debug("store closed", "path", s.path)
	return nil
}

// FormatLine renders a subject as a stored line, without the terminator.
func FormatLine(subj subject.Subject) string {
	return strings.Join(subj.Fields(), Delimiter)
}

func (s *FileStore) writeLine(subj subject.Subject) error {
	if _, err := s.w.WriteString(FormatLine(subj) + "\n"); err != nil {
		return apperrors.IO("write", s.path, err)
	}
	return nil
}

func (s *FileStore) flush() error {
	if err := s.w.Flush(); err != nil {
		return apperrors.IO("flush", s.path, err)
	}
	if s.fsync {
		if err := s.file.Sync(); err != nil {
			return apperrors.IO("sync", s.path, err)
		}
	}
	return nil
}
