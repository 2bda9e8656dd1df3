// Package export writes subjects to the export file.
//
// The export layout differs from the store layout:
//
//	surname;name;patronymic;DD/MM/YYYY;passport_serial;passport_full
//
// where passport_serial is the first four digits of the ten digit passport and
// passport_full is the serial, a hyphen and the full ten digit passport:
//
//	0101123456 -> 0101;0101-0101123456
package export

import (
	"bufio"
	"cmp"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/JonMunkholm/subjects/internal/apperrors"
	"github.com/JonMunkholm/subjects/internal/subject"
)

const (
	// Delimiter separates fields within an exported line.
	Delimiter = ";"

	// BirthdayLayout is the birthday rendering used in exports.
	BirthdayLayout = "02/01/2006"

	// SerialDigits is the length of the passport serial prefix.
	SerialDigits = 4
)

// Sort returns a copy of subjects ordered by surname, name, patronymic and
// birthday. Ties keep their input order. The input slice is not modified.
func Sort(subjects []subject.Subject) []subject.Subject {
	sorted := slices.Clone(subjects)
	slices.SortStableFunc(sorted, compare)
	return sorted
}

func compare(a, b subject.Subject) int {
	return cmp.Or(
		strings.Compare(a.Surname(), b.Surname()),
		strings.Compare(a.Name(), b.Name()),
		strings.Compare(a.Patronymic(), b.Patronymic()),
		strings.Compare(a.BirthdayString(), b.BirthdayString()),
	)
}

// PassportSerial returns the first SerialDigits digits of the passport.
func PassportSerial(s subject.Subject) string {
	return s.Passport()[:SerialDigits]
}

// PassportFull returns the serial, a hyphen and the full passport.
func PassportFull(s subject.Subject) string {
	return PassportSerial(s) + "-" + s.Passport()
}

// Fields returns the exported field values of s in column order.
func Fields(s subject.Subject) []string {
	return []string{
		s.Surname(),
		s.Name(),
		s.Patronymic(),
		s.Birthday().Format(BirthdayLayout),
		PassportSerial(s),
		PassportFull(s),
	}
}

// FormatLine renders s as an exported line, without the terminator.
func FormatLine(s subject.Subject) string {
	return strings.Join(Fields(s), Delimiter)
}

// WriteTo writes one newline-terminated line per subject to w, in the given
// order.
func WriteTo(w io.Writer, subjects []subject.Subject) error {
	bw := bufio.NewWriter(w)
	for _, s := range subjects {
		if _, err := bw.WriteString(FormatLine(s) + "\n"); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// Write replaces the file at path with subjects in the given order.
func Write(path string, subjects []subject.Subject) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return apperrors.IO("create", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = apperrors.IO("close", path, cerr)
		}
	}()

	if err := WriteTo(f, subjects); err != nil {
		return apperrors.IO("write", path, err)
	}
	return nil
}

// Export replaces the file at path with subjects in sorted order.
func Export(path string, subjects []subject.Subject) error {
	return Write(path, Sort(subjects))
}
