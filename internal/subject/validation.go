package subject

// validation.go holds the field rules of a Subject.
//
// Validation happens at two levels:
//  1. Field predicates (IsValidName, IsValidPassportNumber, ...) for live
//     per-field feedback in a form, before a full construction is attempted.
//  2. The construction contract used by New and Parse: parse failures are
//     always collected, then the field checks run in a fixed order and stop at
//     the first failing field.

import (
	"strings"
	"time"
	"unicode/utf8"
)

// Reason names a single validation failure.
type Reason string

const (
	ReasonPassportFormat Reason = "invalid passport number format"
	ReasonBirthdayFormat Reason = "invalid birth date format"
	ReasonName           Reason = "incorrect first name"
	ReasonSurname        Reason = "incorrect surname"
	ReasonPatronymic     Reason = "incorrect patronymic"
	ReasonPassportRange  Reason = "incorrect passport number range"
	ReasonBirthday       Reason = "incorrect birth date"
)

// Alphabet bounds for name parts. The range is contiguous and deliberately
// excludes Ё and ё, which sit outside it.
const (
	alphabetFirst = 'А' // U+0410
	alphabetLast  = 'я' // U+044F
)

// ValidationError is returned when a Subject cannot be constructed.
// It always carries at least one reason.
type ValidationError struct {
	reasons []Reason
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.reasons))
	for i, r := range e.reasons {
		parts[i] = string(r)
	}
	return "invalid subject: " + strings.Join(parts, "; ")
}

// Reasons returns a copy of the failure reasons in the order they were found.
func (e *ValidationError) Reasons() []Reason {
	out := make([]Reason, len(e.reasons))
	copy(out, e.reasons)
	return out
}

// Has reports whether reason is among the failures.
func (e *ValidationError) Has(reason Reason) bool {
	for _, r := range e.reasons {
		if r == reason {
			return true
		}
	}
	return false
}

// IsValidName reports whether name is a valid first name.
func IsValidName(name string) bool {
	return isValidNamePart(name)
}

// IsValidSurname reports whether surname is a valid surname.
func IsValidSurname(surname string) bool {
	return isValidNamePart(surname)
}

// IsValidPatronymic reports whether patronymic is valid. Empty is valid.
func IsValidPatronymic(patronymic string) bool {
	if patronymic == "" {
		return true
	}
	return isValidNamePart(patronymic)
}

// IsValidPassportNumber reports whether s parses to a passport number inside
// [MinPassportNumber, MaxPassportNumber].
func IsValidPassportNumber(s string) bool {
	n, err := ParsePassportNumber(s)
	if err != nil {
		return false
	}
	return inPassportRange(n)
}

// IsValidBirthday reports whether the date of birthday is after BirthdayFloor.
func IsValidBirthday(birthday time.Time) bool {
	return dateOf(birthday).After(BirthdayFloor)
}

// firstFieldFailure runs the field checks in order and returns the reason of
// the first one that fails. Later fields are not inspected.
func firstFieldFailure(name, surname, patronymic string, number int64, birthday time.Time) (Reason, bool) {
	switch {
	case !IsValidName(name):
		return ReasonName, false
	case !IsValidSurname(surname):
		return ReasonSurname, false
	case !IsValidPatronymic(patronymic):
		return ReasonPatronymic, false
	case !inPassportRange(number):
		return ReasonPassportRange, false
	case !birthday.After(BirthdayFloor):
		return ReasonBirthday, false
	}
	return "", true
}

func inPassportRange(n int64) bool {
	return n >= MinPassportNumber && n <= MaxPassportNumber
}

// isValidNamePart checks length (1..MaxNameLength characters) and alphabet.
func isValidNamePart(value string) bool {
	n := utf8.RuneCountInString(value)
	if n < 1 || n > MaxNameLength {
		return false
	}
	for _, r := range value {
		if r == '-' || r == ' ' {
			continue
		}
		if r < alphabetFirst || r > alphabetLast {
			return false
		}
	}
	return true
}

// CheckFields runs every field predicate of in independently and returns the
// failing fields keyed by their Input JSON name. Unlike Parse it does not stop
// at the first failure, which suits live feedback on a form.
func CheckFields(in Input) map[string]Reason {
	failed := make(map[string]Reason)

	if !IsValidName(in.Name) {
		failed["name"] = ReasonName
	}
	if !IsValidSurname(in.Surname) {
		failed["surname"] = ReasonSurname
	}
	if !IsValidPatronymic(in.Patronymic) {
		failed["patronymic"] = ReasonPatronymic
	}

	if _, err := ParsePassportNumber(in.PassportNumber); err != nil {
		failed["passport_number"] = ReasonPassportFormat
	} else if !IsValidPassportNumber(in.PassportNumber) {
		failed["passport_number"] = ReasonPassportRange
	}

	if b, err := ParseBirthday(in.Birthday); err != nil {
		failed["birthday"] = ReasonBirthdayFormat
	} else if !IsValidBirthday(b) {
		failed["birthday"] = ReasonBirthday
	}

	return failed
}
