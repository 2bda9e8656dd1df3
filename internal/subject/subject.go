// Package subject defines the personal record held by the register.
//
// A Subject can only be obtained through [New] or [Parse], both of which run
// the full validation contract. A Subject value is therefore always valid:
// the store, the registry and the exporter never re-check it.
package subject

import (
	"fmt"
	"strconv"
	"time"
)

const (
	// MaxNameLength is the maximum length, in characters, of a name part.
	MaxNameLength = 25

	// MinPassportNumber is the lowest accepted passport number (0101000001).
	// The first two digits are the region code; the leading zero is dropped
	// here because a 0-prefixed literal is octal.
	MinPassportNumber int64 = 101_000_001

	// MaxPassportNumber is the highest accepted passport number.
	MaxPassportNumber int64 = 9999999999

	// PassportDigits is the width of the canonical passport rendering.
	PassportDigits = 10

	// DateLayout is the canonical birthday rendering used for storage and display.
	DateLayout = "2006-01-02"
)

// BirthdayFloor is the exclusive lower bound for birthdays.
var BirthdayFloor = time.Date(1900, time.January, 1, 0, 0, 0, 0, time.UTC)

// Subject is an immutable, validated personal record.
type Subject struct {
	name           string
	surname        string
	patronymic     string
	passportNumber int64
	birthday       time.Time
}

// Input carries the raw, unvalidated form of a Subject as typed by an operator
// or read from a stored line.
type Input struct {
	Name           string `json:"name"`
	Surname        string `json:"surname"`
	Patronymic     string `json:"patronymic"`
	PassportNumber string `json:"passport_number"`
	Birthday       string `json:"birthday"`
}

// New validates the inputs and returns a Subject. The birthday is already
// parsed; only its date part is kept.
//
// On failure the returned error is a *ValidationError.
func New(name, surname, patronymic, passportNumber string, birthday time.Time) (Subject, error) {
	var reasons []Reason

	number, err := ParsePassportNumber(passportNumber)
	if err != nil {
		reasons = append(reasons, ReasonPassportFormat)
	}

	return build(name, surname, patronymic, number, dateOf(birthday), reasons)
}

// Parse validates string inputs and returns a Subject. Parse failures of the
// passport number and birthday are reported alongside the first failing field
// check; they never stop the remaining checks from running.
//
// On failure the returned error is a *ValidationError.
func Parse(name, surname, patronymic, passportNumber, birthday string) (Subject, error) {
	var reasons []Reason

	number, err := ParsePassportNumber(passportNumber)
	if err != nil {
		reasons = append(reasons, ReasonPassportFormat)
	}

	date, err := ParseBirthday(birthday)
	if err != nil {
		reasons = append(reasons, ReasonBirthdayFormat)
	}

	return build(name, surname, patronymic, number, date, reasons)
}

// FromInput is Parse for an Input value.
func FromInput(in Input) (Subject, error) {
	return Parse(in.Name, in.Surname, in.Patronymic, in.PassportNumber, in.Birthday)
}

func build(name, surname, patronymic string, number int64, birthday time.Time, reasons []Reason) (Subject, error) {
	if reason, ok := firstFieldFailure(name, surname, patronymic, number, birthday); !ok {
		reasons = append(reasons, reason)
	}

	if len(reasons) > 0 {
		return Subject{}, &ValidationError{reasons: reasons}
	}

	return Subject{
		name:           name,
		surname:        surname,
		patronymic:     patronymic,
		passportNumber: number,
		birthday:       birthday,
	}, nil
}

func (s Subject) Name() string { return s.name }

func (s Subject) Surname() string { return s.surname }

func (s Subject) Patronymic() string { return s.patronymic }

func (s Subject) PassportNumber() int64 { return s.passportNumber }

func (s Subject) Birthday() time.Time { return s.birthday }

// Passport returns the canonical zero-padded passport number.
func (s Subject) Passport() string {
	return FormatPassportNumber(s.passportNumber)
}

// BirthdayString returns the birthday in DateLayout.
func (s Subject) BirthdayString() string {
	return s.birthday.Format(DateLayout)
}

// Fields returns the canonical field values in storage order:
// name, surname, patronymic, passport number, birthday.
func (s Subject) Fields() []string {
	return []string{s.name, s.surname, s.patronymic, s.Passport(), s.BirthdayString()}
}

// Input returns the canonical raw form of s. Parsing it yields an equal Subject.
func (s Subject) Input() Input {
	return Input{
		Name:           s.name,
		Surname:        s.surname,
		Patronymic:     s.patronymic,
		PassportNumber: s.Passport(),
		Birthday:       s.BirthdayString(),
	}
}

// Equal reports whether two subjects carry identical field values.
func (s Subject) Equal(other Subject) bool {
	return s.name == other.name &&
		s.surname == other.surname &&
		s.patronymic == other.patronymic &&
		s.passportNumber == other.passportNumber &&
		s.birthday.Equal(other.birthday)
}

// String renders the subject for display.
func (s Subject) String() string {
	return fmt.Sprintf("%s %s %s, passport: %s, birth: %s",
		s.surname, s.name, s.patronymic, s.Passport(), s.BirthdayString())
}

// FormatPassportNumber renders n as a zero-padded PassportDigits wide decimal.
func FormatPassportNumber(n int64) string {
	return fmt.Sprintf("%0*d", PassportDigits, n)
}

// ParsePassportNumber parses a decimal passport number. Leading zeros are
// allowed; signs, spaces and separators are not.
func ParsePassportNumber(s string) (int64, error) {
	if s == "" {
		return 0, fmt.Errorf("empty passport number")
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("passport number %q contains non-digit %q", s, r)
		}
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse passport number %q: %w", s, err)
	}
	return n, nil
}

// birthdayLayouts lists accepted birthday layouts. Numeric layouts are day first.
var birthdayLayouts = []string{
	DateLayout,
	"02.01.2006", "2.1.2006",
	"02/01/2006", "2/1/2006",
	time.RFC3339,
}

// ParseBirthday parses a birthday string in any of the accepted layouts and
// returns its date at midnight UTC.
func ParseBirthday(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("empty birth date")
	}
	for _, layout := range birthdayLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return dateOf(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized birth date %q", s)
}

// dateOf drops the time of day and location, keeping the calendar date.
func dateOf(t time.Time) time.Time {
	if t.IsZero() {
		return time.Time{}
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
