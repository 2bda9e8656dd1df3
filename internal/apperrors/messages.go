package apperrors

// messages.go maps errors to operator-facing messages with support codes.
//
// Error codes are grouped by category:
//
// # Validation Errors (VAL001-VAL099)
//
//	VAL001 - Passport number is not a number
//	VAL002 - Birth date could not be read
//	VAL003 - First name is not valid
//	VAL004 - Surname is not valid
//	VAL005 - Patronymic is not valid
//	VAL006 - Passport number is out of range
//	VAL007 - Birth date is too early
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File could not be opened, read or written
//	FILE002 - Storage is closed
//	FILE003 - Stored line could not be parsed
//
// # Request Errors (REQ001-REQ099)
//
//	REQ001 - Request body is malformed
//	REQ002 - Request body is not JSON
//
// # Default Error (ERR000)
//
// Fallback when no category matches. Check the application log for the
// original error.
//
// Validation errors map to the message of their first reason; the full reason
// list stays available on the *subject.ValidationError.

import (
	"errors"
	"fmt"

	"github.com/JonMunkholm/subjects/internal/subject"
)

// UserMessage provides operator-facing error information with actionable guidance.
type UserMessage struct {
	Message string // What happened
	Action  string // What to do about it
	Code    string // Error code for support reference
}

var reasonMessages = map[subject.Reason]UserMessage{
	subject.ReasonPassportFormat: {
		Message: "Passport number must contain digits only",
		Action:  "Enter the series and number without spaces",
		Code:    "VAL001",
	},
	subject.ReasonBirthdayFormat: {
		Message: "Birth date could not be read",
		Action:  "Use DD.MM.YYYY, DD/MM/YYYY or YYYY-MM-DD",
		Code:    "VAL002",
	},
	subject.ReasonName: {
		Message: "First name is not valid",
		Action:  fmt.Sprintf("Use 1-%d Cyrillic letters, hyphens or spaces", subject.MaxNameLength),
		Code:    "VAL003",
	},
	subject.ReasonSurname: {
		Message: "Surname is not valid",
		Action:  fmt.Sprintf("Use 1-%d Cyrillic letters, hyphens or spaces", subject.MaxNameLength),
		Code:    "VAL004",
	},
	subject.ReasonPatronymic: {
		Message: "Patronymic is not valid",
		Action:  fmt.Sprintf("Leave it empty or use up to %d Cyrillic letters, hyphens or spaces", subject.MaxNameLength),
		Code:    "VAL005",
	},
	subject.ReasonPassportRange: {
		Message: "Passport number is out of range",
		Action: fmt.Sprintf("Enter a number between %s and %s",
			subject.FormatPassportNumber(subject.MinPassportNumber),
			subject.FormatPassportNumber(subject.MaxPassportNumber)),
		Code: "VAL006",
	},
	subject.ReasonBirthday: {
		Message: "Birth date is too early",
		Action:  "Enter a date after 01.01.1900",
		Code:    "VAL007",
	},
}

var codeMessages = map[Code]UserMessage{
	CodeIO: {
		Message: "The file could not be opened, read or written",
		Action:  "Check the path and permissions, then try again with another path",
		Code:    "FILE001",
	},
	CodeClosed: {
		Message: "Storage is closed",
		Action:  "Restart the application",
		Code:    "FILE002",
	},
	CodeParse: {
		Message: "A stored record could not be read",
		Action:  "Check the storage file for damaged lines",
		Code:    "FILE003",
	},
	CodeBadRequest: {
		Message: "The request could not be understood",
		Action:  "Check the submitted fields",
		Code:    "REQ001",
	},
	CodeMediaType: {
		Message: "The request body must be JSON",
		Action:  "Send the body with Content-Type: application/json",
		Code:    "REQ002",
	},
}

// defaultMessage is returned when no category matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts an error to an operator-facing message.
// A nil error maps to the zero UserMessage.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	// A skipped stored line wraps the validation error of its content.
	if errors.Is(err, &Error{Code: CodeParse}) {
		return codeMessages[CodeParse]
	}

	var verr *subject.ValidationError
	if errors.As(err, &verr) {
		reasons := verr.Reasons()
		if len(reasons) > 0 {
			if msg, ok := reasonMessages[reasons[0]]; ok {
				return msg
			}
		}
	}

	var e *Error
	if errors.As(err, &e) {
		if msg, ok := codeMessages[e.Code]; ok {
			if e.Code == CodeBadRequest && e.Message != "" {
				msg.Action += ": " + e.Message
			}
			return msg
		}
	}

	return defaultMessage
}

// ReasonMessage returns the message for a single validation reason.
func ReasonMessage(r subject.Reason) UserMessage {
	if msg, ok := reasonMessages[r]; ok {
		return msg
	}
	return defaultMessage
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific message rather than the
// ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
