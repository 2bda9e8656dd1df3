package apperrors

import (
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/JonMunkholm/subjects/internal/subject"
)

func TestMapError(t *testing.T) {
	_, nameErr := subject.Parse("John", "Петров", "", "4510123456", "1985-03-14")
	_, formatErr := subject.Parse("Иван", "Петров", "", "abc", "1985-03-14")

	tests := []struct {
		name        string
		err         error
		wantCode    string
		wantMessage string
	}{
		{
			name:        "nil error returns empty",
			err:         nil,
			wantCode:    "",
			wantMessage: "",
		},
		{
			name:        "first name reason maps correctly",
			err:         nameErr,
			wantCode:    "VAL003",
			wantMessage: "First name is not valid",
		},
		{
			name:        "first reason wins",
			err:         formatErr,
			wantCode:    "VAL001",
			wantMessage: "Passport number must contain digits only",
		},
		{
			name:        "wrapped validation error maps correctly",
			err:         fmt.Errorf("add subject: %w", nameErr),
			wantCode:    "VAL003",
			wantMessage: "First name is not valid",
		},
		{
			name:        "io error maps correctly",
			err:         IO("open", "/nope/db.txt", os.ErrNotExist),
			wantCode:    "FILE001",
			wantMessage: "The file could not be opened, read or written",
		},
		{
			name:        "closed maps correctly",
			err:         New(CodeClosed, "store is closed"),
			wantCode:    "FILE002",
			wantMessage: "Storage is closed",
		},
		{
			name:        "media type maps correctly",
			err:         New(CodeMediaType, "content type text/plain"),
			wantCode:    "REQ002",
			wantMessage: "The request body must be JSON",
		},
		{
			name:        "unknown error returns default",
			err:         errors.New("some random internal error"),
			wantCode:    "ERR000",
			wantMessage: "An unexpected error occurred",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("MapError() code = %q, want %q", got.Code, tt.wantCode)
			}
			if got.Message != tt.wantMessage {
				t.Errorf("MapError() message = %q, want %q", got.Message, tt.wantMessage)
			}
		})
	}
}

func TestFormatUserError(t *testing.T) {
	err := IO("create", "out.csv", os.ErrPermission)
	result := FormatUserError(err)

	expected := "The file could not be opened, read or written (Code: FILE001). Check the path and permissions, then try again with another path"
	if result != expected {
		t.Errorf("FormatUserError() = %q, want %q", result, expected)
	}
}

func TestFormatUserError_BadRequestDetail(t *testing.T) {
	err := New(CodeBadRequest, "export path is the store file")

	expected := "The request could not be understood (Code: REQ001). Check the submitted fields: export path is the store file"
	if got := FormatUserError(err); got != expected {
		t.Errorf("FormatUserError() = %q, want %q", got, expected)
	}
}

func TestIsUserFacing(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil error is not user facing", nil, false},
		{"io error is user facing", IO("open", "x", os.ErrNotExist), true},
		{"unknown error is not user facing", errors.New("random internal error xyz"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsUserFacing(tt.err); got != tt.want {
				t.Errorf("IsUserFacing() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestError_CodeMatching(t *testing.T) {
	err := fmt.Errorf("open store: %w", IO("open", "/root/db.txt", os.ErrPermission))

	if !IsIO(err) {
		t.Error("IsIO() = false, want true")
	}
	if !errors.Is(err, &Error{Code: CodeIO}) {
		t.Error("errors.Is by code = false, want true")
	}
	if !errors.Is(err, os.ErrPermission) {
		t.Error("errors.Is cause = false, want true")
	}
	if errors.Is(err, &Error{Code: CodeClosed}) {
		t.Error("errors.Is different code = true, want false")
	}

	want := "open /root/db.txt: file error: permission denied"
	if got := errors.Unwrap(err).Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestWrap_PreservesCode(t *testing.T) {
	inner := New(CodeClosed, "store is closed")
	wrapped := Wrap(inner, CodeInternal, "put subject")

	if !HasCode(wrapped, CodeClosed) {
		t.Errorf("Wrap() lost original code: %v", wrapped)
	}
	if !HasCode(Wrap(errors.New("boom"), CodeInternal, "x"), CodeInternal) {
		t.Error("Wrap() of plain error should use given code")
	}
}

func TestReasonMessage(t *testing.T) {
	if got := ReasonMessage(subject.ReasonBirthday).Code; got != "VAL007" {
		t.Errorf("ReasonMessage(birthday).Code = %q, want VAL007", got)
	}
	if got := ReasonMessage("unknown").Code; got != "ERR000" {
		t.Errorf("ReasonMessage(unknown).Code = %q, want ERR000", got)
	}
}
