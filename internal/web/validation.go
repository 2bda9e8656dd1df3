package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/JonMunkholm/subjects/internal/apperrors"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 64 * 1024

var requestValidator = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	}); err != nil {
		panic(fmt.Sprintf("register notblank validation: %v", err))
	}
	// Report fields by their JSON name.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// subjectRequest is the body of POST /api/subjects and POST /api/validate.
// Only the shape is checked here; the subject rules run in the domain.
type subjectRequest struct {
	Name           string `json:"name" validate:"max=256"`
	Surname        string `json:"surname" validate:"max=256"`
	Patronymic     string `json:"patronymic" validate:"max=256"`
	PassportNumber string `json:"passport_number" validate:"max=64"`
	Birthday       string `json:"birthday" validate:"max=64"`
}

// exportRequest is the body of POST /api/export. An empty path means the
// configured export path; Sorted defaults to true.
type exportRequest struct {
	Path   string `json:"path" validate:"omitempty,notblank,max=4096"`
	Sorted *bool  `json:"sorted"`
}

// validateRequest checks req against its validate tags.
func validateRequest(req any) error {
	if err := requestValidator.Struct(req); err != nil {
		return apperrors.New(apperrors.CodeBadRequest, validationMessage(err))
	}
	return nil
}

// validationMessage converts a validator error into a readable message.
func validationMessage(err error) string {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) || len(validationErrs) == 0 {
		return "invalid request body"
	}

	fe := validationErrs[0]
	switch fe.ActualTag() {
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	case "notblank":
		return fmt.Sprintf("%s must not be blank", fe.Field())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}

// decodeJSON reads a bounded JSON body into dst and validates it. The
// request must declare an application/json body, which a cross-site HTML
// form cannot do.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	if err := requireJSON(r); err != nil {
		return err
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	// An empty body leaves every field at its zero value.
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return apperrors.Wrap(err, apperrors.CodeBadRequest, "decode request body")
	}
	return validateRequest(dst)
}

// requireJSON checks that the Content-Type is application/json.
func requireJSON(r *http.Request) error {
	ct := r.Header.Get("Content-Type")
	mediaType, _, err := mime.ParseMediaType(ct)
	if err != nil || mediaType != "application/json" {
		return apperrors.New(apperrors.CodeMediaType, fmt.Sprintf("content type %q", ct))
	}
	return nil
}
