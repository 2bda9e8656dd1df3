package web

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/subjects/internal/apperrors"
)

func TestNewValidator_NotBlank(t *testing.T) {
	v := newValidator()
	require.NotNil(t, v)

	type req struct {
		Path string `json:"path" validate:"omitempty,notblank"`
	}
	assert.NoError(t, v.Struct(req{}))
	assert.NoError(t, v.Struct(req{Path: "out.csv"}))

	err := validateRequest(&exportRequest{Path: "  "})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeBadRequest))
	assert.Contains(t, err.Error(), "path must not be blank")
}
