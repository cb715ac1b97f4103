package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "dreamcatcher/pkg/errors"
)

type sample struct {
	Content string `json:"content" validate:"required"`
	Urgency string `json:"urgency,omitempty" validate:"omitempty,oneof=low high"`
}

func TestValidateStruct(t *testing.T) {
	assert.NoError(t, ValidateStruct(sample{Content: "x"}))
	assert.NoError(t, ValidateStruct(&map[string]interface{}{"a": 1}))

	err := ValidateStruct(&sample{Urgency: "soon"})
	require.Error(t, err)
	appErr := pkgerrors.GetAppError(err)
	require.NotNil(t, appErr)
	assert.True(t, pkgerrors.IsValidation(err))
	assert.Equal(t, "content is required; urgency must be one of: low high", appErr.Message)
	assert.Contains(t, appErr.Details, "content")
	assert.Contains(t, appErr.Details, "urgency")
}
