package errors

import (
	"fmt"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromErrorAttachesValidationDetails(t *testing.T) {
	type payload struct {
		Amount float64 `validate:"required,gt=0"`
		Type   string  `validate:"required,oneof=TUITION REVERSAL"`
	}
	verr := validator.New().Struct(payload{Amount: 0, Type: "BOGUS"})
	require.Error(t, verr)

	wrapped := Wrap(verr, ErrValidation.Code, ErrValidation.Status, "invalid payment payload")
	out := FromError(wrapped)

	assert.Equal(t, "VALIDATION_ERROR", out.Code)
	assert.Equal(t, 422, out.Status)
	require.NotNil(t, out.Details)
	assert.Contains(t, out.Details, "amount")
	assert.Contains(t, out.Details, "type")
}

func TestFromErrorWrapsUnknownAsInternal(t *testing.T) {
	out := FromError(fmt.Errorf("boom"))
	assert.Equal(t, ErrInternal.Code, out.Code)
	assert.Equal(t, 500, out.Status)
}

func TestCloneDoesNotMutateOriginal(t *testing.T) {
	clone := Clone(ErrDomain, "reversal exceeds the amount paid")
	assert.Equal(t, "reversal exceeds the amount paid", clone.Message)
	assert.Equal(t, "business rule violated", ErrDomain.Message)
	assert.Equal(t, ErrDomain.Code, clone.Code)
}

func TestErrorStringIncludesCause(t *testing.T) {
	err := Wrap(fmt.Errorf("connection refused"), ErrInternal.Code, ErrInternal.Status, "failed to fetch user")
	assert.Contains(t, err.Error(), "failed to fetch user")
	assert.Contains(t, err.Error(), "connection refused")
}
