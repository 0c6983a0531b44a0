package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindNotFound, KindOf(NotFound("missing")))
	assert.Equal(t, KindConflict, KindOf(Conflict("dup")))
	assert.Equal(t, KindInternal, KindOf(errors.New("plain")))
	assert.Equal(t, KindInternal, KindOf(nil))
}

func TestKindOfWrapped(t *testing.T) {
	inner := Forbidden("nope")
	wrapped := fmt.Errorf("handler: %w", inner)
	assert.Equal(t, KindForbidden, KindOf(wrapped))
	assert.True(t, IsKind(wrapped, KindForbidden))
	assert.False(t, IsKind(wrapped, KindNotFound))
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("pg: connection reset")
	err := Wrap(KindInternal, "query accounts", cause)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "query accounts")
}

func TestValidationCollectsFields(t *testing.T) {
	err := Validation(
		FieldError{Field: "title", Problem: "required"},
		FieldError{Field: "cityId", Problem: "required"},
	)
	assert.Equal(t, KindBadRequest, KindOf(err))
	assert.Len(t, err.Fields, 2)
}
