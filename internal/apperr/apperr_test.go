package apperr

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConstructors(t *testing.T) {
	t.Run("NotFound", func(t *testing.T) {
		err := NotFound("task", "abc-123")
		assert.Equal(t, CodeNotFound, err.Code)
		assert.Equal(t, http.StatusNotFound, err.HTTPStatus)
		assert.Contains(t, err.Message, "task")
		assert.Contains(t, err.Message, "abc-123")
	})

	t.Run("Conflict", func(t *testing.T) {
		err := Conflict("lock already held", map[string]any{"holder": "agent-1"})
		assert.Equal(t, CodeConflict, err.Code)
		assert.Equal(t, http.StatusConflict, err.HTTPStatus)
		assert.Equal(t, "agent-1", err.Details["holder"])
	})

	t.Run("Unauthorized", func(t *testing.T) {
		err := Unauthorized("missing bearer token")
		assert.Equal(t, CodeUnauthorized, err.Code)
		assert.Equal(t, http.StatusUnauthorized, err.HTTPStatus)
	})

	t.Run("Validation", func(t *testing.T) {
		err := Validation("name is required", nil)
		assert.Equal(t, CodeValidationError, err.Code)
		assert.Equal(t, http.StatusBadRequest, err.HTTPStatus)
	})

	t.Run("Internal", func(t *testing.T) {
		cause := errors.New("connection refused")
		err := Internal("db write failed", cause)
		assert.Equal(t, CodeInternalError, err.Code)
		assert.Equal(t, http.StatusInternalServerError, err.HTTPStatus)
		assert.Equal(t, cause, err.Err)
	})
}

func TestError_Message(t *testing.T) {
	t.Run("without wrapped error", func(t *testing.T) {
		err := NotFound("agent", "x1")
		assert.Equal(t, "NOT_FOUND: agent with id 'x1' not found", err.Error())
	})

	t.Run("with wrapped error", func(t *testing.T) {
		cause := errors.New("boom")
		err := Internal("write failed", cause)
		assert.Equal(t, "INTERNAL_ERROR: write failed: boom", err.Error())
	})
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := Internal("wrapper", cause)
	assert.Equal(t, cause, errors.Unwrap(err))
}

func TestWrap(t *testing.T) {
	t.Run("nil error yields nil", func(t *testing.T) {
		assert.Nil(t, Wrap(nil, "prefix"))
	})

	t.Run("wraps AppError preserving code and status", func(t *testing.T) {
		original := NotFound("task", "t1")
		wrapped := Wrap(original, "claim failed")
		assert.Equal(t, CodeNotFound, wrapped.Code)
		assert.Equal(t, http.StatusNotFound, wrapped.HTTPStatus)
		assert.Contains(t, wrapped.Message, "claim failed")
		assert.Contains(t, wrapped.Message, "task")
	})

	t.Run("demotes plain error to internal", func(t *testing.T) {
		plain := errors.New("unexpected")
		wrapped := Wrap(plain, "operation failed")
		assert.Equal(t, CodeInternalError, wrapped.Code)
		assert.Equal(t, http.StatusInternalServerError, wrapped.HTTPStatus)
	})
}

func TestAs(t *testing.T) {
	t.Run("extracts AppError", func(t *testing.T) {
		original := Validation("bad input", nil)
		ae, ok := As(original)
		require := assert.New(t)
		require.True(ok)
		require.Equal(original, ae)
	})

	t.Run("returns false for plain error", func(t *testing.T) {
		_, ok := As(errors.New("plain"))
		assert.False(t, ok)
	})
}

func TestIs(t *testing.T) {
	err := Conflict("already claimed", nil)
	assert.True(t, Is(err, CodeConflict))
	assert.False(t, Is(err, CodeNotFound))
	assert.False(t, Is(errors.New("plain"), CodeConflict))
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, HTTPStatus(NotFound("x", "1")))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(errors.New("plain")))
}
