package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOfClassified(t *testing.T) {
	assert.Equal(t, NotFound, KindOf(New(NotFound, "no such round")))
	assert.Equal(t, Conflict, KindOf(New(Conflict, "already closed")))
}

func TestKindOfWrappedChain(t *testing.T) {
	inner := New(Validation, "bad name")
	wrapped := fmt.Errorf("handling request: %w", inner)
	assert.Equal(t, Validation, KindOf(wrapped))
}

func TestKindOfUnclassifiedIsTransient(t *testing.T) {
	assert.Equal(t, Transient, KindOf(errors.New("connection refused")))
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{New(Validation, "bad input"), http.StatusBadRequest},
		{New(NotFound, "missing"), http.StatusNotFound},
		{New(Conflict, "already closed"), http.StatusConflict},
		{errors.New("plain"), http.StatusServiceUnavailable},
		{New(Fatal, "broken invariant"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, HTTPStatus(tt.err), "err=%v", tt.err)
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("duplicate key")
	err := Wrap(Fatal, cause, "id allocation kept colliding")
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "duplicate key")
}
