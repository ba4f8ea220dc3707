package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

var errStale = errors.New("stale transition")

func TestGetKindFollowsWrapping(t *testing.T) {
	err := fmt.Errorf("move stage: %w", Wrap(KindConflict, "lead stage changed", errStale))

	assert.Equal(t, KindConflict, GetKind(err))
	assert.True(t, Is(err, KindConflict))
	assert.ErrorIs(t, err, errStale)
	assert.Equal(t, KindUnknown, GetKind(errStale))
}

func TestHTTPStatus(t *testing.T) {
	cases := map[Kind]int{
		KindNotFound:      http.StatusNotFound,
		KindInvalid:       http.StatusBadRequest,
		KindConflict:      http.StatusConflict,
		KindForbidden:     http.StatusForbidden,
		KindUnprocessable: http.StatusUnprocessableEntity,
		KindInternal:      http.StatusInternalServerError,
		KindUnknown:       http.StatusInternalServerError,
	}
	for kind, status := range cases {
		assert.Equal(t, status, New(kind, "x").HTTPStatus(), string(kind))
	}
}

func TestErrorMessage(t *testing.T) {
	assert.Equal(t, "lead not found", NotFound("lead not found").Error())
	assert.Equal(t, "no eligible agent: pool empty",
		Wrap(KindConflict, "no eligible agent", errors.New("pool empty")).Error())
}

func TestAsReturnsOutermost(t *testing.T) {
	inner := NotFound("agent not found")
	outer := Wrap(KindConflict, "cannot assign", inner)

	got, ok := As(fmt.Errorf("assign: %w", outer))
	assert.True(t, ok)
	assert.Same(t, outer, got)

	_, ok = As(errors.New("plain"))
	assert.False(t, ok)
}
