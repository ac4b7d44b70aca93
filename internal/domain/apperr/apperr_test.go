package apperr

import (
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	sentinel := errors.New("sentinel")

	tests := []struct {
		name    string
		err     error
		want    Kind
		wantMsg string
	}{
		{name: "not found", err: NotFound("order %s not found", "o1"), want: KindNotFound, wantMsg: "order o1 not found"},
		{name: "bad request", err: BadRequest("cart is empty"), want: KindBadRequest, wantMsg: "cart is empty"},
		{name: "unauthorized", err: Unauthorized("nope"), want: KindUnauthorized, wantMsg: "nope"},
		{name: "wrapped", err: errors.Wrap(BadRequest("inner"), "outer"), want: KindBadRequest, wantMsg: "inner"},
		{name: "plain", err: errors.New("boom"), want: KindUnknown},
		{name: "with cause", err: WithCause(KindBadRequest, sentinel, "expired"), want: KindBadRequest, wantMsg: "expired"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
			assert.Equal(t, tt.wantMsg, Message(tt.err))
		})
	}
}

func TestWithCause_Unwraps(t *testing.T) {
	sentinel := errors.New("sentinel")
	err := errors.Wrap(WithCause(KindBadRequest, sentinel, "msg"), "ctx")
	assert.ErrorIs(t, err, sentinel)
}
