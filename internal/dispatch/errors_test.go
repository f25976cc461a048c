package dispatch

import (
	"errors"
	"net"
	"net/textproto"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want FailureKind
	}{
		{"nil stays nil", nil, ""},
		{"auth code", &textproto.Error{Code: 535, Msg: "authentication failed"}, FailureAuth},
		{"protocol code", &textproto.Error{Code: 550, Msg: "mailbox unavailable"}, FailureProtocol},
		{"net error", &net.OpError{Op: "dial", Err: errors.New("connection refused")}, FailureConnection},
		{"auth text", errors.New("server requires AUTH"), FailureAuth},
		{"anything else", errors.New("kaboom"), FailureGeneric},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := classify(tc.err)
			if tc.err == nil {
				assert.Nil(t, got)
				return
			}
			assert.Equal(t, tc.want, got.Kind)
		})
	}
}

func TestClassifyIdempotent(t *testing.T) {
	se := prepareError(errors.New("render exploded"))
	assert.Same(t, se, classify(se))
}
