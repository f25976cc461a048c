package dispatch

import (
	"errors"
	"fmt"
	"net"
	"net/textproto"
	"strings"
)

type FailureKind string

const (
	FailureConnection FailureKind = "connection"
	FailureAuth       FailureKind = "auth"
	FailureProtocol   FailureKind = "protocol"
	FailurePrepare    FailureKind = "prepare"
	FailureGeneric    FailureKind = "generic"
)

// SendError is the typed outcome of a failed dispatch attempt.
// Preparation failures carry FailurePrepare and never touched the
// network, but feed the same retry policy as transport failures.
type SendError struct {
	Kind FailureKind
	Err  error
}

func (e *SendError) Error() string { return fmt.Sprintf("%s: %v", e.Kind, e.Err) }
func (e *SendError) Unwrap() error { return e.Err }

func prepareError(err error) *SendError {
	return &SendError{Kind: FailurePrepare, Err: err}
}

func classify(err error) *SendError {
	if err == nil {
		return nil
	}
	var se *SendError
	if errors.As(err, &se) {
		return se
	}
	var proto *textproto.Error
	if errors.As(err, &proto) {
		switch proto.Code {
		case 530, 534, 535:
			return &SendError{Kind: FailureAuth, Err: err}
		}
		return &SendError{Kind: FailureProtocol, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return &SendError{Kind: FailureConnection, Err: err}
	}
	if strings.Contains(strings.ToLower(err.Error()), "auth") {
		return &SendError{Kind: FailureAuth, Err: err}
	}
	return &SendError{Kind: FailureGeneric, Err: err}
}

func kindOf(err error) FailureKind {
	var se *SendError
	if errors.As(err, &se) {
		return se.Kind
	}
	return FailureGeneric
}
