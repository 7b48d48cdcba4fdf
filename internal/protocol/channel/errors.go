package channel

import (
	"errors"
	"io"
	"net"
)

var (
	ErrWrongSide   = errors.New("channel: operation not valid for channel side")
	ErrInterrupted = errors.New("channel: read interrupted for shutdown")
	ErrBroken      = errors.New("channel: connection torn down after transport failure")
)

// Op names carried by TransportError.
const (
	OpListen             = "listen"
	OpDial               = "dial"
	OpAccept             = "accept"
	OpSendRequestLength  = "send request length"
	OpSendRequestBody    = "send request body"
	OpRecvRequestLength  = "recv request length"
	OpRecvRequestBody    = "recv request body"
	OpSendResponseLength = "send response length"
	OpSendResponseBody   = "send response body"
	OpRecvResponseLength = "recv response length"
	OpRecvResponseBody   = "recv response body"
	OpEncode             = "encode"
	OpDecode             = "decode"
)

// TransportError is a connection-fatal failure at one named step.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return "channel: " + e.Op + " failed: " + e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func transportErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &TransportError{Op: op, Err: err}
}

// IsPeerClosed reports whether err means the peer hung up between messages.
func IsPeerClosed(err error) bool {
	var te *TransportError
	if !errors.As(err, &te) {
		return false
	}
	return te.Op == OpRecvRequestLength && (errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed))
}
