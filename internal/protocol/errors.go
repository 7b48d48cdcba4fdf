package protocol

import "errors"

var (
	ErrMalformedRequest  = errors.New("protocol: malformed request body")
	ErrMalformedResponse = errors.New("protocol: malformed response body")
	ErrDelimiterInField  = errors.New("protocol: field contains delimiter")
)
