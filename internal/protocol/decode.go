package protocol

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseRequest decodes a request body.
//
// On any validation failure it returns the sentinel Quit request together with an error
// wrapping ErrMalformedRequest; callers pick a MalformedPolicy to decide which to honor.
func ParseRequest(body []byte) (Request, error) {
	parts := strings.SplitN(string(body), Delimiter, requestFieldCount)
	if len(parts) < requestFieldCount {
		return Quit(), fmt.Errorf("%w: %d fields", ErrMalformedRequest, len(parts))
	}

	ordinal, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return Quit(), fmt.Errorf("%w: kind %q", ErrMalformedRequest, parts[0])
	}
	kind := Kind(ordinal)
	if !kind.Valid() {
		return Quit(), fmt.Errorf("%w: kind ordinal %d out of range", ErrMalformedRequest, ordinal)
	}

	subject, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return Quit(), fmt.Errorf("%w: subject_id %q", ErrMalformedRequest, parts[1])
	}
	amount, err := strconv.ParseFloat(strings.TrimSpace(parts[2]), 64)
	if err != nil {
		return Quit(), fmt.Errorf("%w: amount %q", ErrMalformedRequest, parts[2])
	}

	return Request{
		Kind:      kind,
		SubjectID: subject,
		Amount:    amount,
		Name:      parts[3],
		Payload:   parts[4],
	}, nil
}

// ParseRequestWithPolicy applies policy to the result of ParseRequest.
func ParseRequestWithPolicy(body []byte, policy MalformedPolicy) (Request, error) {
	req, err := ParseRequest(body)
	if err != nil && policy == DegradeToQuit {
		return req, nil
	}
	return req, err
}

// ParseResponse decodes a response body.
func ParseResponse(body []byte) (Response, error) {
	parts := strings.SplitN(string(body), Delimiter, responseFieldCount-1)
	if len(parts) < responseFieldCount-1 {
		return Response{}, fmt.Errorf("%w: %d fields", ErrMalformedResponse, len(parts))
	}
	cut := strings.LastIndex(parts[2], Delimiter)
	if cut < 0 {
		return Response{}, fmt.Errorf("%w: missing message field", ErrMalformedResponse)
	}
	payload, message := parts[2][:cut], parts[2][cut+len(Delimiter):]
	var ok bool
	switch parts[0] {
	case "1":
		ok = true
	case "0":
	default:
		return Response{}, fmt.Errorf("%w: ok %q", ErrMalformedResponse, parts[0])
	}
	balance, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return Response{}, fmt.Errorf("%w: balance %q", ErrMalformedResponse, parts[1])
	}
	return Response{
		OK:      ok,
		Balance: balance,
		Payload: payload,
		Message: message,
	}, nil
}
