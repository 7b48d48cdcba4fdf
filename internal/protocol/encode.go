package protocol

import (
	"strconv"
	"strings"
)

// EncodeRequest renders req as `kind|subject_id|amount|name|payload`.
//
// The payload is the last field, so it may itself contain the delimiter; name may not.
func EncodeRequest(req Request) ([]byte, error) {
	if strings.Contains(req.Name, Delimiter) {
		return nil, ErrDelimiterInField
	}
	var b strings.Builder
	b.Grow(32 + len(req.Name) + len(req.Payload))
	b.WriteString(strconv.Itoa(int(req.Kind)))
	b.WriteString(Delimiter)
	b.WriteString(strconv.Itoa(req.SubjectID))
	b.WriteString(Delimiter)
	b.WriteString(formatFloat(req.Amount))
	b.WriteString(Delimiter)
	b.WriteString(req.Name)
	b.WriteString(Delimiter)
	b.WriteString(req.Payload)
	return []byte(b.String()), nil
}

// EncodeResponse renders resp as `ok|balance|payload|message`.
//
// Payload may contain the delimiter (file contents); message may not, since the
// parser splits it off at the last delimiter.
func EncodeResponse(resp Response) ([]byte, error) {
	if strings.Contains(resp.Message, Delimiter) {
		return nil, ErrDelimiterInField
	}
	ok := "0"
	if resp.OK {
		ok = "1"
	}
	var b strings.Builder
	b.Grow(32 + len(resp.Payload) + len(resp.Message))
	b.WriteString(ok)
	b.WriteString(Delimiter)
	b.WriteString(formatFloat(resp.Balance))
	b.WriteString(Delimiter)
	b.WriteString(resp.Payload)
	b.WriteString(Delimiter)
	b.WriteString(resp.Message)
	return []byte(b.String()), nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
