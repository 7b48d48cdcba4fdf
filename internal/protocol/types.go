package protocol

import "fmt"

// Delimiter separates body fields on the wire.
const Delimiter = "|"

const (
	requestFieldCount  = 5
	responseFieldCount = 4
)

// Kind is the request ordinal carried as the first body field.
type Kind int

const (
	KindQuit Kind = iota
	KindDeposit
	KindWithdraw
	KindBalance
	KindUploadFile
	KindDownloadFile
	KindLogin
	KindLogout
	KindEarnInterest
)

var kindNames = [...]string{
	KindQuit:         "quit",
	KindDeposit:      "deposit",
	KindWithdraw:     "withdraw",
	KindBalance:      "balance",
	KindUploadFile:   "upload_file",
	KindDownloadFile: "download_file",
	KindLogin:        "login",
	KindLogout:       "logout",
	KindEarnInterest: "earn_interest",
}

// Valid reports whether k is inside the ordinal table.
func (k Kind) Valid() bool {
	return k >= KindQuit && k <= KindEarnInterest
}

func (k Kind) String() string {
	if !k.Valid() {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return kindNames[k]
}

// Request is one client->server message. Values are immutable once built.
type Request struct {
	Kind      Kind
	SubjectID int
	Amount    float64
	Name      string
	Payload   string
}

// Quit returns the sentinel request substituted for undecodable bodies.
func Quit() Request {
	return Request{Kind: KindQuit}
}

// Response is the single reply to one Request.
type Response struct {
	OK      bool
	Balance float64
	Payload string
	Message string
}

// Failure builds a non-ok response carrying msg.
func Failure(msg string) Response {
	return Response{OK: false, Message: msg}
}

// Replies shared by every server.
const (
	MsgUnknownRequest   = "Unknown RequestType"
	MsgMalformedRequest = "Malformed request"
	MsgQuitAcknowledged = "Server acknowledged disconnect"
	MsgShuttingDown     = "Server shutting down"
)

// Unsupported answers a kind the receiving server does not handle.
func Unsupported() Response {
	return Failure(MsgUnknownRequest)
}

// MalformedPolicy selects how a receiver treats a body that fails validation.
type MalformedPolicy int

const (
	// DegradeToQuit substitutes the sentinel Quit request, which ends the connection.
	DegradeToQuit MalformedPolicy = iota
	// RejectMalformed surfaces ErrMalformedRequest to the receiver.
	RejectMalformed
)

func (p MalformedPolicy) String() string {
	switch p {
	case DegradeToQuit:
		return "degrade_to_quit"
	case RejectMalformed:
		return "reject"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}

// ParseMalformedPolicy maps a config string onto a policy.
func ParseMalformedPolicy(raw string) (MalformedPolicy, error) {
	switch raw {
	case "", "degrade_to_quit", "quit":
		return DegradeToQuit, nil
	case "reject":
		return RejectMalformed, nil
	default:
		return DegradeToQuit, fmt.Errorf("protocol: unknown malformed policy %q", raw)
	}
}
