// Package protocol owns the request/response wire contract.
//
// Ownership boundary:
// - Request/Response value types and the Kind ordinal table
// - delimiter-separated body encoding and parsing
// - malformed-body policy (degrade to Quit or reject)
//
// Length framing lives in protocol/frame; the connection-owning channel lives in protocol/channel.
package protocol
