// Package protocol defines the typed wire contract between the hub and its
// agents, and the codec that frames it.
//
// Every message travels as a JSON envelope carrying a protocol version, a
// message type tag, and the message payload:
//
//	{"version": 1, "type": "request", "payload": {...}}
//
// Five message types exist: register, registered, heartbeat, request, and
// response. Decoding validates the envelope and the payload's required
// fields; Decode fails with ErrUnsupportedVersion when the version is newer
// than this package supports, ErrMalformedMessage when required fields are
// absent or mistyped, and ErrUnknownMessageType otherwise.
//
// The codec round-trips: for every valid message m,
// Decode(Encode(m)) == m.
package protocol
