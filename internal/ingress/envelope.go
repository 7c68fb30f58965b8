// Package ingress bridges the external command queue to the application
// Command Handlers, with explicit per-message acknowledgment.
package ingress

import (
	"encoding/json"
	"errors"
)

// Command type tags accepted on the wire.
const (
	CommandTypePlaceOrder    = "PlaceOrder"
	CommandTypePackOrder     = "PackOrder"
	CommandTypeChangeAddress = "ChangeAddress"
	CommandTypeFailDelivery  = "FailDelivery"
)

// Errors caused by malformed or unrecognized input. Messages failing with
// these errors are rejected permanently, since redelivery cannot change
// the outcome.
var (
	ErrUnknownCommandType = errors.New("ingress: unknown command type")
	ErrMalformedPayload   = errors.New("ingress: malformed command payload")
)

// Envelope is the wire format of the messages carried by the command queue.
type Envelope struct {
	CommandType string          `json:"commandType"`
	Payload     json.RawMessage `json:"payload"`
}
