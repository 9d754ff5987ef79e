// Package transport defines the narrow messaging-client interface the IoT
// adapter depends on, plus a concrete websocket-backed implementation used
// for development and end-to-end tests. The spec treats the messaging
// client as an opaque external collaborator; Client is that boundary.
package transport

import "context"

// ConnectionReason classifies a connection-status transition.
type ConnectionReason string

const (
	ReasonOK                ConnectionReason = "Ok"
	ReasonBadCredential     ConnectionReason = "BadCredential"
	ReasonNoNetwork         ConnectionReason = "NoNetwork"
	ReasonExpiredCredential ConnectionReason = "ExpiredCredential"
	ReasonCommunicationError ConnectionReason = "CommunicationError"
	ReasonRetryExpired      ConnectionReason = "RetryExpired"
)

// TwinUpdateState classifies a device-twin push as a full document or a
// partial patch.
type TwinUpdateState string

const (
	TwinStateComplete TwinUpdateState = "Complete"
	TwinStatePartial  TwinUpdateState = "Partial"
)

// SendResult classifies the delivery confirmation for one outbound message.
type SendResult string

const (
	SendOK    SendResult = "Ok"
	SendError SendResult = "Error"
)

// ConnectionStatusCallback is invoked on every connection state transition.
type ConnectionStatusCallback func(connected bool, reason ConnectionReason)

// DeviceTwinCallback is invoked whenever the hub pushes a twin document or patch.
type DeviceTwinCallback func(state TwinUpdateState, payload []byte)

// SendConfirmCallback is invoked once per outbound message with its delivery result.
type SendConfirmCallback func(result SendResult)

// Client is the messaging-client boundary the adapter drives. Implementations
// run all three callbacks on their own goroutines, never on the caller's.
type Client interface {
	// Open establishes the underlying connection using connectionString.
	Open(ctx context.Context, connectionString string) error
	// Close tears down the connection and stops all background goroutines.
	Close() error

	SetConnectionStatusCallback(cb ConnectionStatusCallback)
	SetDeviceTwinCallback(cb DeviceTwinCallback)
	SetSendConfirmCallback(cb SendConfirmCallback)

	// SendEvent transmits one already-framed security-message envelope.
	SendEvent(ctx context.Context, data []byte) error
	// SendReportedProperties transmits the serialized twin configuration back
	// to the hub as the module's reported properties.
	SendReportedProperties(ctx context.Context, data []byte) error
}
