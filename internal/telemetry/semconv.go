// Package telemetry provides semantic conventions for agent observability.
package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Semantic convention attribute keys for agent-specific telemetry.
// Following OpenTelemetry naming conventions: namespace.attribute_name

const (
	// AttrQueueName is the attribute key for queue identifiers.
	AttrQueueName = attribute.Key("queue.name")
	// AttrPriority is the attribute key for event priority labels.
	AttrPriority = attribute.Key("priority")
	// AttrEventType is the attribute key for event type labels.
	AttrEventType = attribute.Key("event.type")
	// AttrTaskName is the attribute key for scheduler task identifiers.
	AttrTaskName = attribute.Key("task.name")
	// AttrCollectorName is the attribute key for collector identifiers.
	AttrCollectorName = attribute.Key("collector.name")
	// AttrEnvironment is the attribute key for environment identifiers.
	AttrEnvironment = attribute.Key("environment")
	// AttrErrorType is the attribute key for error type labels.
	AttrErrorType = attribute.Key("error.type")
	// AttrReason is the attribute key for error reasons.
	AttrReason = attribute.Key("reason")
	// AttrStatus is the attribute key for operation status values.
	AttrStatus = attribute.Key("status")
	// AttrConnectionState is the attribute key for adapter connection state labels.
	AttrConnectionState = attribute.Key("connection.state")
	// AttrOperation is the attribute key for operation labels.
	AttrOperation = attribute.Key("operation")
	// AttrResult is the attribute key for operation result labels.
	AttrResult = attribute.Key("result")
)

// Event type values
const (
	EventTypeSecurityEvent = "security_event"
	EventTypeOperational   = "operational_event"
	EventTypeDiagnostic    = "diagnostic_event"
)

// Connection state label values for ConnectionAttributes.
const (
	ConnectionStateDisconnected = "disconnected"
	ConnectionStateConnecting  = "connecting"
	ConnectionStateConnected   = "connected"
	ConnectionStateDisabled    = "disabled"
)

// Helper functions for creating common attribute sets.

// QueueAttributes returns common attributes for queue metrics.
func QueueAttributes(environment, queueName, priority string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		AttrEnvironment.String(environment),
		AttrQueueName.String(queueName),
	}
	if priority != "" {
		attrs = append(attrs, AttrPriority.String(priority))
	}
	return attrs
}

// TaskAttributes returns attributes for scheduler task metrics.
func TaskAttributes(environment, taskName, status string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		AttrEnvironment.String(environment),
		AttrTaskName.String(taskName),
	}
	if status != "" {
		attrs = append(attrs, AttrStatus.String(status))
	}
	return attrs
}

// CollectorAttributes returns attributes for collector invocation metrics.
func CollectorAttributes(environment, collectorName, result string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		AttrEnvironment.String(environment),
		AttrCollectorName.String(collectorName),
	}
	if result != "" {
		attrs = append(attrs, AttrResult.String(result))
	}
	return attrs
}

// ErrorAttributes returns attributes for error metrics.
func ErrorAttributes(environment, errorType, reason string) []attribute.KeyValue {
	return []attribute.KeyValue{
		AttrEnvironment.String(environment),
		AttrErrorType.String(errorType),
		AttrReason.String(reason),
	}
}

// ConnectionAttributes returns attributes for adapter connection state metrics.
func ConnectionAttributes(environment, state string) []attribute.KeyValue {
	return []attribute.KeyValue{
		AttrEnvironment.String(environment),
		AttrConnectionState.String(state),
	}
}

// OperationResultAttributes returns attributes for operation metrics with result classification.
func OperationResultAttributes(environment, operation, result string) []attribute.KeyValue {
	return []attribute.KeyValue{
		AttrEnvironment.String(environment),
		AttrOperation.String(operation),
		AttrResult.String(result),
	}
}
