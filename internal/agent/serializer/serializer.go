// Package serializer implements the batching/serialization stage: it pulls
// from an ordered sequence of queues under a byte budget and produces one
// framed JSON envelope, using goccy/go-json for both the per-event parse and
// the final envelope marshal.
package serializer

import (
	json "github.com/goccy/go-json"

	"github.com/Vishwasrao1/Azure-IoT-Security-Agent-C-sub002/errs"
	"github.com/Vishwasrao1/Azure-IoT-Security-Agent-C-sub002/internal/agent/queue"
)

// Result classifies the outcome of one Serialize call.
type Result string

const (
	// ResultOk indicates everything that fit was sent, nothing truncated mid-item.
	ResultOk Result = "Ok"
	// ResultEmpty indicates nothing was serialized; the caller should not send.
	ResultEmpty Result = "Empty"
	// ResultPartial indicates at least one queue reported an error while some content was included.
	ResultPartial Result = "Partial"
	// ResultMemoryExceeded indicates serialization overhead itself hit the limit.
	ResultMemoryExceeded Result = "MemoryExceeded"
	// ResultException indicates an unrecoverable error while building the envelope.
	ResultException Result = "Exception"
)

// Envelope is the outbound security-message schema, one per transport frame.
type Envelope struct {
	AgentVersion          string            `json:"AgentVersion"`
	AgentID               string            `json:"AgentId"`
	MessageSchemaVersion  string            `json:"MessageSchemaVersion"`
	Events                []json.RawMessage `json:"Events"`
}

// ConfigSource supplies the current per-envelope byte budget.
type ConfigSource interface {
	MaxMessageSize() int64
}

// Serializer drains ordered queues into one envelope under a size budget.
type Serializer struct {
	agentVersion  string
	agentID       string
	schemaVersion string
	config        ConfigSource
}

// New constructs a serializer stamping every envelope with the given agent
// identity and schema version.
func New(agentVersion, agentID, schemaVersion string, config ConfigSource) *Serializer {
	return &Serializer{
		agentVersion:  agentVersion,
		agentID:       agentID,
		schemaVersion: schemaVersion,
		config:        config,
	}
}

// Serialize drains queues in order, operationalQueue first and exempt from
// the per-item size predicate, into one envelope bounded by MaxMessageSize.
func (s *Serializer) Serialize(queues ...*queue.SyncQueue) ([]byte, Result, error) {
	max := s.config.MaxMessageSize()
	var current int64
	events := make([]json.RawMessage, 0)
	partial := false

	for i, q := range queues {
		for q.GetSize() > 0 && current < max {
			var predicate queue.Predicate
			if i == 0 {
				// Operational events always lead and are not subject to the
				// size predicate used for collector-sourced events.
				predicate = func([]byte) bool { return true }
			} else {
				predicate = func(data []byte) bool { return current+int64(len(data)) < max }
			}

			data, err := q.PopFrontIf(predicate)
			if err != nil {
				if errs.Is(err, errs.CodeConditionFailed) || errs.Is(err, errs.CodeQueueEmpty) {
					break
				}
				partial = true
				break
			}

			var event json.RawMessage
			if err := json.Unmarshal(data, &event); err != nil {
				partial = true
				continue
			}
			events = append(events, event)
			current += int64(len(data))
		}
	}

	if len(events) == 0 {
		return nil, ResultEmpty, nil
	}

	env := Envelope{
		AgentVersion:         s.agentVersion,
		AgentID:              s.agentID,
		MessageSchemaVersion: s.schemaVersion,
		Events:               events,
	}
	buf, err := json.Marshal(env)
	if err != nil {
		return nil, ResultException, errs.New("serializer", errs.CodeParseException, errs.WithCause(err))
	}

	if partial {
		return buf, ResultPartial, nil
	}
	return buf, ResultOk, nil
}
