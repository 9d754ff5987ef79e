// Package twinconfig implements the dynamic, partially-updatable twin
// configuration store that gates the rest of the pipeline's behavior.
// Grounded on a mutex-guarded Clone/Normalise/Validate/Snapshot store: the
// live record is held behind a single mutex, every reader takes a value
// copy, and Update is atomic across all recognized fields.
package twinconfig

import (
	"strconv"
	"sync"
	"time"

	json "github.com/goccy/go-json"

	"github.com/Vishwasrao1/Azure-IoT-Security-Agent-C-sub002/errs"
	"github.com/Vishwasrao1/Azure-IoT-Security-Agent-C-sub002/internal/agent/duration"
)

// FieldStatus classifies the last attempt to read one recognized field from
// a twin update payload.
type FieldStatus string

const (
	// FieldOk indicates the field was present and well-typed.
	FieldOk FieldStatus = "Ok"
	// FieldTypeMismatch indicates the field was present but malformed; the
	// existing value was kept.
	FieldTypeMismatch FieldStatus = "TypeMismatch"
	// FieldMissing indicates the field was absent from the payload.
	FieldMissing FieldStatus = "Missing"
)

// UpdateResult classifies the overall outcome of the most recent Update call.
type UpdateResult string

const (
	// UpdateOk indicates the payload parsed; individual fields may still be TypeMismatch.
	UpdateOk UpdateResult = "Ok"
	// UpdateParseException indicates the payload itself was not valid JSON.
	UpdateParseException UpdateResult = "ParseException"
)

// EventPriority routes a collector's events into one of the priority queues.
type EventPriority string

const (
	PriorityHigh EventPriority = "High"
	PriorityLow  EventPriority = "Low"
	PriorityOff  EventPriority = "Off"
)

// Default values, per the twin configuration field table.
const (
	DefaultMaxLocalCacheSize             int64 = 10 * 1024 * 1024
	DefaultMaxMessageSize                int64 = 200 * 1024
	DefaultLowPriorityMessageFrequencyMs int64 = 5 * 60 * 60 * 1000
	DefaultHighPriorityMessageFrequencyMs int64 = 7 * 60 * 1000
	DefaultSnapshotFrequencyMs           int64 = 13 * 60 * 60 * 1000
)

// Configuration is a value snapshot of the twin-configured parameters.
type Configuration struct {
	MaxLocalCacheSize              int64
	MaxMessageSize                 int64
	LowPriorityMessageFrequencyMs  int64
	HighPriorityMessageFrequencyMs int64
	SnapshotFrequencyMs            int64
	BaselineCustomChecksEnabled    bool
	BaselineCustomChecksFilePath   *string
	BaselineCustomChecksFileHash   *string
	EventPriorities                map[string]EventPriority
}

func defaultConfiguration() Configuration {
	return Configuration{
		MaxLocalCacheSize:              DefaultMaxLocalCacheSize,
		MaxMessageSize:                 DefaultMaxMessageSize,
		LowPriorityMessageFrequencyMs:  DefaultLowPriorityMessageFrequencyMs,
		HighPriorityMessageFrequencyMs: DefaultHighPriorityMessageFrequencyMs,
		SnapshotFrequencyMs:            DefaultSnapshotFrequencyMs,
		BaselineCustomChecksEnabled:    false,
		BaselineCustomChecksFilePath:   nil,
		BaselineCustomChecksFileHash:   nil,
		EventPriorities:                map[string]EventPriority{},
	}
}

// clone returns a deep copy so callers never observe a store-owned pointer.
func (c Configuration) clone() Configuration {
	out := c
	if c.BaselineCustomChecksFilePath != nil {
		v := *c.BaselineCustomChecksFilePath
		out.BaselineCustomChecksFilePath = &v
	}
	if c.BaselineCustomChecksFileHash != nil {
		v := *c.BaselineCustomChecksFileHash
		out.BaselineCustomChecksFileHash = &v
	}
	out.EventPriorities = make(map[string]EventPriority, len(c.EventPriorities))
	for k, v := range c.EventPriorities {
		out.EventPriorities[k] = v
	}
	return out
}

// Store is the guarded, versioned twin configuration record.
type Store struct {
	mu sync.Mutex

	config           Configuration
	lastUpdateTime   time.Time
	lastUpdateResult UpdateResult
	bundleStatus     map[string]FieldStatus
	subObjectName    string
}

// New constructs a Store populated with every field's default value, exactly
// as Init does: lastUpdateResult starts Ok.
func New(subObjectName string) *Store {
	return &Store{
		config:           defaultConfiguration(),
		lastUpdateResult: UpdateOk,
		bundleStatus:     map[string]FieldStatus{},
		subObjectName:    subObjectName,
	}
}

// wireField is the envelope each recognized field arrives in:
// {"<fieldName>": {"value": <scalar-or-duration>}, ...}.
type wireField struct {
	Value json.RawMessage `json:"value"`
}

// Update parses json, locates the configured sub-object, and applies every
// recognized field under a single lock. A TypeMismatch on one field never
// fails the whole update; the document's own malformedness does.
func (s *Store) Update(payload []byte, complete bool) error {
	sub, parseErr := locateSubObject(payload, s.subObjectName)

	s.mu.Lock()
	defer s.mu.Unlock()

	if parseErr != nil {
		s.lastUpdateTime = time.Now()
		s.lastUpdateResult = UpdateParseException
		return errs.New("twinconfig", errs.CodeParseException, errs.WithCause(parseErr))
	}

	next := s.config.clone()
	status := make(map[string]FieldStatus, len(fieldTable))

	for _, f := range fieldTable {
		raw, present := sub[f.name]
		if !present {
			if complete {
				f.reset(&next)
			}
			status[f.name] = FieldMissing
			continue
		}
		var wf wireField
		if err := json.Unmarshal(raw, &wf); err != nil {
			status[f.name] = FieldTypeMismatch
			continue
		}
		if err := f.apply(&next, wf.Value); err != nil {
			status[f.name] = FieldTypeMismatch
			continue
		}
		status[f.name] = FieldOk
	}

	if complete {
		applyEventPriorities(&next, sub, true)
	} else if _, present := sub["eventPriorities"]; present {
		applyEventPriorities(&next, sub, false)
	}

	s.config = next
	s.bundleStatus = status
	s.lastUpdateTime = time.Now()
	s.lastUpdateResult = UpdateOk
	return nil
}

func locateSubObject(payload []byte, subObjectName string) (map[string]json.RawMessage, error) {
	var root map[string]json.RawMessage
	if err := json.Unmarshal(payload, &root); err != nil {
		return nil, err
	}

	if desiredRaw, ok := root["desired"]; ok {
		var desired map[string]json.RawMessage
		if err := json.Unmarshal(desiredRaw, &desired); err == nil {
			if subRaw, ok := desired[subObjectName]; ok {
				var sub map[string]json.RawMessage
				if err := json.Unmarshal(subRaw, &sub); err == nil {
					return sub, nil
				}
			}
		}
	}

	if subRaw, ok := root[subObjectName]; ok {
		var sub map[string]json.RawMessage
		if err := json.Unmarshal(subRaw, &sub); err == nil {
			return sub, nil
		}
	}

	// Partial updates may be pushed at the document root, without the
	// sub-object wrapper.
	return root, nil
}

func applyEventPriorities(cfg *Configuration, sub map[string]json.RawMessage, complete bool) {
	raw, present := sub["eventPriorities"]
	if !present {
		if complete {
			cfg.EventPriorities = map[string]EventPriority{}
		}
		return
	}
	var wf wireField
	if err := json.Unmarshal(raw, &wf); err != nil {
		return
	}
	var entries map[string]string
	if err := json.Unmarshal(wf.Value, &entries); err != nil {
		return
	}
	next := map[string]EventPriority{}
	if !complete {
		for k, v := range cfg.EventPriorities {
			next[k] = v
		}
	}
	for name, value := range entries {
		switch EventPriority(value) {
		case PriorityHigh, PriorityLow, PriorityOff:
			next[name] = EventPriority(value)
		}
	}
	cfg.EventPriorities = next
}

// --- getters: each returns a value copy under lock ---

// MaxLocalCacheSize satisfies memmon.LimitSource.
func (s *Store) MaxLocalCacheSize() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.config.MaxLocalCacheSize
}

// MaxMessageSize returns the current per-envelope byte budget.
func (s *Store) MaxMessageSize() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.config.MaxMessageSize
}

// HighPriorityMessageFrequencyMs returns the high-priority publish cadence.
func (s *Store) HighPriorityMessageFrequencyMs() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.config.HighPriorityMessageFrequencyMs
}

// LowPriorityMessageFrequencyMs returns the low-priority publish cadence.
func (s *Store) LowPriorityMessageFrequencyMs() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.config.LowPriorityMessageFrequencyMs
}

// SnapshotFrequencyMs returns the periodic-collector gating cadence.
func (s *Store) SnapshotFrequencyMs() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.config.SnapshotFrequencyMs
}

// BaselineCustomChecksEnabled reports whether the baseline rule engine is enabled.
func (s *Store) BaselineCustomChecksEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.config.BaselineCustomChecksEnabled
}

// EventPriority returns the configured routing for the named event, defaulting to Off.
func (s *Store) EventPriority(eventName string) EventPriority {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.config.EventPriorities[eventName]; ok {
		return p
	}
	return PriorityOff
}

// Snapshot returns a full value copy of the current configuration.
func (s *Store) Snapshot() Configuration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.config.clone()
}

// GetSerializedTwinConfiguration re-serializes the current record for
// reported-properties acknowledgement. The caller owns the returned buffer.
func (s *Store) GetSerializedTwinConfiguration() ([]byte, error) {
	s.mu.Lock()
	cfg := s.config.clone()
	s.mu.Unlock()

	doc := map[string]any{
		"maxLocalCacheSize":            wrapValue(cfg.MaxLocalCacheSize),
		"maxMessageSize":                wrapValue(cfg.MaxMessageSize),
		"lowPriorityMessageFrequency":   wrapValue(duration.Format(cfg.LowPriorityMessageFrequencyMs)),
		"highPriorityMessageFrequency":  wrapValue(duration.Format(cfg.HighPriorityMessageFrequencyMs)),
		"snapshotFrequency":             wrapValue(duration.Format(cfg.SnapshotFrequencyMs)),
		"baselineCustomChecksEnabled":   wrapValue(cfg.BaselineCustomChecksEnabled),
		"baselineCustomChecksFilePath":  wrapValue(derefOrEmpty(cfg.BaselineCustomChecksFilePath)),
		"baselineCustomChecksFileHash":  wrapValue(derefOrEmpty(cfg.BaselineCustomChecksFileHash)),
		"eventPriorities":               wrapValue(cfg.EventPriorities),
	}
	buf, err := json.Marshal(map[string]any{s.subObjectName: doc})
	if err != nil {
		return nil, errs.New("twinconfig", errs.CodeParseException, errs.WithCause(err))
	}
	return buf, nil
}

// GetLastTwinUpdateData returns the timestamp, overall result, and per-field
// status of the most recent Update call.
func (s *Store) GetLastTwinUpdateData() (time.Time, UpdateResult, map[string]FieldStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	status := make(map[string]FieldStatus, len(s.bundleStatus))
	for k, v := range s.bundleStatus {
		status[k] = v
	}
	return s.lastUpdateTime, s.lastUpdateResult, status
}

func wrapValue(v any) map[string]any {
	return map[string]any{"value": v}
}

func derefOrEmpty(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func readInt64(raw json.RawMessage) (int64, error) {
	var n int64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, err
	}
	return strconv.ParseInt(s, 10, 64)
}

func readBool(raw json.RawMessage) (bool, error) {
	var b bool
	if err := json.Unmarshal(raw, &b); err != nil {
		return false, err
	}
	return b, nil
}

func readString(raw json.RawMessage) (*string, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func readDurationMs(raw json.RawMessage) (int64, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, err
	}
	return duration.Parse(s)
}

type field struct {
	name  string
	apply func(cfg *Configuration, raw json.RawMessage) error
	reset func(cfg *Configuration)
}

var fieldTable = []field{
	{
		name: "maxLocalCacheSize",
		apply: func(cfg *Configuration, raw json.RawMessage) error {
			v, err := readInt64(raw)
			if err != nil {
				return err
			}
			cfg.MaxLocalCacheSize = v
			return nil
		},
		reset: func(cfg *Configuration) { cfg.MaxLocalCacheSize = DefaultMaxLocalCacheSize },
	},
	{
		name: "maxMessageSize",
		apply: func(cfg *Configuration, raw json.RawMessage) error {
			v, err := readInt64(raw)
			if err != nil {
				return err
			}
			cfg.MaxMessageSize = v
			return nil
		},
		reset: func(cfg *Configuration) { cfg.MaxMessageSize = DefaultMaxMessageSize },
	},
	{
		name: "lowPriorityMessageFrequency",
		apply: func(cfg *Configuration, raw json.RawMessage) error {
			v, err := readDurationMs(raw)
			if err != nil {
				return err
			}
			cfg.LowPriorityMessageFrequencyMs = v
			return nil
		},
		reset: func(cfg *Configuration) { cfg.LowPriorityMessageFrequencyMs = DefaultLowPriorityMessageFrequencyMs },
	},
	{
		name: "highPriorityMessageFrequency",
		apply: func(cfg *Configuration, raw json.RawMessage) error {
			v, err := readDurationMs(raw)
			if err != nil {
				return err
			}
			cfg.HighPriorityMessageFrequencyMs = v
			return nil
		},
		reset: func(cfg *Configuration) { cfg.HighPriorityMessageFrequencyMs = DefaultHighPriorityMessageFrequencyMs },
	},
	{
		name: "snapshotFrequency",
		apply: func(cfg *Configuration, raw json.RawMessage) error {
			v, err := readDurationMs(raw)
			if err != nil {
				return err
			}
			cfg.SnapshotFrequencyMs = v
			return nil
		},
		reset: func(cfg *Configuration) { cfg.SnapshotFrequencyMs = DefaultSnapshotFrequencyMs },
	},
	{
		name: "baselineCustomChecksEnabled",
		apply: func(cfg *Configuration, raw json.RawMessage) error {
			v, err := readBool(raw)
			if err != nil {
				return err
			}
			cfg.BaselineCustomChecksEnabled = v
			return nil
		},
		reset: func(cfg *Configuration) { cfg.BaselineCustomChecksEnabled = false },
	},
	{
		name: "baselineCustomChecksFilePath",
		apply: func(cfg *Configuration, raw json.RawMessage) error {
			v, err := readString(raw)
			if err != nil {
				return err
			}
			cfg.BaselineCustomChecksFilePath = v
			return nil
		},
		reset: func(cfg *Configuration) { cfg.BaselineCustomChecksFilePath = nil },
	},
	{
		name: "baselineCustomChecksFileHash",
		apply: func(cfg *Configuration, raw json.RawMessage) error {
			v, err := readString(raw)
			if err != nil {
				return err
			}
			cfg.BaselineCustomChecksFileHash = v
			return nil
		},
		reset: func(cfg *Configuration) { cfg.BaselineCustomChecksFileHash = nil },
	},
}
