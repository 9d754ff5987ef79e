// Package localconfig loads the agent's local configuration file: the one
// JSON document read once at process start, before any twin configuration
// exists. Modeled on the gateway's internal/infra/config load/validate/store
// pattern (RuntimeStore's Normalise/Validate shape), generalized from that
// package's YAML/JSON app config to this agent's connection/identity/log
// document.
package localconfig

import (
	"os"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/Vishwasrao1/Azure-IoT-Security-Agent-C-sub002/errs"
)

// Severity is a log sink's minimum level, 0 (Debug) through 4 (Fatal).
type Severity int

const (
	SeverityDebug Severity = iota
	SeverityInfo
	SeverityWarning
	SeverityError
	SeverityFatal
)

// DPSProvisioning holds Device Provisioning Service parameters, used instead
// of a static connection string when ConnectionString is empty.
type DPSProvisioning struct {
	IDScope        string `json:"idScope"`
	RegistrationID string `json:"registrationId"`
	SymmetricKey   string `json:"symmetricKey"`
	GlobalEndpoint string `json:"globalEndpoint"`
}

// Settings is the typed, validated local configuration document.
type Settings struct {
	ConnectionString string          `json:"connectionString"`
	DPS              DPSProvisioning `json:"dps"`

	AgentID string `json:"agentId"`

	TriggeredEventIntervalMs int64 `json:"triggeredEventIntervalMs"`
	ConnectionTimeoutMs      int64 `json:"connectionTimeoutMs"`

	LocalLogSeverity  Severity `json:"localLogMinSeverity"`
	RemoteLogSeverity Severity `json:"remoteLogMinSeverity"`

	TwinSubObjectName string `json:"twinSubObjectName"`
}

// Defaults used when the local configuration file is absent or a field is
// zero-valued.
const (
	DefaultTriggeredEventIntervalMs int64    = 1000
	DefaultConnectionTimeoutMs      int64    = 30000
	DefaultLocalLogSeverity         Severity = SeverityInfo
	DefaultRemoteLogSeverity        Severity = SeverityWarning
	DefaultTwinSubObjectName        string   = "SecurityAgent"
)

// Default returns the documented defaults with a freshly generated agent id.
// Used when no local configuration file exists.
func Default() Settings {
	return Settings{
		AgentID:                  uuid.NewString(),
		TriggeredEventIntervalMs: DefaultTriggeredEventIntervalMs,
		ConnectionTimeoutMs:      DefaultConnectionTimeoutMs,
		LocalLogSeverity:         DefaultLocalLogSeverity,
		RemoteLogSeverity:        DefaultRemoteLogSeverity,
		TwinSubObjectName:        DefaultTwinSubObjectName,
	}
}

// LoadOrDefault reads path, falling back to Default() when the file does not
// exist. A present file is always validated.
func LoadOrDefault(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	if err != nil {
		return Settings{}, errs.New("localconfig", errs.CodeInvalid, errs.WithCause(err))
	}

	settings := Default()
	if err := json.Unmarshal(data, &settings); err != nil {
		return Settings{}, errs.New("localconfig", errs.CodeParseException, errs.WithCause(err))
	}
	settings.normalise()
	if err := settings.Validate(); err != nil {
		return Settings{}, err
	}
	return settings, nil
}

func (s *Settings) normalise() {
	s.ConnectionString = strings.TrimSpace(s.ConnectionString)
	s.AgentID = strings.TrimSpace(s.AgentID)
	s.TwinSubObjectName = strings.TrimSpace(s.TwinSubObjectName)
	if s.TwinSubObjectName == "" {
		s.TwinSubObjectName = DefaultTwinSubObjectName
	}
	if s.TriggeredEventIntervalMs <= 0 {
		s.TriggeredEventIntervalMs = DefaultTriggeredEventIntervalMs
	}
	if s.ConnectionTimeoutMs <= 0 {
		s.ConnectionTimeoutMs = DefaultConnectionTimeoutMs
	}
}

// Validate checks the document is internally consistent: a usable identity
// (UUID agent id), either a connection string or complete DPS parameters,
// and in-range log severities.
func (s Settings) Validate() error {
	if _, err := uuid.Parse(s.AgentID); err != nil {
		return errs.New("localconfig", errs.CodeInvalid, errs.WithMessage("agentId must be a valid UUID"), errs.WithCause(err))
	}

	usingDPS := s.DPS.IDScope != "" || s.DPS.RegistrationID != "" || s.DPS.SymmetricKey != ""
	if s.ConnectionString == "" && !usingDPS {
		return errs.New("localconfig", errs.CodeInvalid, errs.WithMessage("either connectionString or dps parameters must be set"))
	}
	if usingDPS {
		if s.DPS.IDScope == "" || s.DPS.RegistrationID == "" || s.DPS.SymmetricKey == "" {
			return errs.New("localconfig", errs.CodeInvalid, errs.WithMessage("dps provisioning requires idScope, registrationId, and symmetricKey"))
		}
	}

	if s.LocalLogSeverity < SeverityDebug || s.LocalLogSeverity > SeverityFatal {
		return errs.New("localconfig", errs.CodeInvalid, errs.WithMessage("localLogMinSeverity must be 0-4"))
	}
	if s.RemoteLogSeverity < SeverityDebug || s.RemoteLogSeverity > SeverityFatal {
		return errs.New("localconfig", errs.CodeInvalid, errs.WithMessage("remoteLogMinSeverity must be 0-4"))
	}

	return nil
}

// UsingDPS reports whether this configuration provisions via DPS rather
// than a static connection string.
func (s Settings) UsingDPS() bool {
	return s.ConnectionString == "" && (s.DPS.IDScope != "" || s.DPS.RegistrationID != "" || s.DPS.SymmetricKey != "")
}
