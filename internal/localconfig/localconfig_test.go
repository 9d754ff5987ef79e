package localconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestLoadOrDefaultReturnsDefaultsWhenFileAbsent(t *testing.T) {
	settings, err := LoadOrDefault(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)
	require.NoError(t, settings.Validate())
	require.Equal(t, DefaultTriggeredEventIntervalMs, settings.TriggeredEventIntervalMs)
	require.Equal(t, DefaultTwinSubObjectName, settings.TwinSubObjectName)
}

func TestLoadOrDefaultParsesConnectionStringDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	body := `{
		"connectionString": "HostName=hub.azure-devices.net;DeviceId=agent-1;SharedAccessKey=abc",
		"agentId": "` + uuid.NewString() + `",
		"connectionTimeoutMs": 45000,
		"twinSubObjectName": "SecurityModule"
	}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	settings, err := LoadOrDefault(path)
	require.NoError(t, err)
	require.Equal(t, int64(45000), settings.ConnectionTimeoutMs)
	require.Equal(t, "SecurityModule", settings.TwinSubObjectName)
	require.False(t, settings.UsingDPS())
}

func TestValidateRejectsMalformedAgentID(t *testing.T) {
	s := Default()
	s.AgentID = "not-a-uuid"
	s.ConnectionString = "HostName=hub;DeviceId=x;SharedAccessKey=y"
	require.Error(t, s.Validate())
}

func TestValidateRejectsMissingConnectionIdentity(t *testing.T) {
	s := Default()
	s.ConnectionString = ""
	require.Error(t, s.Validate())
}

func TestValidateAcceptsCompleteDPSProvisioning(t *testing.T) {
	s := Default()
	s.ConnectionString = ""
	s.DPS = DPSProvisioning{IDScope: "0ne1234", RegistrationID: "agent-1", SymmetricKey: "key"}
	require.NoError(t, s.Validate())
	require.True(t, s.UsingDPS())
}

func TestValidateRejectsOutOfRangeSeverity(t *testing.T) {
	s := Default()
	s.ConnectionString = "HostName=hub;DeviceId=x;SharedAccessKey=y"
	s.LocalLogSeverity = Severity(9)
	require.Error(t, s.Validate())
}
