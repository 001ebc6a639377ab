package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

const minimalConfig = `
mqtt:
  broker: tcp://localhost:1883
groups:
  - name: Living Room
    main_lights: [ceiling-1, ceiling-2]
    auxiliary_lights: [shelf-1]
`

func TestLoad_Minimal(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.MQTT.Broker != "tcp://localhost:1883" {
		t.Errorf("Broker = %q", cfg.MQTT.Broker)
	}
	if len(cfg.Groups) != 1 {
		t.Fatalf("Groups = %d, want 1", len(cfg.Groups))
	}
	g := cfg.Groups[0]
	if g.Name != "Living Room" || len(g.MainLights) != 2 || len(g.AuxLights) != 1 {
		t.Errorf("Group = %+v", g)
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.MQTT.TopicPrefix != "virtlight" {
		t.Errorf("TopicPrefix = %q, want virtlight", cfg.MQTT.TopicPrefix)
	}
	if cfg.MQTT.QoS != 1 {
		t.Errorf("QoS = %d, want 1", cfg.MQTT.QoS)
	}
	if cfg.MQTT.CommandTimeout.Duration() != 10*time.Second {
		t.Errorf("CommandTimeout = %v", cfg.MQTT.CommandTimeout.Duration())
	}
	if cfg.Log.GetLevel() != "info" {
		t.Errorf("Log level = %q, want info", cfg.Log.GetLevel())
	}
	if cfg.API.Port != 9090 {
		t.Errorf("API port = %d, want 9090", cfg.API.Port)
	}
	if cfg.Ledger.RetentionDays != 30 {
		t.Errorf("RetentionDays = %d, want 30", cfg.Ledger.RetentionDays)
	}
	if cfg.Ledger.FlushStrategy != "immediate" {
		t.Errorf("FlushStrategy = %q, want immediate", cfg.Ledger.FlushStrategy)
	}
	if cfg.ShutdownTimeout.Duration() != 5*time.Second {
		t.Errorf("ShutdownTimeout = %v", cfg.ShutdownTimeout.Duration())
	}
}

func TestLoad_DefaultGroupName(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
mqtt:
  broker: tcp://localhost:1883
groups:
  - main_lights: [a]
`))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Groups[0].Name != DefaultGroupName {
		t.Errorf("Name = %q, want %q", cfg.Groups[0].Name, DefaultGroupName)
	}
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("TEST_BROKER", "tcp://broker.example:1883")
	cfg, err := Load(writeConfig(t, `
mqtt:
  broker: ${TEST_BROKER}
  password: ${TEST_MISSING:fallback}
groups:
  - main_lights: [a]
`))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.MQTT.Broker != "tcp://broker.example:1883" {
		t.Errorf("Broker = %q, env var not expanded", cfg.MQTT.Broker)
	}
	if cfg.MQTT.Password != "fallback" {
		t.Errorf("Password = %q, default not applied", cfg.MQTT.Password)
	}
}

func TestLoad_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "missing_broker",
			content: "groups:\n  - main_lights: [a]\n",
			wantErr: "mqtt.broker",
		},
		{
			name:    "no_groups",
			content: "mqtt:\n  broker: tcp://x:1883\n",
			wantErr: "at least one group",
		},
		{
			name: "missing_main_lights",
			content: `
mqtt:
  broker: tcp://x:1883
groups:
  - name: g
    auxiliary_lights: [b]
`,
			wantErr: "main_lights is required",
		},
		{
			name: "duplicate_names",
			content: `
mqtt:
  broker: tcp://x:1883
groups:
  - name: g
    main_lights: [a]
  - name: g
    main_lights: [b]
`,
			wantErr: "duplicate group name",
		},
		{
			name: "blank_member",
			content: `
mqtt:
  broker: tcp://x:1883
groups:
  - name: g
    main_lights: ["a", ""]
`,
			wantErr: "empty member id",
		},
		{
			name: "bad_qos",
			content: `
mqtt:
  broker: tcp://x:1883
  qos: 7
groups:
  - name: g
    main_lights: [a]
`,
			wantErr: "mqtt.qos",
		},
		{
			name: "bad_flush_strategy",
			content: `
mqtt:
  broker: tcp://x:1883
ledger:
  flush_strategy: sometimes
groups:
  - name: g
    main_lights: [a]
`,
			wantErr: "ledger.flush_strategy",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			if err == nil {
				t.Fatal("Expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Error = %q, want substring %q", err, tt.wantErr)
			}
		})
	}
}
