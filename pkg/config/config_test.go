package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8200", cfg.HTTPAddr)
	assert.Equal(t, DefaultSchedule, cfg.Schedule)
	assert.Equal(t, 7, cfg.RetentionDays)
	assert.Empty(t, cfg.Notify.WebhookURL)
}

func TestLoadYAMLFileWithEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
http_addr: ":9000"
schedule: "0 * * * *"
retention_days: 14
proxmox:
  api_url: https://pve.example.com:8006
  nodes: [pve1, pve2]
notify:
  webhook_url: https://hooks.example.com/alerts
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("PVEWATCH_SCHEDULE", "*/10 * * * *")
	t.Setenv("PVEWATCH_NODES", "pve3, pve4,")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.HTTPAddr)
	// Env wins over the file
	assert.Equal(t, "*/10 * * * *", cfg.Schedule)
	assert.Equal(t, []string{"pve3", "pve4"}, cfg.Proxmox.Nodes)
	assert.Equal(t, 14, cfg.RetentionDays)
	assert.Equal(t, "https://pve.example.com:8006", cfg.Proxmox.APIURL)
	assert.Equal(t, "https://hooks.example.com/alerts", cfg.Notify.WebhookURL)
}

func TestLoadRejectsBadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{not yaml::"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}
