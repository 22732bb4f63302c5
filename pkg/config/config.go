package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultSchedule runs a collection tick every 5 minutes.
const DefaultSchedule = "*/5 * * * *"

// Config holds the full runtime configuration. Values come from an optional
// YAML file overridden by environment variables.
type Config struct {
	HTTPAddr      string        `yaml:"http_addr"`
	DBPath        string        `yaml:"db_path"`
	LogLevel      string        `yaml:"log_level"`
	Schedule      string        `yaml:"schedule"`
	RetentionDays int           `yaml:"retention_days"`
	Proxmox       ProxmoxConfig `yaml:"proxmox"`
	Notify        NotifyConfig  `yaml:"notify"`
}

// ProxmoxConfig describes how to reach the cluster API.
type ProxmoxConfig struct {
	APIURL      string   `yaml:"api_url"`
	TokenID     string   `yaml:"token_id"`
	TokenSecret string   `yaml:"token_secret"`
	InsecureTLS bool     `yaml:"insecure_tls"`
	Nodes       []string `yaml:"nodes"`
}

// NotifyConfig describes the notification sinks. An empty WebhookURL and
// SMTP host disables delivery; collection and evaluation continue regardless.
type NotifyConfig struct {
	WebhookURL string     `yaml:"webhook_url"`
	SMTP       SMTPConfig `yaml:"smtp"`
}

type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
	To       string `yaml:"to"`
	TLS      bool   `yaml:"tls"`
}

// Load builds the configuration from the optional YAML file at path (empty
// path skips the file) and the environment. Environment variables win.
func Load(path string) (*Config, error) {
	cfg := &Config{
		HTTPAddr:      ":8200",
		DBPath:        "data/pvewatch.db",
		LogLevel:      "info",
		Schedule:      DefaultSchedule,
		RetentionDays: 7,
		Proxmox: ProxmoxConfig{
			APIURL: "https://localhost:8006",
		},
		Notify: NotifyConfig{
			SMTP: SMTPConfig{Port: 587},
		},
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.HTTPAddr = getenv("PVEWATCH_ADDR", cfg.HTTPAddr)
	cfg.DBPath = getenv("PVEWATCH_DB_PATH", cfg.DBPath)
	cfg.LogLevel = getenv("PVEWATCH_LOG_LEVEL", cfg.LogLevel)
	cfg.Schedule = getenv("PVEWATCH_SCHEDULE", cfg.Schedule)
	cfg.RetentionDays = getenvInt("PVEWATCH_RETENTION_DAYS", cfg.RetentionDays)

	cfg.Proxmox.APIURL = getenv("PVE_API_URL", cfg.Proxmox.APIURL)
	cfg.Proxmox.TokenID = getenv("PVE_TOKEN_ID", cfg.Proxmox.TokenID)
	cfg.Proxmox.TokenSecret = getenv("PVE_TOKEN_SECRET", cfg.Proxmox.TokenSecret)
	cfg.Proxmox.InsecureTLS = getenvBool("PVE_INSECURE_TLS", cfg.Proxmox.InsecureTLS)
	if nodes := os.Getenv("PVEWATCH_NODES"); nodes != "" {
		cfg.Proxmox.Nodes = splitNodes(nodes)
	}

	cfg.Notify.WebhookURL = getenv("PVEWATCH_WEBHOOK_URL", cfg.Notify.WebhookURL)
	cfg.Notify.SMTP.Host = getenv("PVEWATCH_SMTP_HOST", cfg.Notify.SMTP.Host)
	cfg.Notify.SMTP.Port = getenvInt("PVEWATCH_SMTP_PORT", cfg.Notify.SMTP.Port)
	cfg.Notify.SMTP.Username = getenv("PVEWATCH_SMTP_USER", cfg.Notify.SMTP.Username)
	cfg.Notify.SMTP.Password = getenv("PVEWATCH_SMTP_PASSWORD", cfg.Notify.SMTP.Password)
	cfg.Notify.SMTP.From = getenv("PVEWATCH_SMTP_FROM", cfg.Notify.SMTP.From)
	cfg.Notify.SMTP.To = getenv("PVEWATCH_SMTP_TO", cfg.Notify.SMTP.To)
	cfg.Notify.SMTP.TLS = getenvBool("PVEWATCH_SMTP_TLS", cfg.Notify.SMTP.TLS)

	if cfg.RetentionDays <= 0 {
		cfg.RetentionDays = 7
	}
	if cfg.Schedule == "" {
		cfg.Schedule = DefaultSchedule
	}

	return cfg, nil
}

func splitNodes(raw string) []string {
	parts := strings.Split(raw, ",")
	nodes := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			nodes = append(nodes, trimmed)
		}
	}
	return nodes
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getenvBool(key string, fallback bool) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch v {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return fallback
}
