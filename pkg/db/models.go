package db

import "time"

// MetricPoint is a single sample in the bounded time-series history.
// Points are append-only and ordered by timestamp within a (node, metric)
// partition.
type MetricPoint struct {
	ID        int64     `json:"id"`
	Node      string    `json:"node"`
	Metric    string    `json:"metric"`
	Value     float64   `json:"value"`
	Timestamp time.Time `json:"timestamp"`
}

// AlertThreshold is the operator-configured alerting rule for one metric.
type AlertThreshold struct {
	Metric           string    `json:"metric"`
	ThresholdPercent float64   `json:"threshold_percent"`
	Enabled          bool      `json:"enabled"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// AlertHistoryEntry records a fired alert, written only after the cooldown
// check passed.
type AlertHistoryEntry struct {
	ID        int64     `json:"id"`
	Node      string    `json:"node"`
	Metric    string    `json:"metric"`
	Value     float64   `json:"value"`
	Threshold float64   `json:"threshold"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// Setting is an opaque key/value configuration row.
type Setting struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}
