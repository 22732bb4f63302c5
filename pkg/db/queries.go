package db

import (
	"context"
	"database/sql"
	"time"
)

// Queries provides typed access to the pvewatch schema.
type Queries struct {
	db *sql.DB
}

func New(database *sql.DB) *Queries {
	return &Queries{db: database}
}

func (q *Queries) DB() *sql.DB { return q.db }

func (q *Queries) Close() error { return q.db.Close() }

// CreateMetricPointParams holds the fields for an append.
type CreateMetricPointParams struct {
	Node      string
	Metric    string
	Value     float64
	Timestamp time.Time
}

func (q *Queries) CreateMetricPoint(ctx context.Context, params CreateMetricPointParams) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO metric_points (node, metric, value, ts) VALUES (?, ?, ?, ?)`,
		params.Node, params.Metric, params.Value, params.Timestamp.UTC())
	return err
}

func (q *Queries) ListMetricPointsSince(ctx context.Context, node, metric string, since time.Time) ([]MetricPoint, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, node, metric, value, ts FROM metric_points
		 WHERE node = ? AND metric = ? AND ts >= ?
		 ORDER BY ts ASC`,
		node, metric, since.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []MetricPoint
	for rows.Next() {
		var p MetricPoint
		if err := rows.Scan(&p.ID, &p.Node, &p.Metric, &p.Value, &p.Timestamp); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (q *Queries) DeleteMetricPointsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := q.db.ExecContext(ctx, `DELETE FROM metric_points WHERE ts < ?`, cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (q *Queries) ListAlertThresholds(ctx context.Context) ([]AlertThreshold, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT metric, threshold_percent, enabled, updated_at FROM alert_thresholds ORDER BY metric`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AlertThreshold
	for rows.Next() {
		var t AlertThreshold
		if err := rows.Scan(&t.Metric, &t.ThresholdPercent, &t.Enabled, &t.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (q *Queries) GetAlertThreshold(ctx context.Context, metric string) (*AlertThreshold, error) {
	var t AlertThreshold
	err := q.db.QueryRowContext(ctx,
		`SELECT metric, threshold_percent, enabled, updated_at FROM alert_thresholds WHERE metric = ?`,
		metric).Scan(&t.Metric, &t.ThresholdPercent, &t.Enabled, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// UpdateAlertThresholdParams mutates one threshold row.
type UpdateAlertThresholdParams struct {
	Metric           string
	ThresholdPercent float64
	Enabled          bool
}

func (q *Queries) UpdateAlertThreshold(ctx context.Context, params UpdateAlertThresholdParams) (*AlertThreshold, error) {
	_, err := q.db.ExecContext(ctx,
		`UPDATE alert_thresholds SET threshold_percent = ?, enabled = ?, updated_at = ? WHERE metric = ?`,
		params.ThresholdPercent, params.Enabled, time.Now().UTC(), params.Metric)
	if err != nil {
		return nil, err
	}
	return q.GetAlertThreshold(ctx, params.Metric)
}

// SeedAlertThreshold inserts the default row for a metric if it does not
// exist yet; existing operator settings are never overwritten.
func (q *Queries) SeedAlertThreshold(ctx context.Context, metric string, thresholdPercent float64) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO alert_thresholds (metric, threshold_percent, enabled, updated_at)
		 VALUES (?, ?, 1, ?)
		 ON CONFLICT(metric) DO NOTHING`,
		metric, thresholdPercent, time.Now().UTC())
	return err
}

// CreateAlertHistoryEntryParams holds the fields for a fired alert.
type CreateAlertHistoryEntryParams struct {
	Node      string
	Metric    string
	Value     float64
	Threshold float64
	Message   string
	CreatedAt time.Time
}

func (q *Queries) CreateAlertHistoryEntry(ctx context.Context, params CreateAlertHistoryEntryParams) (int64, error) {
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO alert_history (node, metric, value, threshold, message, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		params.Node, params.Metric, params.Value, params.Threshold, params.Message, params.CreatedAt.UTC())
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (q *Queries) ListAlertHistory(ctx context.Context, limit int) ([]AlertHistoryEntry, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, node, metric, value, threshold, message, created_at FROM alert_history
		 ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AlertHistoryEntry
	for rows.Next() {
		var e AlertHistoryEntry
		if err := rows.Scan(&e.ID, &e.Node, &e.Metric, &e.Value, &e.Threshold, &e.Message, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// PruneAlertHistory keeps only the most recent keep entries.
func (q *Queries) PruneAlertHistory(ctx context.Context, keep int) (int64, error) {
	res, err := q.db.ExecContext(ctx,
		`DELETE FROM alert_history WHERE id NOT IN (
			SELECT id FROM alert_history ORDER BY id DESC LIMIT ?
		)`, keep)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (q *Queries) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := q.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err != nil {
		return "", err
	}
	return value, nil
}

func (q *Queries) UpsertSetting(ctx context.Context, key, value string) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC())
	return err
}
