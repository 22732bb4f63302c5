package alerts

import (
	"context"
	"fmt"

	"github.com/pvewatch/pvewatch/pkg/db"
	"github.com/pvewatch/pvewatch/pkg/logger"
	"github.com/pvewatch/pvewatch/pkg/notifications"
	"github.com/pvewatch/pvewatch/pkg/proxmox"
	"github.com/pvewatch/pvewatch/pkg/thresholds"
)

// Evaluator checks collected node metrics against the configured thresholds
// and fires alerts for breaches.
type Evaluator struct {
	thresholds *thresholds.Service
	store      *Store
	cooldowns  *CooldownTracker
	notifier   notifications.Sender
	logger     *logger.Logger
}

func NewEvaluator(
	thresholdService *thresholds.Service,
	store *Store,
	cooldowns *CooldownTracker,
	notifier notifications.Sender,
	logger *logger.Logger,
) *Evaluator {
	return &Evaluator{
		thresholds: thresholdService,
		store:      store,
		cooldowns:  cooldowns,
		notifier:   notifier,
		logger:     logger,
	}
}

// Evaluate runs every enabled threshold against every collected node status.
// A breach that is off cooldown fires exactly one alert; the cooldown window
// starts regardless of whether history write or delivery succeeded.
func (e *Evaluator) Evaluate(ctx context.Context, statuses map[string]*proxmox.NodeStatus) error {
	rules, err := e.thresholds.List(ctx)
	if err != nil {
		return err
	}

	for node, status := range statuses {
		if status == nil {
			continue
		}
		for _, rule := range rules {
			if !rule.Enabled {
				continue
			}
			value, ok := status.MetricValue(rule.Metric)
			if !ok {
				e.logger.Warn("Skipping threshold for unknown metric", "metric", rule.Metric)
				continue
			}
			if value < rule.ThresholdPercent {
				continue
			}
			if e.cooldowns.OnCooldown(node, rule.Metric) {
				e.logger.Debug("Alert suppressed by cooldown", "node", node, "metric", rule.Metric, "value", value)
				continue
			}
			e.fire(ctx, node, rule, value)
		}
	}
	return nil
}

func (e *Evaluator) fire(ctx context.Context, node string, rule db.AlertThreshold, value float64) {
	message := fmt.Sprintf("%s usage on %s is %.1f%% (threshold %.0f%%)",
		metricLabel(rule.Metric), node, value, rule.ThresholdPercent)
	e.logger.Warn("Threshold breached", "node", node, "metric", rule.Metric, "value", value, "threshold", rule.ThresholdPercent)

	if err := e.store.Record(ctx, node, rule.Metric, value, rule.ThresholdPercent, message); err != nil {
		e.logger.Error("Failed to record alert history", "node", node, "metric", rule.Metric, "error", err)
	}

	notification := notifications.Notification{
		Title:    fmt.Sprintf("%s alert: %s", metricLabel(rule.Metric), node),
		Body:     message,
		Severity: notifications.SeverityCritical,
	}
	if err := e.notifier.Send(ctx, notification); err != nil {
		e.logger.Error("Failed to deliver alert notification", "node", node, "metric", rule.Metric, "error", err)
	}

	// The window starts now even if persistence or delivery failed, so a
	// flapping sink cannot turn one breach into a notification storm.
	e.cooldowns.MarkFired(node, rule.Metric)
}

func metricLabel(metric string) string {
	switch metric {
	case proxmox.MetricCPU:
		return "CPU"
	case proxmox.MetricMemory:
		return "Memory"
	case proxmox.MetricDisk:
		return "Disk"
	default:
		return metric
	}
}
