package workloads

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"

	"github.com/pvewatch/pvewatch/pkg/logger"
	"github.com/pvewatch/pvewatch/pkg/notifications"
	"github.com/pvewatch/pvewatch/pkg/proxmox"
	"github.com/pvewatch/pvewatch/pkg/settings"
)

// snapshotKey is the settings row holding the last observed workload states.
const snapshotKey = "workload_state_snapshot"

// Detector compares the current workload inventory against the previous
// snapshot and notifies on start/stop transitions.
type Detector struct {
	source   proxmox.WorkloadSource
	settings *settings.Service
	notifier notifications.Sender
	logger   *logger.Logger
}

func NewDetector(
	source proxmox.WorkloadSource,
	settingsService *settings.Service,
	notifier notifications.Sender,
	logger *logger.Logger,
) *Detector {
	return &Detector{
		source:   source,
		settings: settingsService,
		notifier: notifier,
		logger:   logger,
	}
}

func workloadKey(w proxmox.Workload) string {
	return fmt.Sprintf("%s/%s", w.Node, w.ID)
}

// normalizeState collapses the cluster's run states to running/stopped;
// paused and suspended count as stopped for transition purposes.
func normalizeState(status string) string {
	if status == proxmox.StateRunning {
		return proxmox.StateRunning
	}
	return proxmox.StateStopped
}

// Detect fetches the workload inventory, diffs it against the stored
// snapshot, emits one notification per transition, then overwrites the
// snapshot with the current state. A failed inventory fetch aborts before
// the snapshot is touched so a partial outage cannot fake transitions.
func (d *Detector) Detect(ctx context.Context) error {
	workloads, err := d.source.ListWorkloads(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to list workloads")
	}

	previous, err := d.loadSnapshot(ctx)
	if err != nil {
		return err
	}

	current := make(map[string]string, len(workloads))
	names := make(map[string]string, len(workloads))
	for _, w := range workloads {
		key := workloadKey(w)
		current[key] = normalizeState(w.Status)
		names[key] = w.Name
	}

	// Transitions only exist for workloads present in both snapshots; a key
	// appearing or disappearing is a create/delete, not a state change.
	for key, state := range current {
		prevState, seen := previous[key]
		if !seen || prevState == state {
			continue
		}
		d.notifyTransition(ctx, key, names[key], state)
	}

	if err := d.saveSnapshot(ctx, current); err != nil {
		return err
	}
	return nil
}

func (d *Detector) notifyTransition(ctx context.Context, key, name, state string) {
	label := name
	if label == "" {
		label = key
	}

	var n notifications.Notification
	if state == proxmox.StateRunning {
		n = notifications.Notification{
			Title:    fmt.Sprintf("Workload started: %s", label),
			Body:     fmt.Sprintf("Workload %s (%s) changed from stopped to running", label, key),
			Severity: notifications.SeverityGood,
		}
	} else {
		n = notifications.Notification{
			Title:    fmt.Sprintf("Workload stopped: %s", label),
			Body:     fmt.Sprintf("Workload %s (%s) changed from running to stopped", label, key),
			Severity: notifications.SeverityWarning,
		}
	}

	d.logger.Info("Workload state transition", "workload", key, "state", state)
	if err := d.notifier.Send(ctx, n); err != nil {
		d.logger.Error("Failed to deliver workload notification", "workload", key, "error", err)
	}
}

func (d *Detector) loadSnapshot(ctx context.Context) (map[string]string, error) {
	raw, found, err := d.settings.Get(ctx, snapshotKey)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load workload snapshot")
	}
	if !found {
		return map[string]string{}, nil
	}

	var snapshot map[string]string
	if err := json.Unmarshal([]byte(raw), &snapshot); err != nil {
		// A corrupt snapshot is treated as a first run rather than wedging
		// detection permanently.
		d.logger.Warn("Discarding unreadable workload snapshot", "error", err)
		return map[string]string{}, nil
	}
	return snapshot, nil
}

func (d *Detector) saveSnapshot(ctx context.Context, snapshot map[string]string) error {
	raw, err := json.Marshal(snapshot)
	if err != nil {
		return errors.Wrap(err, "failed to encode workload snapshot")
	}
	if err := d.settings.Set(ctx, snapshotKey, string(raw)); err != nil {
		return errors.Wrap(err, "failed to store workload snapshot")
	}
	return nil
}
