package alerts

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pvewatch/pvewatch/pkg/db"
	"github.com/pvewatch/pvewatch/pkg/logger"
	"github.com/pvewatch/pvewatch/pkg/notifications"
	"github.com/pvewatch/pvewatch/pkg/proxmox"
	"github.com/pvewatch/pvewatch/pkg/thresholds"
)

type recordingSender struct {
	sent []notifications.Notification
	err  error
}

func (r *recordingSender) Send(_ context.Context, n notifications.Notification) error {
	r.sent = append(r.sent, n)
	return r.err
}

type evaluatorFixture struct {
	evaluator  *Evaluator
	thresholds *thresholds.Service
	store      *Store
	cooldowns  *CooldownTracker
	sender     *recordingSender
	clock      *time.Time
}

func newEvaluatorFixture(t *testing.T) *evaluatorFixture {
	t.Helper()
	database, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })
	require.NoError(t, db.RunMigrations(database))

	queries := db.New(database)
	log := logger.NewDefault()

	thresholdService := thresholds.NewService(queries, log)
	require.NoError(t, thresholdService.EnsureDefaults(context.Background()))

	now := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	store := NewStore(queries, log)
	store.now = func() time.Time { return now }
	cooldowns := NewCooldownTracker()
	cooldowns.now = func() time.Time { return now }
	sender := &recordingSender{}

	return &evaluatorFixture{
		evaluator:  NewEvaluator(thresholdService, store, cooldowns, sender, log),
		thresholds: thresholdService,
		store:      store,
		cooldowns:  cooldowns,
		sender:     sender,
		clock:      &now,
	}
}

func statusWith(node string, cpu, memory, disk float64) *proxmox.NodeStatus {
	return &proxmox.NodeStatus{
		Node:       node,
		CPUPercent: cpu,
		Memory:     proxmox.ResourceUsage{Used: int64(memory * 1e7), Total: 1e9},
		Disk:       proxmox.ResourceUsage{Used: int64(disk * 1e7), Total: 1e9},
	}
}

func TestEvaluateFiresOnBreach(t *testing.T) {
	f := newEvaluatorFixture(t)
	ctx := context.Background()

	statuses := map[string]*proxmox.NodeStatus{
		"pve1": statusWith("pve1", 85.3, 40, 40),
		"pve2": statusWith("pve2", 20, 40, 40),
	}
	require.NoError(t, f.evaluator.Evaluate(ctx, statuses))

	require.Len(t, f.sender.sent, 1)
	assert.Equal(t, "CPU alert: pve1", f.sender.sent[0].Title)
	assert.Equal(t, "CPU usage on pve1 is 85.3% (threshold 80%)", f.sender.sent[0].Body)
	assert.Equal(t, notifications.SeverityCritical, f.sender.sent[0].Severity)

	entries, err := f.store.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "pve1", entries[0].Node)
	assert.Equal(t, "cpu", entries[0].Metric)
	assert.Equal(t, 85.3, entries[0].Value)
	assert.Equal(t, 80.0, entries[0].Threshold)
}

func TestEvaluateValueAtThresholdFires(t *testing.T) {
	f := newEvaluatorFixture(t)

	statuses := map[string]*proxmox.NodeStatus{
		"pve1": statusWith("pve1", 80.0, 40, 40),
	}
	require.NoError(t, f.evaluator.Evaluate(context.Background(), statuses))
	require.Len(t, f.sender.sent, 1)
}

func TestEvaluateDisabledThresholdNeverFires(t *testing.T) {
	f := newEvaluatorFixture(t)
	ctx := context.Background()

	_, err := f.thresholds.Update(ctx, "cpu", 80, false)
	require.NoError(t, err)

	statuses := map[string]*proxmox.NodeStatus{
		"pve1": statusWith("pve1", 99, 40, 40),
	}
	require.NoError(t, f.evaluator.Evaluate(ctx, statuses))
	assert.Empty(t, f.sender.sent)

	entries, err := f.store.List(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestEvaluateCooldownSuppressesRepeat(t *testing.T) {
	f := newEvaluatorFixture(t)
	ctx := context.Background()

	statuses := map[string]*proxmox.NodeStatus{
		"pve1": statusWith("pve1", 90, 40, 40),
	}
	require.NoError(t, f.evaluator.Evaluate(ctx, statuses))
	require.Len(t, f.sender.sent, 1)

	// Still breaching five minutes later: suppressed
	*f.clock = f.clock.Add(5 * time.Minute)
	require.NoError(t, f.evaluator.Evaluate(ctx, statuses))
	assert.Len(t, f.sender.sent, 1)

	// Past the window: fires again
	*f.clock = f.clock.Add(11 * time.Minute)
	require.NoError(t, f.evaluator.Evaluate(ctx, statuses))
	assert.Len(t, f.sender.sent, 2)
}

func TestEvaluateCooldownStartsEvenWhenDeliveryFails(t *testing.T) {
	f := newEvaluatorFixture(t)
	f.sender.err = errors.New("sink unreachable")
	ctx := context.Background()

	statuses := map[string]*proxmox.NodeStatus{
		"pve1": statusWith("pve1", 90, 40, 40),
	}
	require.NoError(t, f.evaluator.Evaluate(ctx, statuses))
	require.Len(t, f.sender.sent, 1)

	// Delivery failed, but the pair is still silenced
	require.NoError(t, f.evaluator.Evaluate(ctx, statuses))
	assert.Len(t, f.sender.sent, 1)
	assert.True(t, f.cooldowns.OnCooldown("pve1", "cpu"))
}

func TestEvaluateMultipleMetricsIndependently(t *testing.T) {
	f := newEvaluatorFixture(t)
	ctx := context.Background()

	// cpu 90 >= 80, memory 90 >= 85, disk 50 < 90
	statuses := map[string]*proxmox.NodeStatus{
		"pve1": statusWith("pve1", 90, 90, 50),
	}
	require.NoError(t, f.evaluator.Evaluate(ctx, statuses))
	require.Len(t, f.sender.sent, 2)

	titles := []string{f.sender.sent[0].Title, f.sender.sent[1].Title}
	assert.Contains(t, titles, "CPU alert: pve1")
	assert.Contains(t, titles, "Memory alert: pve1")
}
