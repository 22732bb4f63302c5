package proxmox

import "context"

// Metric names derived from a node status sample.
const (
	MetricCPU    = "cpu"
	MetricMemory = "memory"
	MetricDisk   = "disk"
)

// MetricNames lists every metric the collector derives per node.
var MetricNames = []string{MetricCPU, MetricMemory, MetricDisk}

// ResourceUsage holds byte counters for a capacity-bound resource.
type ResourceUsage struct {
	Used  int64 `json:"used"`
	Total int64 `json:"total"`
	Free  int64 `json:"free"`
}

// Percent returns used/total as a percentage, 0 when total is unknown.
func (r ResourceUsage) Percent() float64 {
	if r.Total <= 0 {
		return 0
	}
	return float64(r.Used) / float64(r.Total) * 100
}

// NodeStatus is one hypervisor's resource utilization at sample time. It is
// ephemeral; only derived percentages are persisted.
type NodeStatus struct {
	Node          string        `json:"node"`
	CPUPercent    float64       `json:"cpu_percent"`
	Memory        ResourceUsage `json:"memory"`
	Disk          ResourceUsage `json:"disk"`
	UptimeSeconds int64         `json:"uptime_seconds"`
	LoadAvg       [3]float64    `json:"load_avg"`
}

// MetricValue returns the current percentage for a metric name, with ok
// false for unknown names.
func (s *NodeStatus) MetricValue(metric string) (float64, bool) {
	switch metric {
	case MetricCPU:
		return s.CPUPercent, true
	case MetricMemory:
		return s.Memory.Percent(), true
	case MetricDisk:
		return s.Disk.Percent(), true
	}
	return 0, false
}

// Workload run states as reported by the cluster.
const (
	StateRunning = "running"
	StateStopped = "stopped"
)

// Workload is a VM or container instance on a node.
type Workload struct {
	Node   string `json:"node"`
	ID     string `json:"vmid"`
	Name   string `json:"name"`
	Type   string `json:"type"` // qemu or lxc
	Status string `json:"status"`
}

// StatusSource provides per-node utilization samples. Each call may fail or
// time out independently of other nodes.
type StatusSource interface {
	NodeStatus(ctx context.Context, node string) (*NodeStatus, error)
}

// WorkloadSource provides the cluster-wide workload inventory.
type WorkloadSource interface {
	ListWorkloads(ctx context.Context) ([]Workload, error)
}
