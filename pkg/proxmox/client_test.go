package proxmox

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNodeStatusParsesResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api2/json/nodes/pve1/status", r.URL.Path)
		assert.Equal(t, "PVEAPIToken=monitor@pam!pvewatch=secret", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{
			"cpu": 0.853,
			"memory": {"used": 8589934592, "total": 17179869184, "free": 8589934592},
			"rootfs": {"used": 53687091200, "total": 107374182400, "free": 53687091200},
			"uptime": 360000,
			"loadavg": ["1.25", "0.80", "0.50"]
		}}`))
	}))
	defer server.Close()

	client := NewClient(Config{
		APIURL:      server.URL,
		TokenID:     "monitor@pam!pvewatch",
		TokenSecret: "secret",
	})

	status, err := client.NodeStatus(context.Background(), "pve1")
	require.NoError(t, err)

	assert.Equal(t, "pve1", status.Node)
	assert.InDelta(t, 85.3, status.CPUPercent, 0.001)
	assert.InDelta(t, 50.0, status.Memory.Percent(), 0.001)
	assert.InDelta(t, 50.0, status.Disk.Percent(), 0.001)
	assert.Equal(t, int64(360000), status.UptimeSeconds)
	assert.Equal(t, [3]float64{1.25, 0.80, 0.50}, status.LoadAvg)
}

func TestNodeStatusErrorsOnBadStatusCode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewClient(Config{APIURL: server.URL})
	_, err := client.NodeStatus(context.Background(), "pve1")
	assert.ErrorContains(t, err, "unexpected status code: 401")
}

func TestListWorkloadsFiltersNonVMTypes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api2/json/cluster/resources", r.URL.Path)
		assert.Equal(t, "vm", r.URL.Query().Get("type"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":[
			{"vmid": 100, "node": "pve1", "name": "web", "type": "qemu", "status": "running"},
			{"vmid": 101, "node": "pve2", "name": "cache", "type": "lxc", "status": "stopped"},
			{"node": "pve1", "type": "storage", "status": "available"}
		]}`))
	}))
	defer server.Close()

	client := NewClient(Config{APIURL: server.URL})
	workloads, err := client.ListWorkloads(context.Background())
	require.NoError(t, err)

	require.Len(t, workloads, 2)
	assert.Equal(t, Workload{Node: "pve1", ID: "100", Name: "web", Type: "qemu", Status: "running"}, workloads[0])
	assert.Equal(t, Workload{Node: "pve2", ID: "101", Name: "cache", Type: "lxc", Status: "stopped"}, workloads[1])
}

func TestMetricValue(t *testing.T) {
	status := &NodeStatus{
		CPUPercent: 42.0,
		Memory:     ResourceUsage{Used: 3, Total: 4},
		Disk:       ResourceUsage{Used: 9, Total: 10},
	}

	v, ok := status.MetricValue(MetricCPU)
	require.True(t, ok)
	assert.Equal(t, 42.0, v)

	v, ok = status.MetricValue(MetricMemory)
	require.True(t, ok)
	assert.Equal(t, 75.0, v)

	v, ok = status.MetricValue(MetricDisk)
	require.True(t, ok)
	assert.Equal(t, 90.0, v)

	_, ok = status.MetricValue("network")
	assert.False(t, ok)
}
