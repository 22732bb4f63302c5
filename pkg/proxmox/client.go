package proxmox

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// requestTimeout bounds every API call; the scheduler's next tick is the
// retry mechanism, so there is no in-call retry.
const requestTimeout = 15 * time.Second

// Config holds the connection settings for a Proxmox VE cluster API.
type Config struct {
	// APIURL is the base URL, e.g. https://pve.example.com:8006
	APIURL string
	// TokenID is the API token identifier, e.g. monitor@pam!pvewatch
	TokenID string
	// TokenSecret is the API token secret
	TokenSecret string
	// InsecureTLS skips certificate verification for self-signed clusters
	InsecureTLS bool
}

// Client talks to the Proxmox VE HTTP API. It implements StatusSource and
// WorkloadSource.
type Client struct {
	baseURL    string
	authHeader string
	httpClient *http.Client
}

// NewClient creates a Proxmox API client with a fixed request timeout.
func NewClient(config Config) *Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if config.InsecureTLS {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return &Client{
		baseURL:    strings.TrimRight(config.APIURL, "/"),
		authHeader: fmt.Sprintf("PVEAPIToken=%s=%s", config.TokenID, config.TokenSecret),
		httpClient: &http.Client{
			Timeout:   requestTimeout,
			Transport: transport,
		},
	}
}

type nodeStatusResponse struct {
	Data struct {
		CPU    float64 `json:"cpu"` // fraction 0..1
		Memory struct {
			Used  int64 `json:"used"`
			Total int64 `json:"total"`
			Free  int64 `json:"free"`
		} `json:"memory"`
		RootFS struct {
			Used  int64 `json:"used"`
			Total int64 `json:"total"`
			Free  int64 `json:"free"`
		} `json:"rootfs"`
		Uptime  int64         `json:"uptime"`
		LoadAvg []json.Number `json:"loadavg"`
	} `json:"data"`
}

// NodeStatus fetches current utilization for one node.
func (c *Client) NodeStatus(ctx context.Context, node string) (*NodeStatus, error) {
	var resp nodeStatusResponse
	path := fmt.Sprintf("/api2/json/nodes/%s/status", node)
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, errors.Wrapf(err, "failed to fetch status for node %s", node)
	}

	status := &NodeStatus{
		Node:       node,
		CPUPercent: resp.Data.CPU * 100,
		Memory: ResourceUsage{
			Used:  resp.Data.Memory.Used,
			Total: resp.Data.Memory.Total,
			Free:  resp.Data.Memory.Free,
		},
		Disk: ResourceUsage{
			Used:  resp.Data.RootFS.Used,
			Total: resp.Data.RootFS.Total,
			Free:  resp.Data.RootFS.Free,
		},
		UptimeSeconds: resp.Data.Uptime,
	}

	// loadavg arrives as strings on most PVE versions
	for i, raw := range resp.Data.LoadAvg {
		if i >= 3 {
			break
		}
		if v, err := strconv.ParseFloat(raw.String(), 64); err == nil {
			status.LoadAvg[i] = v
		}
	}

	return status, nil
}

type clusterResourcesResponse struct {
	Data []struct {
		VMID   json.Number `json:"vmid"`
		Node   string      `json:"node"`
		Name   string      `json:"name"`
		Type   string      `json:"type"`
		Status string      `json:"status"`
	} `json:"data"`
}

// ListWorkloads fetches the cluster-wide VM and container inventory. A
// failure here is a whole-sub-step failure; there is no per-node partial
// result on this endpoint.
func (c *Client) ListWorkloads(ctx context.Context) ([]Workload, error) {
	var resp clusterResourcesResponse
	if err := c.get(ctx, "/api2/json/cluster/resources?type=vm", &resp); err != nil {
		return nil, errors.Wrap(err, "failed to list workloads")
	}

	workloads := make([]Workload, 0, len(resp.Data))
	for _, item := range resp.Data {
		if item.Type != "qemu" && item.Type != "lxc" {
			continue
		}
		workloads = append(workloads, Workload{
			Node:   item.Node,
			ID:     item.VMID.String(),
			Name:   item.Name,
			Type:   item.Type,
			Status: item.Status,
		})
	}
	return workloads, nil
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", c.authHeader)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
