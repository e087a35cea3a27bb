package connector

import (
	"net/http"

	"github.com/OPSDECK/opsdeck/internal/models"
)

// NewProxmox builds the virtualization connector. API token instances put the
// full "PVEAPIToken=user@realm!name=secret" value in the Authorization header.
func NewProxmox() Connector {
	return &restConnector{
		name:         "proxmox",
		apiKeyHeader: "Authorization",
		probePath:    "/api2/json/version",
		catalogue: []models.QueryDef{
			{ID: "version", Method: http.MethodGet, Path: "/api2/json/version", Description: "PVE version and release"},
			{ID: "nodes", Method: http.MethodGet, Path: "/api2/json/nodes", Description: "Cluster nodes with CPU/memory usage"},
			{ID: "vms", Method: http.MethodGet, Path: "/api2/json/cluster/resources?type=vm", Description: "All virtual machines across the cluster"},
			{ID: "storage", Method: http.MethodGet, Path: "/api2/json/cluster/resources?type=storage", Description: "Storage pools and utilization"},
			{ID: "cluster-status", Method: http.MethodGet, Path: "/api2/json/cluster/status", Description: "Quorum and node membership"},
		},
		extractRecords: recordsUnder("data"),
	}
}
