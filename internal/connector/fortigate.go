package connector

import (
	"net/http"

	"github.com/OPSDECK/opsdeck/internal/models"
)

// NewFortigate builds the firewall connector. FortiGate deployments commonly
// run with self-signed certificates, so instances for this family are the
// usual consumers of the allow_self_signed transport option.
func NewFortigate() Connector {
	return &restConnector{
		name:         "fortigate",
		apiKeyHeader: "Authorization",
		probePath:    "/api/v2/monitor/system/status",
		catalogue: []models.QueryDef{
			{ID: "system-status", Method: http.MethodGet, Path: "/api/v2/monitor/system/status", Description: "Firmware version, serial and HA state"},
			{ID: "interfaces", Method: http.MethodGet, Path: "/api/v2/monitor/system/interface", Description: "Interface traffic counters"},
			{ID: "policies", Method: http.MethodGet, Path: "/api/v2/cmdb/firewall/policy", Description: "Configured firewall policies"},
			{ID: "sessions", Method: http.MethodGet, Path: "/api/v2/monitor/system/session", Description: "Active session table summary"},
			{ID: "vpn-tunnels", Method: http.MethodGet, Path: "/api/v2/monitor/vpn/ipsec", Description: "IPsec tunnel status"},
		},
		extractRecords: recordsUnder("results"),
	}
}
