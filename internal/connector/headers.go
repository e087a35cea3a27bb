package connector

import (
	"encoding/base64"
	"time"

	"github.com/OPSDECK/opsdeck/internal/models"
)

// TransportOptions carries the transport-level settings derived from an
// instance's SSL configuration.
type TransportOptions struct {
	InsecureSkipVerify bool
	Timeout            time.Duration
}

// BuildHeaders derives the HTTP headers for a request against the instance.
// Pure and deterministic: no network access, no side effects. Missing
// credential fields degrade to "send without credential" rather than failing;
// operators notice failed calls through error classification instead.
//
// defaultAPIKeyHeader names the header an api_key instance uses when its
// config does not name one; each connector family supplies its convention.
func BuildHeaders(inst models.SystemInstance, defaultAPIKeyHeader string) map[string]string {
	headers := make(map[string]string)

	switch inst.AuthType {
	case models.AuthBasic:
		user := inst.AuthConfig.Username
		pass := inst.AuthConfig.Password
		if user != "" && pass != "" {
			cred := base64.StdEncoding.EncodeToString([]byte(user + ":" + pass))
			headers["Authorization"] = "Basic " + cred
		}
	case models.AuthBearer:
		if inst.AuthConfig.Token != "" {
			headers["Authorization"] = "Bearer " + inst.AuthConfig.Token
		}
	case models.AuthAPIKey:
		if inst.AuthConfig.Key != "" {
			name := inst.AuthConfig.Header
			if name == "" {
				name = defaultAPIKeyHeader
			}
			if name == "" {
				name = "Authorization"
			}
			headers[name] = inst.AuthConfig.Key
		}
	case models.AuthCustom:
		for k, v := range inst.AuthConfig.CustomHeaders {
			headers[k] = v
		}
	}
	// none and oauth emit no auth header; oauth token refresh is out of scope.

	return headers
}

// BuildTransportOptions derives TLS trust and the request deadline from the
// instance's SSL configuration. Pure and deterministic.
func BuildTransportOptions(inst models.SystemInstance) TransportOptions {
	return TransportOptions{
		InsecureSkipVerify: inst.SSLConfig.InsecureSkipVerify(),
		Timeout:            inst.SSLConfig.Timeout(),
	}
}
