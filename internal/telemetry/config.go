package telemetry

import (
	"errors"
	"strings"

	"github.com/fyrsmithlabs/dvc-connector/internal/config"
)

// ErrInsecureRemote is returned when plaintext export to a non-local endpoint is requested.
var ErrInsecureRemote = errors.New("insecure connections to remote endpoints are not allowed; set insecure=false for TLS or use a local endpoint")

// validate checks the settings that only matter once telemetry is enabled.
func validate(cfg config.TelemetryConfig) error {
	if cfg.Insecure && !isLocalEndpoint(cfg.Endpoint) {
		return ErrInsecureRemote
	}
	return nil
}

// isLocalEndpoint reports whether endpoint points at the local host.
func isLocalEndpoint(endpoint string) bool {
	host := stripScheme(endpoint)

	if strings.HasPrefix(host, "[") {
		// [::1]:4317 or [::1]
		if idx := strings.Index(host, "]"); idx != -1 {
			host = host[1:idx]
		}
	} else if strings.Count(host, ":") == 1 {
		host = host[:strings.LastIndex(host, ":")]
	}

	return host == "localhost" ||
		host == "::1" ||
		strings.HasPrefix(host, "127.") ||
		strings.HasPrefix(host, "::1:")
}

// stripScheme removes http:// or https:// from an endpoint URL.
// The OTLP HTTP exporter expects host:port, not a full URL.
func stripScheme(endpoint string) string {
	endpoint = strings.TrimPrefix(endpoint, "https://")
	endpoint = strings.TrimPrefix(endpoint, "http://")
	return endpoint
}
