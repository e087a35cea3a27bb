package connector

import (
	"context"
	"time"

	"github.com/OPSDECK/opsdeck/internal/models"
)

// ProbeQuery is the reserved sentinel query. A request whose query equals this
// token performs a lightweight capability probe (server version/info) instead
// of a data query. Routed before any dialect validation.
const ProbeQuery = "__probe__"

// Request describes one query to run against a resolved instance.
type Request struct {
	// Query is either a path joined to the instance base URL, an absolute
	// URL used verbatim, or a dialect expression the connector translates.
	Query   string
	Method  string
	Params  map[string]string
	Headers map[string]string
	Body    []byte
}

// Response is the classified, decoded result of a query.
type Response struct {
	StatusCode int
	// Data is the decoded payload: a JSON object or array.
	Data any
	// Records is Data viewed as a list of objects where that shape applies;
	// nil when the payload is not record-like. Field mapping operates on it.
	Records  []map[string]any
	Duration time.Duration
}

// Connector is the family-specific implementation of the query-execution
// capability for one class of external system. Implementations are stateless
// with respect to instances: the caller resolves the instance and the
// connector only builds and executes the transport call.
type Connector interface {
	// Name returns the system-family key (ticketing/firewall/siem/...).
	Name() string

	// Catalogue returns the static set of named example queries for the
	// family, for operator discovery.
	Catalogue() []models.QueryDef

	// ValidateQuery checks query syntax locally, before any network I/O.
	// Families without a query dialect accept everything.
	ValidateQuery(query string) error

	// Execute runs one query against the instance and classifies the result.
	Execute(ctx context.Context, inst models.SystemInstance, req Request) (*Response, error)

	// Probe performs the lightweight capability check behind ProbeQuery.
	Probe(ctx context.Context, inst models.SystemInstance) (*Response, error)
}
