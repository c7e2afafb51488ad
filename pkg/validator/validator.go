// Package validator talks to the external naming-authority service that
// normalizes extracted health-parameter names. The outbound payload is built
// from a projection type that structurally excludes result values and client
// identity; nothing sensitive can cross the trust boundary.
package validator

import (
	"context"
)

// NameQuery is the only shape that leaves the service boundary. It carries a
// candidate's name and non-sensitive metadata. There is deliberately no Value
// field and no client identifier; adding one is a contract violation.
type NameQuery struct {
	Name   string `json:"name"`
	Unit   string `json:"unit,omitempty"`
	Method string `json:"method,omitempty"`
}

// Result correlates one submitted name with its validated form.
// Recognized is false when the naming authority did not accept the name as a
// real health test parameter; ValidatedName is empty in that case.
type Result struct {
	Name          string
	ValidatedName string
	Recognized    bool
}

// Client validates a batch of candidate names. Implementations must issue at
// most one outbound request per call; the orchestrator calls this exactly
// once per document pipeline run.
type Client interface {
	// ValidateNames submits the full candidate-name set for one document and
	// returns one result per submitted query, correlated by name.
	ValidateNames(ctx context.Context, queries []NameQuery) ([]Result, error)
}
