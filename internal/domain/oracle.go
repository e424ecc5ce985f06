package domain

import (
	"context"
	"errors"
)

// ErrOracleUnavailable marks oracle failures that the interrogation loop
// recovers from by continuing with the next query. The loop does not
// distinguish error kinds beyond the consecutive-failure ceiling.
var ErrOracleUnavailable = errors.New("source oracle unavailable")

// SourceOracle is the external knowledge collaborator: given a search query it
// returns zero or more evidence items or fails. Implementations must be safe
// for concurrent use by multiple workers; per-call timeouts arrive through ctx.
type SourceOracle interface {
	Query(ctx context.Context, text string) ([]EvidenceItem, error)
}
