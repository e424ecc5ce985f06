package oracle

import (
	"fmt"

	"github.com/Harshitk-cp/verity/internal/domain"
)

// Provider constants
const (
	ProviderHTTP = "http"
	ProviderMock = "mock"
)

// NewClient creates a source oracle based on the provider name.
// Returns an error if the provider is unknown or required settings are
// missing (except for mock).
func NewClient(provider, baseURL string) (domain.SourceOracle, error) {
	switch provider {
	case ProviderHTTP:
		if baseURL == "" {
			return nil, fmt.Errorf("ORACLE_URL is required for HTTP provider")
		}
		return NewHTTPClient(baseURL), nil

	case ProviderMock:
		return NewMockClient(), nil

	default:
		return nil, fmt.Errorf("unknown oracle provider: %s", provider)
	}
}
