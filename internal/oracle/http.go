package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Harshitk-cp/verity/internal/domain"
)

// HTTPClient queries a JSON search service for evidence. The per-query
// timeout arrives through the context; the embedded client timeout is only a
// last-ditch cap against a misconfigured caller.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type queryRequest struct {
	Query string `json:"query"`
}

type evidenceResult struct {
	Content    string  `json:"content"`
	SourceID   string  `json:"source_id"`
	Topic      string  `json:"topic"`
	Confidence float64 `json:"confidence"`
}

type queryResponse struct {
	Results []evidenceResult `json:"results"`
}

// Query implements domain.SourceOracle.
func (c *HTTPClient) Query(ctx context.Context, text string) ([]domain.EvidenceItem, error) {
	body, err := json.Marshal(queryRequest{Query: text})
	if err != nil {
		return nil, fmt.Errorf("marshal oracle query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/query", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build oracle request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrOracleUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", domain.ErrOracleUnavailable, resp.StatusCode)
	}

	var decoded queryResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode oracle response: %w", err)
	}

	now := time.Now()
	items := make([]domain.EvidenceItem, 0, len(decoded.Results))
	for _, r := range decoded.Results {
		if r.Content == "" {
			continue
		}
		items = append(items, domain.EvidenceItem{
			Content:    r.Content,
			SourceID:   r.SourceID,
			Topic:      r.Topic,
			Confidence: clampConfidence(r.Confidence),
			Timestamp:  now,
		})
	}
	return items, nil
}

func clampConfidence(c float64) float64 {
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}
