package oracle

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Harshitk-cp/verity/internal/domain"
)

// MockClient is a configurable source oracle for testing and local runs.
// Responses are matched by substring against the query text; keys are tried
// in sorted order so matching is deterministic. Safe for concurrent use.
type MockClient struct {
	mu sync.Mutex

	// Responses maps a query substring to the evidence returned for it.
	Responses map[string][]domain.EvidenceItem
	// Default is returned when no key matches.
	Default []domain.EvidenceItem
	// Err, when set, fails every call.
	Err error
	// FailFirst fails this many initial calls before serving responses.
	FailFirst int

	// Call tracking for assertions
	Calls []string
}

func NewMockClient() *MockClient {
	return &MockClient{
		Responses: make(map[string][]domain.EvidenceItem),
		Default: []domain.EvidenceItem{
			{
				Content:    "mock evidence",
				SourceID:   "mock-source",
				Topic:      "general",
				Confidence: 0.5,
			},
		},
	}
}

// Query implements domain.SourceOracle.
func (c *MockClient) Query(ctx context.Context, text string) ([]domain.EvidenceItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.Calls = append(c.Calls, text)

	if c.Err != nil {
		return nil, c.Err
	}
	if c.FailFirst > 0 {
		c.FailFirst--
		return nil, domain.ErrOracleUnavailable
	}

	keys := make([]string, 0, len(c.Responses))
	for k := range c.Responses {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if strings.Contains(text, k) {
			return stamped(c.Responses[k]), nil
		}
	}
	return stamped(c.Default), nil
}

// CallCount returns how many queries were issued.
func (c *MockClient) CallCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.Calls)
}

func stamped(items []domain.EvidenceItem) []domain.EvidenceItem {
	now := time.Now()
	out := make([]domain.EvidenceItem, len(items))
	copy(out, items)
	for i := range out {
		out[i].Timestamp = now
	}
	return out
}
