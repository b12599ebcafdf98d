// Package assist drafts approver-facing summaries of pending exception
// requests using a pluggable AI provider. Providers are constructed
// explicitly and injected; nothing in this package is global.
package assist

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// PendingItem is one pending exception request, flattened for the digest.
type PendingItem struct {
	EmployeeName     string
	Type             string
	Reason           string
	DeviationMinutes int
	Date             time.Time
	HasDocument      bool
}

// Provider defines the interface for digest backends.
type Provider interface {
	Name() string
	// SummarizeExceptions produces a short digest an approver can read
	// instead of the raw request list.
	SummarizeExceptions(ctx context.Context, items []PendingItem) (string, error)
	// GetUsage returns the accumulated token usage.
	GetUsage() *Usage
}

// Usage tracks token usage for a provider.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// formatItems renders the request list the providers feed to the model.
func formatItems(items []PendingItem) string {
	var b strings.Builder
	for i, item := range items {
		doc := "no document"
		if item.HasDocument {
			doc = "document attached"
		}
		fmt.Fprintf(&b, "%d. %s: %s on %s, %d minutes, %s. Reason: %s\n",
			i+1, item.EmployeeName, item.Type, item.Date.Format("2006-01-02"),
			item.DeviationMinutes, doc, item.Reason)
	}
	return b.String()
}
