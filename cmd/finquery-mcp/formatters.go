package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/finquery/internal/models"
	"github.com/ternarybob/finquery/internal/services/aliases"
)

// formatIntent returns the intent contract JSON so agents can parse it directly.
func formatIntent(intent *models.StructuredIntent) (string, error) {
	data, err := json.MarshalIndent(intent, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode intent: %w", err)
	}
	return string(data), nil
}

// formatEntry renders an alias entry as markdown
func formatEntry(entry models.AliasEntry) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("# %s\n\n", entry.Ticker))
	sb.WriteString(fmt.Sprintf("**Company:** %s\n\n", entry.CompanyName))
	sb.WriteString(fmt.Sprintf("## Aliases (%d)\n\n", len(entry.Aliases)))
	for _, alias := range entry.Aliases {
		sb.WriteString(fmt.Sprintf("- %s\n", alias))
	}
	return sb.String()
}

func formatIndexInfo(snap *aliases.Snapshot) string {
	report := snap.Index.Report()

	var sb strings.Builder
	sb.WriteString("# Alias Index\n\n")
	sb.WriteString(fmt.Sprintf("**Version:** %s\n", report.Version))
	sb.WriteString(fmt.Sprintf("**Built:** %s\n", snap.BuiltAt.UTC().Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("**Source:** %s\n", snap.Source))
	sb.WriteString(fmt.Sprintf("**Tickers:** %d\n", report.Tickers))
	sb.WriteString(fmt.Sprintf("**Aliases:** %d\n", report.Aliases))
	sb.WriteString(fmt.Sprintf("**Overrides:** %d\n", report.Overrides))

	if len(report.Collisions) > 0 {
		sb.WriteString(fmt.Sprintf("\n## Collisions (%d)\n\n", len(report.Collisions)))
		for _, c := range report.Collisions {
			sb.WriteString(fmt.Sprintf("- `%s` kept %s, dropped %s (%s)\n", c.Alias, c.Ticker, c.Rejected, c.Kind))
		}
	}
	if len(report.OverrideConflicts) > 0 {
		sb.WriteString(fmt.Sprintf("\n## Override conflicts (%d)\n\n", len(report.OverrideConflicts)))
		for _, c := range report.OverrideConflicts {
			sb.WriteString(fmt.Sprintf("- `%s` %s beat %s\n", c.Phrase, c.Winner, c.Loser))
		}
	}
	return sb.String()
}
