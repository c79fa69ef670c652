package main

import (
	"context"
	"errors"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/finquery/internal/handlers"
	"github.com/ternarybob/finquery/internal/interfaces"
	"github.com/ternarybob/finquery/internal/models"
	"github.com/ternarybob/finquery/internal/services/aliases"
)

// snapshotter is the part of the alias holder the tools read.
type snapshotter interface {
	Snapshot() *aliases.Snapshot
}

// handleResolveQuery implements the resolve_query tool
func handleResolveQuery(service interfaces.IntentService, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := request.RequireString("query")
		if err != nil || query == "" {
			return mcp.NewToolResultError("Error: query parameter is required"), nil
		}

		anchor := models.PeriodAnchor{
			Year:    request.GetInt("anchor_year", 0),
			Quarter: request.GetInt("anchor_quarter", 0),
		}
		if err := handlers.ValidateAnchor(anchor); err != nil {
			return mcp.NewToolResultErrorf("Error: %v", err), nil
		}

		intent, err := service.Resolve(ctx, query, anchor)
		if err != nil {
			if errors.Is(err, aliases.ErrIndexNotBuilt) {
				return mcp.NewToolResultError("Index not built yet, try again shortly"), nil
			}
			logger.Error().Err(err).Str("query", query).Msg("Resolve failed")
			return mcp.NewToolResultErrorf("Resolve error: %v", err), nil
		}

		text, err := formatIntent(intent)
		if err != nil {
			return nil, err
		}
		return mcp.NewToolResultText(text), nil
	}
}

// handleLookupTicker implements the lookup_ticker tool
func handleLookupTicker(holder snapshotter, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ticker, err := request.RequireString("ticker")
		if err != nil || ticker == "" {
			return mcp.NewToolResultError("Error: ticker parameter is required"), nil
		}

		snap := holder.Snapshot()
		if snap == nil {
			return mcp.NewToolResultError("Index not built yet, try again shortly"), nil
		}

		entry, ok := snap.Index.Entry(ticker)
		if !ok {
			logger.Debug().Str("ticker", ticker).Msg("Ticker lookup missed")
			return mcp.NewToolResultErrorf("Ticker %s is not in the universe", ticker), nil
		}
		return mcp.NewToolResultText(formatEntry(entry)), nil
	}
}

// handleIndexInfo implements the index_info tool
func handleIndexInfo(holder snapshotter) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		snap := holder.Snapshot()
		if snap == nil {
			return mcp.NewToolResultError("Index not built yet, try again shortly"), nil
		}
		return mcp.NewToolResultText(formatIndexInfo(snap)), nil
	}
}
