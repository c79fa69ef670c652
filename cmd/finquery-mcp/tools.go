package main

import "github.com/mark3labs/mcp-go/mcp"

func createResolveQueryTool() mcp.Tool {
	return mcp.NewTool("resolve_query",
		mcp.WithDescription("Resolve a natural-language financial question into tickers, metric IDs and a time expression. Relative periods such as 'last 3 quarters' need an anchor year."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("The question, e.g. 'Apple revenue FY2023'"),
		),
		mcp.WithNumber("anchor_year",
			mcp.Description("Year relative periods are anchored to (1900-2100)"),
		),
		mcp.WithNumber("anchor_quarter",
			mcp.Description("Quarter relative periods are anchored to (1-4, requires anchor_year)"),
		),
	)
}

func createLookupTickerTool() mcp.Tool {
	return mcp.NewTool("lookup_ticker",
		mcp.WithDescription("Show the company name and every alias the index derived for a ticker"),
		mcp.WithString("ticker",
			mcp.Required(),
			mcp.Description("Ticker symbol, exchange prefix allowed (e.g. 'NASDAQ:AAPL')"),
		),
	)
}

func createIndexInfoTool() mcp.Tool {
	return mcp.NewTool("index_info",
		mcp.WithDescription("Summarise the alias index being served: version, sizes and build-time collisions"),
	)
}
