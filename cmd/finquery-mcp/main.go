package main

import (
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/server"
	"github.com/ternarybob/arbor"
	arbor_models "github.com/ternarybob/arbor/models"

	"github.com/ternarybob/finquery/internal/app"
	"github.com/ternarybob/finquery/internal/common"
)

func main() {
	defer common.RecoverWithCrashFile()

	configPath := os.Getenv("FINQUERY_CONFIG")
	if configPath == "" {
		configPath = "finquery.toml"
	}

	config, err := common.LoadFromFiles(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// stdout carries the MCP protocol, keep logging quiet
	logger := arbor.NewLogger().WithConsoleWriter(arbor_models.WriterConfiguration{
		Type:       arbor_models.LogWriterTypeConsole,
		TimeFormat: "15:04:05",
	}).WithLevelFromString("warn")

	application, err := app.New(config, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize application")
	}
	defer application.Close()

	mcpServer := server.NewMCPServer(
		"finquery",
		common.GetVersion(),
		server.WithToolCapabilities(true),
	)

	mcpServer.AddTool(createResolveQueryTool(), handleResolveQuery(application.IntentService, logger))
	mcpServer.AddTool(createLookupTickerTool(), handleLookupTicker(application.Holder, logger))
	mcpServer.AddTool(createIndexInfoTool(), handleIndexInfo(application.Holder))

	if err := server.ServeStdio(mcpServer); err != nil {
		logger.Error().Err(err).Msg("MCP server failed")
	}
}
