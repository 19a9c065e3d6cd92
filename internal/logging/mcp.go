package logging

import (
	"log/slog"
)

// SetupMCPMode initializes logging for the MCP server and installs the
// logger as the slog default. Logs go ONLY to the log file: stdout carries
// JSON-RPC in stdio mode and anything else written there corrupts the
// stream.
func SetupMCPMode(level string) (*slog.Logger, func(), error) {
	cfg := DefaultConfig()
	cfg.Level = level
	cfg.WriteToStderr = false

	logger, cleanup, err := Setup(cfg)
	if err != nil {
		return nil, nil, err
	}

	slog.SetDefault(logger)
	logger.Debug("MCP mode logging initialized",
		slog.String("log_file", cfg.FilePath),
		slog.String("level", level))

	return logger, cleanup, nil
}
