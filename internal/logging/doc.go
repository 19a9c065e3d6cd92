// Package logging provides file-based structured logging with rotation for
// slackmcp, and a viewer for the resulting JSON log lines.
//
// In MCP stdio mode stdout carries JSON-RPC exclusively, so server logs go
// to ~/.slackmcp/logs/server.log and never to stdout or stderr.
package logging
