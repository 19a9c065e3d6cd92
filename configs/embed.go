// Package configs provides embedded configuration templates for slackmcp.
//
// Templates are embedded at build time with //go:embed so they ship with
// every binary. 'slackmcp config init' writes UserConfigTemplate to
// ~/.config/slackmcp/config.yaml.
//
// Configuration hierarchy (see internal/config Load):
//  1. Hardcoded defaults (config.NewConfig)
//  2. User config (~/.config/slackmcp/config.yaml)
//  3. Project config (.slackmcp.yaml)
//  4. .env in the project directory
//  5. Environment variables (SLACKMCP_*, DATABASE_URL, OPENAI_API_KEY)
package configs

import _ "embed"

// UserConfigTemplate is the commented template for the user configuration.
//
//go:embed user-config.example.yaml
var UserConfigTemplate string
