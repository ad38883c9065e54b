// Package config loads and validates controller configuration.
//
// Configuration resolves in layers: built-in defaults, then the TOML config
// file, then environment variables (optionally loaded from a .env file).
// Values are normalized (paths expanded, zero values defaulted) before
// validation, so the rest of the codebase only ever sees a usable Config.
package config
