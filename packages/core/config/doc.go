// Package config handles configuration loading and management for hitfetch.
//
// It provides functionality for:
//   - Loading configuration from .hitfetch.json, hitfetch.config.json,
//     .hitfetch.yaml or .hitfetch.yml files
//   - Default configuration values
//   - Converting settings into client and per-call options
package config
