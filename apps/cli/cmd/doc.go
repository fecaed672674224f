// Package cmd implements the hitfetch CLI commands using Cobra.
//
// Available commands:
//   - fetch: Perform one HTTP call and print the decoded body
//   - mock: Serve routes from a YAML file, or the built-in fixtures
//   - bench: Call one address repeatedly and report latency percentiles
//   - version: Show hitfetch version information
//   - completion: Generate shell completion scripts
//
// Settings shared by fetch and bench can be kept in a .hitfetch.yaml or
// .hitfetch.json config file; flags override them.
package cmd
