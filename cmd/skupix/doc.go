// Package main hosts the skupix CLI entrypoint and command graph.
//
// The Cobra command tree turns terminal invocations into calls on the
// internal packages: image fetch runs, batch folder copies, spreadsheet
// splitting, run history, working-area maintenance, and configuration
// scaffolding. It centralizes configuration resolution and logger setup so
// subcommands can focus on presenting results.
//
// Keep this package lean: add behaviour to the internal packages first, then
// surface it through a command or flag here.
package main
