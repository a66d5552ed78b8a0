// Package main hosts the actas CLI entrypoint and command graph.
//
// The Cobra-based command tree operates directly on the local database:
// document lifecycle actions, user and role administration, template
// inspection, audit log queries, and configuration scaffolding. It
// centralizes configuration resolution and store access so subcommands can
// focus on user experience instead of wiring.
package main
