// Package ui implements the interactive shell with bubbletea's Elm
// architecture: a single prompt [Model] reads command lines, hands them to a
// [Dispatcher] off the update loop and renders the accumulated transcript.
//
// The shell owns only line editing and lifecycle (empty input, exit,
// ctrl+c); command parsing and execution live with the dispatcher so the
// shell and the CLI share one implementation per command.
package ui
