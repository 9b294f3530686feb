// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI provides a multi-view workflow for browsing and invoking remote tools:
//  1. [ToolListView] : Browse the tools advertised by the gateway
//  2. [DetailView] : Inspect a tool's description and input schema
//  3. [ArgsView] : Enter JSON arguments for an invocation
//  4. [InvokeView] : Wait for the call to complete
//  5. [ResultView] : Display the invocation result or error
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern.
// Remote calls run in commands so the event loop never blocks.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
