// Package ui provides the terminal dashboard for pulse.
//
// # Architecture Overview
//
// The UI is a Bubble Tea program. It never talks to the sync core directly:
// on every tick it copies the latest state.Snapshot out of the store and
// renders it. The coordinator is the only writer of that store.
//
//   - app.go: Model, Update loop, commands and Run
//   - header.go: status bar, command bar, status banner, stats strip, footer
//   - table.go: the record table, in server order
//   - stats.go: summary totals and completion-rate buckets
//   - logs.go: optional pane tailing the pulse log file
//   - modal.go / help.go: the authorization prompt and help overlays
//   - theme.go / style_helpers.go: palettes and lipgloss helpers
//
// # Prompts
//
// The coordinator marks a snapshot with a pending prompt only when the
// notification gate allows it. The UI takes that flag from the store with
// TakePrompt, so each allowed prompt opens the modal exactly once.
//
// # Key Bindings
//
//   - r: ask the data source to refresh now
//   - a: open the server's /auth page in the browser
//   - l: toggle the log pane
//   - j/k, g/G: scroll the table
//   - T: cycle theme (saved to prefs)
//   - h/?: help
//   - q/ctrl+c: quit
package ui
