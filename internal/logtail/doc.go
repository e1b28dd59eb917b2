// Package logtail reads the tail of the pulse log file for the TUI log pane.
//
// # Reading Log Files
//
// Read extracts the last maxLines lines with a ring buffer of size maxLines,
// so memory stays O(maxLines) however large the file grows. Each scanned
// line overwrites the oldest slot; once the scan ends the buffer is read
// back starting from the current index, which holds the oldest kept line.
//
// A missing file yields no lines and no error, since the log file is only
// created once something has been logged.
//
// # Structured Lines
//
// Pulse writes zerolog JSON. Parse decodes one line into an Entry with the
// fixed keys (time, level, component, message, error) pulled out and every
// other key kept in Fields. Lines that are not JSON pass through as Raw.
//
// Format renders an Entry as a compact single line:
//
//	10:00:00 WRN [poll] poll failed attempt=3 error=connection refused
//
// Styling is left to the caller; the UI colours lines by Entry.Level.
package logtail
