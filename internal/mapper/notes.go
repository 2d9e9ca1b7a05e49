// Note mapping: the synced note body carried over to the CRM, marked so
// operators know not to edit it there.
package mapper

import "strings"

// NoteMarker is appended to every synced note. Its presence is how a CRM
// note is recognized as sync-owned on later runs.
const NoteMarker = "*This note is synced from your contact directory. Do not edit here.*"

// SyncedNoteBody renders a directory note body for the CRM: markdown line
// breaks plus the ownership marker. An empty source body returns "".
func SyncedNoteBody(body string) string {
	body = strings.TrimSpace(body)
	if body == "" {
		return ""
	}
	// Two trailing spaces force a markdown line break inside the note.
	lines := strings.Split(body, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " ")
	}
	return strings.Join(lines, "  \n") + "\n\n" + NoteMarker
}

// IsSyncedNote reports whether a CRM note body carries the sync marker.
func IsSyncedNote(body string) bool {
	return strings.Contains(body, NoteMarker)
}
