package engine

import "github.com/hunt-tickets/venuemap/internal/document"

// DefaultHistoryLimit bounds the number of snapshots kept per document.
// Each snapshot copies every element, so this is also a memory bound.
const DefaultHistoryLimit = 100

// PushHistory records the current elements, order and selection as the
// newest snapshot. Redo entries past the current index are discarded.
func PushHistory(doc *document.VenueMap, action string, timestamp int64, limit int) {
	entry := document.HistoryEntry{
		Action:       action,
		Timestamp:    timestamp,
		Elements:     document.CloneElements(doc.Elements),
		ElementOrder: append([]string{}, doc.ElementOrder...),
		SelectedIDs:  append([]string{}, doc.SelectedIDs...),
	}

	if doc.HistoryIndex < len(doc.History)-1 {
		doc.History = doc.History[:doc.HistoryIndex+1]
	}
	doc.History = append(doc.History, entry)

	if limit > 0 && len(doc.History) > limit {
		drop := len(doc.History) - limit
		doc.History = append([]document.HistoryEntry(nil), doc.History[drop:]...)
	}
	doc.HistoryIndex = len(doc.History) - 1
}

// CanUndo reports whether there is an older snapshot to restore.
func CanUndo(doc *document.VenueMap) bool {
	return doc.HistoryIndex > 0 && doc.HistoryIndex < len(doc.History)
}

// CanRedo reports whether there is a newer snapshot to restore.
func CanRedo(doc *document.VenueMap) bool {
	return doc.HistoryIndex >= 0 && doc.HistoryIndex < len(doc.History)-1
}

// Undo steps back one snapshot. It is a no-op at the oldest entry.
func Undo(doc *document.VenueMap) bool {
	if !CanUndo(doc) {
		return false
	}
	doc.HistoryIndex--
	restoreSnapshot(doc, doc.History[doc.HistoryIndex])
	return true
}

// Redo steps forward one snapshot. It is a no-op at the newest entry.
func Redo(doc *document.VenueMap) bool {
	if !CanRedo(doc) {
		return false
	}
	doc.HistoryIndex++
	restoreSnapshot(doc, doc.History[doc.HistoryIndex])
	return true
}

// restoreSnapshot copies out of the entry so later edits cannot reach back
// into history.
func restoreSnapshot(doc *document.VenueMap, entry document.HistoryEntry) {
	doc.Elements = document.CloneElements(entry.Elements)
	doc.ElementOrder = append([]string{}, entry.ElementOrder...)
	doc.SelectedIDs = append([]string{}, entry.SelectedIDs...)
	repairReferences(doc)
}
