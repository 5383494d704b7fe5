// Package storage manages the archive's output tree.
//
// Whole-file writes and streamed asset writes go through a temporary file
// and a rename, so an interrupted run never leaves a truncated media.json or
// half an mp4 under its final name. Directory existence doubles as the
// deduplication marker for story and highlight items.
package storage
