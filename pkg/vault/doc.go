// Package vault is the persistence layer for drafts. A Store owns a root data
// directory in which every immediate subdirectory is a group: one canonical
// draft text, one project manifest and a bounded set of PNG image slots.
//
// Saving only rotates history when the draft actually changed. The previous
// draft and manifest are copied to timestamped backups and divergent images
// are written as timestamped versions next to the slot's origin file. Clean
// removes backups and versions older than a retention window, identified
// purely by file name.
package vault
