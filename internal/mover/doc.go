// Package mover relocates classified files into their category folder.
//
// Moves never overwrite: a name collision at the destination gets a
// timestamp suffix before the extension. Same-volume moves are a single
// rename; cross-volume moves copy to a partial name first and rename into
// place, so a visible destination file is always complete.
package mover
