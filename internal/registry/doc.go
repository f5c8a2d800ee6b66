// Package registry persists the idempotency ledger of processed files.
//
// The ledger maps file basenames to the modification time observed when the
// file was handled, stored as epoch seconds. A file is considered already
// processed only when its current modification time matches the recorded one
// within a one second tolerance, so a rewritten file is treated as new work.
// The ledger is rewritten to disk as a whole snapshot after every mutation.
package registry
