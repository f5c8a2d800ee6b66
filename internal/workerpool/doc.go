// Package workerpool executes pipeline jobs on a fixed set of workers,
// consulting the processed-file ledger before accepting a submission.
package workerpool
