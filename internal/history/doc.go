// Package history records pipeline outcomes in a SQLite journal so operators
// can review what the sorter did after the fact.
package history
