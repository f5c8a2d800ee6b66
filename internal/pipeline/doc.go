// Package pipeline runs one file through the extract, classify, decide and
// relocate sequence and records the outcome.
package pipeline
