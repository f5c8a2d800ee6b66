// Package extract turns files into plain text for classification.
//
// The dispatcher routes by extension: plain-text and code files are read
// directly up to a line cap, Jupyter notebooks have their cell sources
// pulled out of the JSON envelope, and any other configured format is
// delegated to an external converter command whose stdout is captured.
// Extraction never fails; unreadable or corrupt input yields an empty
// string and the pipeline treats that as "no text".
package extract
