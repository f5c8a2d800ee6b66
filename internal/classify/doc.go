// Package classify scores extracted text against the configured category
// index.
//
// Two backends ship: a keyword scorer that needs nothing outside the
// process, and an embedding scorer that ranks categories by cosine
// similarity using an Ollama-compatible embeddings endpoint. Both satisfy
// the same contract: a (category, score) pair with score in [0,1], and the
// UNKNOWN sentinel with score 0 whenever no useful answer exists. Backends
// never fail outward; an unavailable scorer is reported as UNKNOWN so the
// pipeline keeps the file in place.
package classify
