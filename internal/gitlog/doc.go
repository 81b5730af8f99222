// Package gitlog extracts normalized commit change records from a local git
// checkout.
//
// Extraction is lazy: ranging over Extractor.Records runs git and yields
// records as its output streams, oldest commit first. Ranging again re-runs
// git. Optional branch checkout happens under a per-path lock so no other
// extraction observes a half-switched working tree, and author emails can be
// resolved to external usernames through a bounded, cached lookup.
package gitlog
