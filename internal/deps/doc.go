// Package deps reports whether the external tools and working directories
// gitreel needs are present.
//
// Both the `gitreel deps` command and daemon startup evaluate the same
// requirement list so their output never disagrees. Interactive renders do
// not need the encoder, so FFmpeg is reported as optional.
package deps
