// Package encodeargs builds the ffmpeg argument vector that turns the
// renderer's PPM frame stream into an H.264 file, including the optional
// audio, fade, and title post-processing.
package encodeargs
