// Package render runs render jobs. Submit extracts and fuses history,
// compiles the renderer arguments, and registers the job; a background
// goroutine then waits for a concurrency slot and drives the renderer and,
// for file output, the encoder connected to it by a pipe.
//
// Process control goes through the Launcher interface so the pipeline can
// be exercised with stub processes.
package render
