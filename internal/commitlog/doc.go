// Package commitlog defines the normalized commit change record, the
// renderer's line-oriented custom log format, and the k-way merge that fuses
// several repositories' histories into one time-ordered stream.
//
// Lines have the shape
//
//	<unix-timestamp>|<author-display-name>|<A|M|D>|<path-with-repo-prefix>
//
// and are newline terminated. Sequences are iter.Seq2[Record, error] so
// extraction stays lazy until the fused stream is written out.
package commitlog
