// Package gourceargs compiles render profile settings into the argument
// vector passed to the gource renderer.
//
// Compile is pure: identical settings and Context produce identical output.
// Resolution happens in a fixed order. Relative dates come first, then auto
// speed, then title templates, then flag emission. The camera mode is
// checked against an allow-list while flags are emitted.
package gourceargs
