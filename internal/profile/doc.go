// Package profile models render profiles: named, ordered visualization
// settings plus the built-in system profiles shipped with gitreel.
//
// Setting values are parsed once into a tagged Value so symbolic strings such
// as "auto-60s" and "relative-7d" are recognised at the boundary instead of
// being re-inspected by every consumer.
package profile
