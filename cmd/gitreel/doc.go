// Command gitreel renders gource visualizations of one or more git
// repositories.
//
// One-shot commands (render, log, repos, projects, profiles, deps) work
// directly against the local store. The daemon subcommand keeps the render
// services running behind an HTTP API that the jobs commands talk to.
package main
