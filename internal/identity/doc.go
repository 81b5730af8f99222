// Package identity resolves commit author emails to GitHub usernames.
//
// The client searches GitHub users by email using an optional bearer token
// and short-circuits GitHub noreply addresses, which embed the login.
package identity
