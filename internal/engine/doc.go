// Package engine orchestrates playlist reconciliation across platforms.
//
// A run fetches a fresh snapshot of the named playlist from every involved
// platform, computes the per-platform addition sets from those frozen
// snapshots before any mutation, then applies each addition by searching the
// destination platform live and resolving the results through the matcher.
// The Amazon browser session is opened lazily right before the first Amazon
// operation and closed exactly once per run, on error paths included.
package engine
