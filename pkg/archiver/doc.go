// Package archiver walks profiles, highlights, stories and posts through a
// browser session and writes them to the archive tree.
//
// Records are resolved through an ordered list of strategies: payloads the
// session captured while a page loaded, then JSON embedded in the page
// markup, then (for posts) the same lookup on another browsing context.
// Every item lands in a directory named after its timestamp; an existing
// directory means the item was archived by an earlier run and it is
// skipped without touching the network.
package archiver
