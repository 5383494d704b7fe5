// Package auth stores and supplies the Instagram login used when the
// browser session lands on a login form.
//
// Credentials are looked up in the system keyring, then an encrypted file
// under the user config directory, then IGARCHIVE_USERNAME and
// IGARCHIVE_PASSWORD. When none has them, a Prompter asks on the terminal.
package auth
