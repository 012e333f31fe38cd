// Package config provides configuration structures and utilities for
// phishguard. It defines the daemon's runtime options, the location of
// state directories, and the user's site-override file that quiets the
// advisory engine for known-good hosts.
package config
