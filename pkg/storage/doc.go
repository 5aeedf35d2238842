// Package storage manages the local download directory: it answers the
// resume check ("is there already a finished artifact for this VOD?"),
// cleans up partial files after failed fetches, and reports disk usage for
// the pre-download space check and the status dashboard.
package storage
