// Package youtube wraps the YouTube Data API v3 for the archiver's publish
// step: resumable chunked uploads, playlist fetch-or-create, and the
// one-time interactive OAuth bootstrap. The poll loop only ever sees stored
// credentials; anything interactive lives behind a subcommand.
package youtube
