// Package retry provides bounded retries with pluggable backoff.
//
// The checkpoint store uses it to guarantee a snapshot write completes
// before the poll loop moves on, and the Twitch client uses it for
// transient HTTP failures. The item pipeline itself never retries within a
// cycle; a failed item is simply picked up again on the next poll.
package retry
