// Package ratelimit provides a token bucket used in front of Twitch Helix
// calls. The archiver polls at human-scale cadence, so the bucket exists to
// bound bursts (user lookup plus video listing per cycle), not throughput.
package ratelimit
