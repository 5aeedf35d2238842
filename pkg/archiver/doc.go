// Package archiver contains the orchestration core: the per-item pipeline
// (fetch, publish, checkpoint, cleanup) and the poll loop controller that
// drives it. Download and upload mechanics live behind the Fetcher and
// Publisher interfaces; this package owns ordering, idempotence, and the
// stop-on-first-failure policy.
package archiver
