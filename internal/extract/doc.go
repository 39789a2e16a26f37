// Package extract walks the four-level content hierarchy (course, subject,
// topic, asset) over the vendor's navigation endpoints, resolves each asset
// leaf to a playable URL through a bounded worker pool, and records the
// results in a plain-text manifest plus the requester's job.
package extract
