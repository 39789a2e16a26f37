// Package transfer moves resolved assets to their destination: each record is
// downloaded through an ordered fallback chain of backends (aria2c, yt-dlp,
// plain HTTP), capped by a size ceiling, and streamed to the destination sink
// with throttled progress reporting. Transfers run strictly one record at a
// time per job, so at most one temporary file is alive per job.
package transfer
