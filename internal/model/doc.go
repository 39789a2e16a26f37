// Package model defines domain data structures used across the app: content
// tree nodes, resolved asset records, media kinds, and per-requester jobs
// with explicit state transitions.
package model
