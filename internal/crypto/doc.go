// Package crypto implements the envelope encryption the vendor API speaks:
// AES-128-CBC with PKCS#7 padding, base64 text with a ":" suffix on the wire.
// Two key regimes cover data-model calls (a fixed common pair and a
// session-derived pair); an independent stream pair covers navigation
// payloads, whose decoder tolerates truncated or over-long JSON.
package crypto
