// Package api speaks the vendor's two HTTP surfaces: the plaintext web host
// used for login and navigation, and the encrypted data-model host used for
// profile and asset-resolution calls. A Session is established once by the
// Authenticator and threaded through every Client call.
package api
