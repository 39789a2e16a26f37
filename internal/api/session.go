package api

// Session is the authenticated identity established by Login. It is immutable
// once returned and lives only for the lifetime of the owning Client; nothing
// is persisted across process restarts.
type Session struct {
	CSRFToken    string
	SessionToken string
	JWT          string
	UserID       string

	// Per-session cipher material derived from UserID.
	Key []byte
	IV  []byte
}
