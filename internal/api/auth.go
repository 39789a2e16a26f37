package api

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"github.com/ytget/coursegrab/internal/crypto"
)

// Authentication failures. These are the only errors fatal to a whole job;
// everything downstream degrades per node instead.
var (
	ErrMissingCSRFToken       = errors.New("csrf token cookie not present")
	ErrLoginRejected          = errors.New("login rejected by vendor")
	ErrMalformedLoginResponse = errors.New("login response missing token or jwt")
	ErrProfileFetch           = errors.New("profile fetch returned no user id")
)

// Form field and cookie names used by the login handshake.
const (
	csrfCookieName = "csrf_name"
	fieldMobile    = "mobile"
	fieldPassword  = "password"
)

// loginOKStatus is the JSON status value the web host returns on success.
const loginOKStatus = 200

// Authenticator performs the login handshake and installs the resulting
// session into its Client.
type Authenticator struct {
	client *Client
}

// NewAuthenticator creates an authenticator bound to a client.
func NewAuthenticator(client *Client) *Authenticator {
	return &Authenticator{client: client}
}

// Login walks the handshake: CSRF bootstrap, plaintext credential post,
// stream-encrypted token recovery, profile fetch, and session key derivation.
// The login POST itself is the one plaintext call in the protocol; everything
// after it rides the envelope.
func (a *Authenticator) Login(ctx context.Context, username, password string) (*Session, error) {
	csrf, err := a.fetchCSRFToken(ctx)
	if err != nil {
		return nil, err
	}

	form := url.Values{}
	form.Set(fieldMobile, username)
	form.Set(fieldPassword, password)
	form.Set(csrfCookieName, csrf)

	reply := a.client.PostWebForm(ctx, PathLogin, form)
	if reply == nil {
		return nil, fmt.Errorf("%w: no response", ErrLoginRejected)
	}
	if status, ok := reply["status"].(float64); !ok || int(status) != loginOKStatus {
		return nil, fmt.Errorf("%w: status %v", ErrLoginRejected, reply["status"])
	}

	wire, _ := reply["response"].(string)
	tokens := crypto.DecodeStreamJSON(wire)
	if tokens == nil {
		return nil, ErrMalformedLoginResponse
	}

	sessionToken, _ := tokens["token"].(string)
	var jwt string
	if data, ok := tokens["data"].(map[string]any); ok {
		jwt, _ = data["jwt"].(string)
	}
	if sessionToken == "" || jwt == "" {
		return nil, ErrMalformedLoginResponse
	}

	// Identity headers must be live for the profile call.
	a.client.SetSession(&Session{
		CSRFToken:    csrf,
		SessionToken: sessionToken,
		JWT:          jwt,
	})

	userID, err := a.fetchUserID(ctx)
	if err != nil {
		// Half a login is worse than none: without session keys the
		// encrypted calls cannot work, so drop the partial identity.
		a.client.SetSession(nil)
		return nil, err
	}

	key, iv, err := crypto.DeriveSessionKeys(userID)
	if err != nil {
		a.client.SetSession(nil)
		return nil, fmt.Errorf("%w: %v", ErrProfileFetch, err)
	}

	session := &Session{
		CSRFToken:    csrf,
		SessionToken: sessionToken,
		JWT:          jwt,
		UserID:       userID,
		Key:          key,
		IV:           iv,
	}
	a.client.SetSession(session)
	a.client.Codec().SetSessionKeys(key, iv)

	return session, nil
}

// fetchCSRFToken reads the csrf cookie off an unauthenticated page load.
func (a *Authenticator) fetchCSRFToken(ctx context.Context) (string, error) {
	resp, err := a.client.getWeb(ctx, "/")
	if err != nil {
		return "", fmt.Errorf("csrf bootstrap: %w", err)
	}
	defer resp.Body.Close()

	for _, cookie := range resp.Cookies() {
		if cookie.Name == csrfCookieName && cookie.Value != "" {
			return cookie.Value, nil
		}
	}
	return "", ErrMissingCSRFToken
}

// fetchUserID pulls the numeric user id from the profile endpoint.
func (a *Authenticator) fetchUserID(ctx context.Context) (string, error) {
	profile := a.client.Post(ctx, PathProfile, nil, crypto.KeyCommon)

	data, ok := profile["data"].(map[string]any)
	if !ok {
		return "", ErrProfileFetch
	}

	switch id := data["id"].(type) {
	case string:
		if id != "" {
			return id, nil
		}
	case float64:
		return strconv.FormatInt(int64(id), 10), nil
	}
	return "", ErrProfileFetch
}
