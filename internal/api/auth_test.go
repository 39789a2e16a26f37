package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ytget/coursegrab/internal/crypto"
	"github.com/ytget/coursegrab/internal/logger"
)

// vendorStub fakes both vendor hosts on a single httptest server.
type vendorStub struct {
	setCSRF     bool
	loginStatus int
	loginWire   func() string
	profileID   any
}

func (v *vendorStub) handler(t *testing.T) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/":
			if v.setCSRF {
				http.SetCookie(w, &http.Cookie{Name: "csrf_name", Value: "csrf-abc"})
			}
		case PathLogin:
			require.NoError(t, r.ParseForm())
			require.Equal(t, "csrf-abc", r.PostFormValue("csrf_name"))
			_ = json.NewEncoder(w).Encode(map[string]any{
				"status":   v.loginStatus,
				"response": v.loginWire(),
			})
		case PathProfile:
			wire, err := crypto.NewCodec().Encrypt(map[string]any{
				"data": map[string]any{"id": v.profileID},
			}, crypto.KeyCommon)
			require.NoError(t, err)
			_, _ = w.Write([]byte(wire))
		default:
			http.NotFound(w, r)
		}
	}
}

func goodLoginWire() string {
	return crypto.EncryptStream(`{"token":"sess-tok","data":{"jwt":"jwt-xyz"}}`)
}

func TestAuthenticator_LoginSuccess(t *testing.T) {
	stub := &vendorStub{
		setCSRF:     true,
		loginStatus: 200,
		loginWire:   goodLoginWire,
		profileID:   "903211",
	}
	srv := httptest.NewServer(stub.handler(t))
	defer srv.Close()

	c := NewClient(srv.URL, srv.URL, logger.NewNop())
	session, err := NewAuthenticator(c).Login(context.Background(), "9990001234", "secret")
	require.NoError(t, err)

	require.Equal(t, "csrf-abc", session.CSRFToken)
	require.Equal(t, "sess-tok", session.SessionToken)
	require.Equal(t, "jwt-xyz", session.JWT)
	require.Equal(t, "903211", session.UserID)
	require.Len(t, session.Key, 16)
	require.Len(t, session.IV, 16)

	// Derivation is reproducible from the user id alone.
	key, iv, err := crypto.DeriveSessionKeys("903211")
	require.NoError(t, err)
	require.Equal(t, key, session.Key)
	require.Equal(t, iv, session.IV)

	require.Same(t, session, c.Session())
}

func TestAuthenticator_LoginNumericProfileID(t *testing.T) {
	stub := &vendorStub{
		setCSRF:     true,
		loginStatus: 200,
		loginWire:   goodLoginWire,
		profileID:   903211, // some accounts report the id as a JSON number
	}
	srv := httptest.NewServer(stub.handler(t))
	defer srv.Close()

	c := NewClient(srv.URL, srv.URL, logger.NewNop())
	session, err := NewAuthenticator(c).Login(context.Background(), "u", "p")
	require.NoError(t, err)
	require.Equal(t, "903211", session.UserID)
}

func TestAuthenticator_MissingCSRFToken(t *testing.T) {
	stub := &vendorStub{setCSRF: false}
	srv := httptest.NewServer(stub.handler(t))
	defer srv.Close()

	c := NewClient(srv.URL, srv.URL, logger.NewNop())
	_, err := NewAuthenticator(c).Login(context.Background(), "u", "p")
	require.ErrorIs(t, err, ErrMissingCSRFToken)
}

func TestAuthenticator_LoginRejected(t *testing.T) {
	stub := &vendorStub{
		setCSRF:     true,
		loginStatus: 401,
		loginWire:   func() string { return "" },
	}
	srv := httptest.NewServer(stub.handler(t))
	defer srv.Close()

	c := NewClient(srv.URL, srv.URL, logger.NewNop())
	_, err := NewAuthenticator(c).Login(context.Background(), "u", "wrong")
	require.ErrorIs(t, err, ErrLoginRejected)
}

func TestAuthenticator_MalformedLoginResponse(t *testing.T) {
	tests := []struct {
		name string
		wire func() string
	}{
		{"undecryptable", func() string { return "garbage" }},
		{"missing jwt", func() string {
			return crypto.EncryptStream(`{"token":"sess-tok","data":{}}`)
		}},
		{"missing token", func() string {
			return crypto.EncryptStream(`{"data":{"jwt":"jwt-xyz"}}`)
		}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			stub := &vendorStub{setCSRF: true, loginStatus: 200, loginWire: test.wire}
			srv := httptest.NewServer(stub.handler(t))
			defer srv.Close()

			c := NewClient(srv.URL, srv.URL, logger.NewNop())
			_, err := NewAuthenticator(c).Login(context.Background(), "u", "p")
			require.ErrorIs(t, err, ErrMalformedLoginResponse)
		})
	}
}

func TestAuthenticator_ProfileFetchFailed(t *testing.T) {
	stub := &vendorStub{
		setCSRF:     true,
		loginStatus: 200,
		loginWire:   goodLoginWire,
		profileID:   "", // profile present but id empty
	}
	srv := httptest.NewServer(stub.handler(t))
	defer srv.Close()

	c := NewClient(srv.URL, srv.URL, logger.NewNop())
	_, err := NewAuthenticator(c).Login(context.Background(), "u", "p")
	require.True(t, errors.Is(err, ErrProfileFetch))

	// The identity installed for the profile call must not outlive the
	// failed login.
	require.Nil(t, c.Session())
}
