package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/ytget/coursegrab/internal/crypto"
	"github.com/ytget/coursegrab/internal/logger"
)

// Production hosts.
const (
	DefaultAPIBaseURL = "https://application.utkarshapp.com/index.php/data_model"
	DefaultWebBaseURL = "https://online.utkarsh.com"
)

// Data-model endpoint paths.
const (
	PathProfile    = "/users/get_my_profile"
	PathMetaSource = "/meta_distributer/on_request_meta_source"
)

// Web endpoint paths.
const (
	PathLogin        = "/web/Auth/login"
	PathTilesData    = "/web/Course/tiles_data"
	PathLayerTwoData = "/web/Course/get_layer_two_data"
)

// Fixed header values the data-model host expects on every call.
const (
	headerBearer      = "Bearer 152#svf346t45ybrer34yredk76t"
	headerDeviceType  = "1"
	headerLang        = "1"
	headerUserAgent   = "okhttp/4.9.0"
	headerAPIVersion  = "152"
	headerContentType = "text/plain; charset=UTF-8"
)

// DefaultRequestTimeout bounds every API request.
const DefaultRequestTimeout = 60 * time.Second

// Client issues requests against both vendor hosts. One authenticated
// identity is active per Client; concurrent Clients are independent.
type Client struct {
	httpClient *http.Client
	apiBase    string
	webBase    string
	codec      *crypto.Codec
	session    *Session
	log        *logger.Logger
}

// NewClient creates a client for the given hosts. The cookie jar carries the
// web host's session cookies from login into the navigation calls.
func NewClient(apiBase, webBase string, log *logger.Logger) *Client {
	jar, _ := cookiejar.New(nil)
	return &Client{
		httpClient: &http.Client{
			Timeout: DefaultRequestTimeout,
			Jar:     jar,
		},
		apiBase: apiBase,
		webBase: webBase,
		codec:   crypto.NewCodec(),
		log:     log,
	}
}

// Codec exposes the codec so the authenticator can install session keys.
func (c *Client) Codec() *crypto.Codec {
	return c.codec
}

// Session returns the active session, or nil before login.
func (c *Client) Session() *Session {
	return c.session
}

// SetSession installs the authenticated identity used for the header block
// and web calls. The authenticator calls this as login progresses.
func (c *Client) SetSession(s *Session) {
	c.session = s
}

// Post issues an encrypted data-model call. The payload (when present) is
// encrypted under the given key mode, and the response body is decrypted
// under the same mode. Every failure, from the network up through JSON
// parsing, collapses to an empty object: the vendor reports errors
// inconsistently, so "could not decode" and "no data" are the same thing.
func (c *Client) Post(ctx context.Context, path string, payload any, mode crypto.KeyMode) map[string]any {
	var body string
	if payload != nil {
		wire, err := c.codec.Encrypt(payload, mode)
		if err != nil {
			c.log.Warn("encrypt payload failed", "path", path, "error", err)
			return map[string]any{}
		}
		body = wire
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiBase+path, strings.NewReader(body))
	if err != nil {
		return map[string]any{}
	}
	c.applyDataModelHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Warn("data-model call failed", "path", path, "error", err)
		return map[string]any{}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return map[string]any{}
	}

	obj := c.codec.DecryptJSON(string(raw), mode)
	if obj == nil {
		c.log.Debug("undecryptable data-model response", "path", path, "status", resp.StatusCode)
		return map[string]any{}
	}
	return obj
}

// PostWebForm issues a form-encoded call against the web host and parses the
// JSON response. Returns nil on any failure.
func (c *Client) PostWebForm(ctx context.Context, path string, form url.Values) map[string]any {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webBase+path, strings.NewReader(form.Encode()))
	if err != nil {
		return nil
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if c.session != nil {
		req.Header.Set("token", c.session.SessionToken)
		req.Header.Set("jwt", c.session.JWT)
		req.Header.Set("csrf_name", c.session.CSRFToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Warn("web call failed", "path", path, "error", err)
		return nil
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil
	}

	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil
	}
	return obj
}

// getWeb fetches a web host page, used only for the CSRF bootstrap.
func (c *Client) getWeb(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.webBase+path, nil)
	if err != nil {
		return nil, err
	}
	return c.httpClient.Do(req)
}

// applyDataModelHeaders sets the fixed header block plus the post-login
// identity headers when a session is active.
func (c *Client) applyDataModelHeaders(req *http.Request) {
	req.Header.Set("Authorization", headerBearer)
	req.Header.Set("Content-Type", headerContentType)
	req.Header.Set("devicetype", headerDeviceType)
	req.Header.Set("lang", headerLang)
	req.Header.Set("User-Agent", headerUserAgent)
	req.Header.Set("version", headerAPIVersion)

	userID := "0"
	if c.session != nil {
		if c.session.UserID != "" {
			userID = c.session.UserID
		}
		req.Header.Set("jwt", c.session.JWT)
	}
	req.Header.Set("userid", userID)
}
