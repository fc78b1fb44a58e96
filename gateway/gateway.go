// Package gateway talks to the backend login endpoint. A successful login is
// committed to the session store before the caller hears about it.
//
// The endpoint accepts a JSON body with email and password and answers with
// an envelope:
//
//	{"success": true, "data": {"id": 2, "email": "...", "name": "...", "role": "admin"}}
//	{"success": false, "message": "Invalid credentials"}
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"github.com/danieldean2000/oscorm-dashboard/errors"
	"github.com/danieldean2000/oscorm-dashboard/identity"
	"github.com/danieldean2000/oscorm-dashboard/logging"
	"github.com/google/uuid"
	"golang.org/x/net/publicsuffix"
)

const (
	// RequestIDHeader carries a per-attempt identifier to the backend.
	RequestIDHeader = "X-Request-Id"

	maxBodyBytes    = 1 << 20
	maxLoggedPrefix = 200
)

// Committer receives identities from successful logins.
type Committer interface {
	Commit(ctx context.Context, id identity.Identity) error
}

// Kind classifies the outcome of a login attempt.
type Kind int

const (
	// Unavailable means the backend could not be used, or the identity it
	// returned could not be committed.
	Unavailable Kind = iota
	// Accepted means the identity was committed to the session store.
	Accepted
	// Rejected means the backend refused the login with a message.
	Rejected
	// RejectedSilently means the backend refused the login without a message.
	RejectedSilently
)

func (k Kind) String() string {
	switch k {
	case Accepted:
		return "accepted"
	case Rejected:
		return "rejected"
	case RejectedSilently:
		return "rejected_silently"
	default:
		return "unavailable"
	}
}

// Result is the outcome of Authenticate. Identity is set for Accepted,
// Message for Rejected and Err for Unavailable.
type Result struct {
	Kind     Kind
	Identity identity.Identity
	Message  string
	Err      error
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client used for requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithTimeout bounds each login request. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithCookieJar keeps cookies the backend sets across requests, scoped with
// the public suffix list.
func WithCookieJar() Option {
	return func(c *Client) {
		c.cookies = true
	}
}

// WithRequestIDs toggles the X-Request-Id header.
func WithRequestIDs(enabled bool) Option {
	return func(c *Client) {
		c.requestIDs = enabled
	}
}

// Client performs logins against a single endpoint.
type Client struct {
	loginURL   string
	sessions   Committer
	http       *http.Client
	timeout    time.Duration
	cookies    bool
	requestIDs bool
}

// New returns a Client that posts to loginURL and commits accepted
// identities to sessions.
func New(loginURL string, sessions Committer, opts ...Option) *Client {
	c := &Client{
		loginURL:   loginURL,
		sessions:   sessions,
		http:       http.DefaultClient,
		timeout:    30 * time.Second,
		requestIDs: true,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.cookies {
		jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
		if err != nil {
			panic("gateway: failed to create cookie jar: " + err.Error())
		}
		hc := *c.http
		hc.Jar = jar
		c.http = &hc
	}
	return c
}

// LoginURL returns the endpoint the client posts to.
func (c *Client) LoginURL() string {
	return c.loginURL
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type envelope struct {
	Success *bool           `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message json.RawMessage `json:"message"`
}

// Authenticate posts the credentials once and classifies the response. An
// Accepted result means the identity is already the current session.
func (c *Client) Authenticate(ctx context.Context, email, password string) Result {
	ctx = logging.EnsureLogger(ctx)
	ctx = logging.With(ctx, logging.FromContext(ctx).Named("gateway"))
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	body, err := json.Marshal(credentials{Email: email, Password: password})
	if err != nil {
		return unavailable(ctx, errors.Wrap(err, 0))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.loginURL, bytes.NewReader(body))
	if err != nil {
		return unavailable(ctx, errors.WrapPrefix(err, "gateway: bad login url", 0))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.requestIDs {
		rid := uuid.NewString()
		req.Header.Set(RequestIDHeader, rid)
		logging.Track(ctx, "request_id", rid)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return unavailable(ctx, errors.WrapPrefix(err, "gateway: request failed", 0))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return unavailable(ctx, errors.WrapPrefix(err, "gateway: failed to read response", 0))
	}

	if !isJSON(resp.Header.Get("Content-Type")) {
		logging.Errorw(ctx, "gateway: backend returned non-JSON response",
			"status", resp.StatusCode, "content_type", resp.Header.Get("Content-Type"), "body", prefix(raw))
		return unavailable(ctx, errors.Errorf("gateway: unexpected content type %q", resp.Header.Get("Content-Type")))
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		logging.Errorw(ctx, "gateway: undecodable response", "status", resp.StatusCode, "body", prefix(raw))
		return unavailable(ctx, errors.WrapPrefix(err, "gateway: undecodable response", 0))
	}
	if env.Success == nil {
		return unavailable(ctx, errors.New("gateway: response has no success flag"))
	}

	if *env.Success {
		if res, ok := c.accept(ctx, env.Data); ok {
			return res
		}
	}

	if msg := messageText(env.Message); msg != "" {
		logging.Infow(ctx, "gateway: login rejected", "status", resp.StatusCode, "message", msg)
		return Result{Kind: Rejected, Message: msg}
	}
	logging.Infow(ctx, "gateway: login rejected without message", "status", resp.StatusCode)
	return Result{Kind: RejectedSilently}
}

// accept commits the identity in data. The boolean is false when data is not
// a usable identity, in which case the response is treated as a refusal.
func (c *Client) accept(ctx context.Context, data json.RawMessage) (Result, bool) {
	if len(data) == 0 {
		logging.Warn(ctx, "gateway: success response without data")
		return Result{}, false
	}
	id, err := identity.Decode(data)
	if err != nil {
		logging.Warnw(ctx, "gateway: success response with malformed data", "error", err)
		return Result{}, false
	}
	// Cancelled or timed-out attempts never commit.
	if err := ctx.Err(); err != nil {
		return unavailable(ctx, errors.WrapPrefix(err, "gateway: login abandoned", 0)), true
	}
	if err := c.sessions.Commit(ctx, id); err != nil {
		return unavailable(ctx, errors.WrapPrefix(err, "gateway: failed to commit session", 0)), true
	}
	logging.Infow(ctx, "gateway: login accepted", "user.id", id.ID, "user.role", id.Role)
	return Result{Kind: Accepted, Identity: id}, true
}

// Login adapts Authenticate to the boolean-or-error shape the UI expects:
// true on success, a *RejectedError carrying the backend's message, false for
// a refusal without one, and ErrBackendUnavailable otherwise.
func (c *Client) Login(ctx context.Context, email, password string) (bool, error) {
	res := c.Authenticate(ctx, email, password)
	switch res.Kind {
	case Accepted:
		return true, nil
	case Rejected:
		return false, &RejectedError{Message: res.Message}
	case RejectedSilently:
		return false, nil
	default:
		return false, &unavailableError{cause: res.Err}
	}
}

// messageText returns a string message as is and a number or boolean in its
// JSON form. Objects, arrays and null carry no message.
func messageText(raw json.RawMessage) string {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return ""
	}
	switch v := v.(type) {
	case string:
		return v
	case float64, bool:
		return string(bytes.TrimSpace(raw))
	}
	return ""
}

func unavailable(ctx context.Context, err error) Result {
	logging.Warnw(ctx, "gateway: backend unavailable", "error", err)
	return Result{Kind: Unavailable, Err: err}
}

func isJSON(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mt == "application/json" || strings.HasSuffix(mt, "+json")
}

func prefix(b []byte) string {
	if len(b) > maxLoggedPrefix {
		b = b[:maxLoggedPrefix]
	}
	return string(b)
}
