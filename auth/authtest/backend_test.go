package authtest

import (
	"compress/gzip"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/danieldean2000/oscorm-dashboard/identity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func post(t *testing.T, s *Server, body string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Post(s.LoginURL(), "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out map[string]any
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(raw, &out))
	}
	return resp, out
}

func TestLoginAccepted(t *testing.T) {
	s := NewServer(t)

	resp, body := post(t, s, `{"email":"admin@blog.com","password":"admin123"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["success"])
	data := body["data"].(map[string]any)
	assert.InDelta(t, 1, data["id"], 0, "ids are sent as numbers")
	assert.Equal(t, "admin", data["role"])
	assert.Equal(t, int64(1), s.Attempts())
}

func TestLoginRefused(t *testing.T) {
	s := NewServer(t)

	tests := []struct {
		name   string
		body   string
		status int
		msg    string
	}{
		{"wrong password", `{"email":"user@blog.com","password":"nope"}`, http.StatusUnauthorized, "Invalid credentials"},
		{"unknown user", `{"email":"ghost@blog.com","password":"x"}`, http.StatusUnauthorized, "Invalid credentials"},
		{"missing fields", `{"email":"user@blog.com"}`, http.StatusBadRequest, "Email and password are required"},
		{"bad json", `{`, http.StatusBadRequest, "Invalid request body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := post(t, s, tt.body)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, false, body["success"])
			assert.Equal(t, tt.msg, body["message"])
			assert.NotContains(t, body, "data")
		})
	}
}

func TestEmailIsCaseInsensitive(t *testing.T) {
	s := NewServer(t)
	resp, _ := post(t, s, `{"email":"User@Blog.com","password":"user123"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestMethodNotAllowed(t *testing.T) {
	s := NewServer(t)
	resp, err := http.Get(s.LoginURL())
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	assert.Equal(t, http.MethodPost, resp.Header.Get("Allow"))
}

func TestModes(t *testing.T) {
	s := NewServer(t)

	s.SetMode(NoMessage)
	resp, body := post(t, s, `{"email":"user@blog.com","password":"nope"}`)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.NotContains(t, body, "message")

	s.SetMode(HTMLErrors)
	resp, body = post(t, s, `{"email":"user@blog.com","password":"user123"}`)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
	assert.Nil(t, body)

	s.SetMode(Normal)
	resp, _ = post(t, s, `{"email":"user@blog.com","password":"user123"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCustomUsers(t *testing.T) {
	s := NewServer(t, WithUsers(User{NumericID: 42, Email: "e@x.com", Name: "E", Role: identity.RoleStandardUser, Password: "pw"}))

	resp, _ := post(t, s, `{"email":"admin@blog.com","password":"admin123"}`)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, "default users are replaced")

	resp, body := post(t, s, `{"email":"e@x.com","password":"pw"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.InDelta(t, 42, body["data"].(map[string]any)["id"], 0)
}

func TestGzip(t *testing.T) {
	s := NewServer(t)
	require.NoError(t, s.AddUser(User{NumericID: 3, Email: "long@blog.com", Name: strings.Repeat("n", 2000), Role: identity.RoleStandardUser, Password: "pw"}))

	req, err := http.NewRequest(http.MethodPost, s.LoginURL(), strings.NewReader(`{"email":"long@blog.com","password":"pw"}`))
	require.NoError(t, err)
	req.Header.Set("Accept-Encoding", "gzip")
	resp, err := http.DefaultTransport.RoundTrip(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "gzip", resp.Header.Get("Content-Encoding"))
	zr, err := gzip.NewReader(resp.Body)
	require.NoError(t, err)
	var body map[string]any
	require.NoError(t, json.NewDecoder(zr).Decode(&body))
	assert.Equal(t, true, body["success"])
}

func TestCORS(t *testing.T) {
	s := NewServer(t, WithCORSOrigins("http://localhost:3000"))

	req, err := http.NewRequest(http.MethodOptions, s.LoginURL(), nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "http://localhost:3000", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "POST", resp.Header.Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "Content-Type, X-Request-Id", resp.Header.Get("Access-Control-Allow-Headers"))
	assert.Equal(t, int64(0), s.Attempts(), "preflight never reaches the login handler")

	req, err = http.NewRequest(http.MethodPost, s.LoginURL(), strings.NewReader(`{"email":"user@blog.com","password":"user123"}`))
	require.NoError(t, err)
	req.Header.Set("Origin", "http://evil.example")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
}
