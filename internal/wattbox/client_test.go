package wattbox

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testUser = "wattbox"
	testPass = "secret"
)

func newTestClient(t *testing.T, baseURL, username, password string) *Client {
	t.Helper()
	client, err := NewClient(baseURL, username, password, 0)
	require.NoError(t, err)
	return client
}

// newBasicServer answers every request with a Basic challenge until
// valid credentials arrive.
func newBasicServer(username, password string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != username || pass != password {
			w.Header().Set("WWW-Authenticate", `Basic realm="WattBox"`)
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
}

func md5Hex(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

func parseDigestParams(header string) map[string]string {
	params := map[string]string{}
	for _, part := range strings.Split(strings.TrimPrefix(header, "Digest "), ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}
		params[kv[0]] = strings.Trim(kv[1], `"`)
	}
	return params
}

// newDigestServer challenges with Digest auth and verifies the RFC 2617
// response hash, so a client that only sends Basic credentials can
// never pass.
func newDigestServer(username, password string) *httptest.Server {
	const realm = "WattBox"
	const nonce = "dcd98b7102dd2f0e8b11d0f600bfb0c093"
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		if !strings.HasPrefix(auth, "Digest ") {
			w.Header().Set("WWW-Authenticate",
				fmt.Sprintf(`Digest realm=%q, nonce=%q, qop="auth", algorithm=MD5`, realm, nonce))
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		params := parseDigestParams(auth)
		ha1 := md5Hex(username + ":" + realm + ":" + password)
		ha2 := md5Hex(r.Method + ":" + params["uri"])
		expected := md5Hex(strings.Join([]string{
			ha1, params["nonce"], params["nc"], params["cnonce"], params["qop"], ha2,
		}, ":"))
		if params["username"] != username || params["response"] != expected {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
}

func TestControlURL(t *testing.T) {
	tests := []struct {
		baseURL string
		outlet  int
		action  Action
		want    string
	}{
		{"http://172.16.19.184", 3, ACTION_OFF, "http://172.16.19.184/outlet/off?o=3"},
		{"http://172.16.19.184/", 1, ACTION_ON, "http://172.16.19.184/outlet/on?o=1"},
		{"https://wattbox.local:8443", 12, ACTION_RESET, "https://wattbox.local:8443/outlet/reset?o=12"},
	}
	for _, tt := range tests {
		client := newTestClient(t, tt.baseURL, testUser, testPass)
		assert.Equal(t, tt.want, client.ControlURL(tt.outlet, tt.action))
	}
}

func TestNewClientRejectsBadURL(t *testing.T) {
	_, err := NewClient("not a url", testUser, testPass, 0)
	assert.Error(t, err)

	_, err = NewClient("ftp://172.16.19.184", testUser, testPass, 0)
	assert.Error(t, err)
}

func TestProbeDetectsBasicAuth(t *testing.T) {
	srv := newBasicServer(testUser, testPass)
	defer srv.Close()

	client := newTestClient(t, srv.URL, testUser, testPass)
	require.NoError(t, client.Probe(context.Background()))
	assert.Equal(t, AUTH_BASIC, client.AuthMode())

	require.NoError(t, client.Login(context.Background()))
	require.NoError(t, client.SetOutlet(context.Background(), 3, ACTION_OFF))
}

func TestProbeDetectsDigestAuth(t *testing.T) {
	srv := newDigestServer(testUser, testPass)
	defer srv.Close()

	client := newTestClient(t, srv.URL, testUser, testPass)
	require.NoError(t, client.Probe(context.Background()))
	assert.Equal(t, AUTH_DIGEST, client.AuthMode())

	require.NoError(t, client.Login(context.Background()))
	require.NoError(t, client.SetOutlet(context.Background(), 5, ACTION_RESET))
}

func TestProbeFollowsHTTPSRedirect(t *testing.T) {
	secure := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != testUser || pass != testPass {
			w.Header().Set("WWW-Authenticate", `Basic realm="WattBox"`)
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer secure.Close()

	plain := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, secure.URL+r.URL.Path, http.StatusFound)
	}))
	defer plain.Close()

	client := newTestClient(t, plain.URL, testUser, testPass)
	require.NoError(t, client.Probe(context.Background()))
	assert.Equal(t, secure.URL, client.BaseURL())
	assert.Equal(t, AUTH_BASIC, client.AuthMode())

	// commands go to the upgraded base URL, ignoring the self-signed cert
	require.NoError(t, client.Login(context.Background()))
	require.NoError(t, client.SetOutlet(context.Background(), 1, ACTION_ON))
}

func TestRejectedCredentials(t *testing.T) {
	srv := newBasicServer(testUser, testPass)
	defer srv.Close()

	client := newTestClient(t, srv.URL, testUser, "wrong")
	require.NoError(t, client.Probe(context.Background()))

	err := client.Login(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "authentication failed")
}

func TestSetOutletBeforeProbe(t *testing.T) {
	client := newTestClient(t, "http://172.16.19.184", testUser, testPass)
	assert.Error(t, client.SetOutlet(context.Background(), 1, ACTION_ON))
}

func TestActionValidation(t *testing.T) {
	for _, valid := range []string{"on", "off", "reset"} {
		action, err := ParseAction(valid)
		require.NoError(t, err)
		assert.Equal(t, valid, action.String())
	}
	for _, invalid := range []string{"", "toggle", "ON"} {
		_, err := ParseAction(invalid)
		assert.Error(t, err, "action %q should be rejected", invalid)
	}
}
