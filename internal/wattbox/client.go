package wattbox

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	neturl "net/url"
	"strings"
	"time"

	"github.com/jpfielding/go-http-digest/pkg/digest"
	"github.com/rs/zerolog/log"

	"github.com/rwakeham/wattbox-controller/internal/url"
)

// AuthMode is the HTTP authentication scheme the device challenges with.
type AuthMode string

const (
	AUTH_BASIC  AuthMode = "basic"
	AUTH_DIGEST AuthMode = "digest"
)

const DefaultTimeout = 10 * time.Second

// Client talks to a single WattBox unit over its HTTP control API.
// Probe() must be called before Login() or SetOutlet() so the client
// knows the final base URL and which auth scheme the device expects.
type Client struct {
	baseURL  string
	username string
	password string
	timeout  time.Duration
	authMode AuthMode
	http     *http.Client
}

// NewClient builds a client for the device at baseURL. The URL is
// sanitized but not contacted until Probe().
func NewClient(baseURL, username, password string, timeout time.Duration) (*Client, error) {
	sanitized, err := url.Sanitize(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid device URL: %w", err)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL:  sanitized,
		username: username,
		password: password,
		timeout:  timeout,
	}, nil
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) AuthMode() AuthMode {
	return c.authMode
}

// insecureTransport skips certificate validation. WattBox units ship
// self-signed certs, so verification would always fail.
func insecureTransport() *http.Transport {
	return &http.Transport{
		TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
	}
}

// Probe makes an unauthenticated request to the device's main page to
// learn two things: whether the device redirects plain HTTP to HTTPS,
// and whether it challenges with Basic or Digest authentication. At
// most one redirect is honored, and only when it upgrades to HTTPS.
func (c *Client) Probe(ctx context.Context) error {
	probe := &http.Client{
		Timeout:   c.timeout,
		Transport: insecureTransport(),
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	log.Debug().Msgf("connecting to %s", c.baseURL)
	res, err := c.probeOnce(ctx, probe)
	if err != nil {
		return err
	}

	switch res.StatusCode {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		location := res.Header.Get("Location")
		log.Debug().Msgf("detected redirect to %s", location)
		redirect, err := neturl.Parse(location)
		if err == nil && redirect.Scheme == "https" {
			c.baseURL = redirect.Scheme + "://" + redirect.Host
			log.Debug().Msgf("switching to HTTPS: %s", c.baseURL)
			res, err = c.probeOnce(ctx, probe)
			if err != nil {
				return err
			}
		}
	}

	challenge := strings.ToLower(res.Header.Get("WWW-Authenticate"))
	if strings.Contains(challenge, "digest") {
		c.authMode = AUTH_DIGEST
	} else {
		c.authMode = AUTH_BASIC
	}
	log.Debug().Msgf("using %s authentication", c.authMode)

	c.http = c.buildAuthClient()
	return nil
}

func (c *Client) probeOnce(ctx context.Context, probe *http.Client) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/main", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create probe request: %w", err)
	}
	res, err := probe.Do(req)
	if err != nil {
		return nil, fmt.Errorf("could not connect to %s: %w", c.baseURL, err)
	}
	io.Copy(io.Discard, res.Body)
	res.Body.Close()
	return res, nil
}

// buildAuthClient returns an HTTP client for authenticated requests.
// Digest challenges are handled by the digest transport; Basic
// credentials are attached per-request in get().
func (c *Client) buildAuthClient() *http.Client {
	client := &http.Client{
		Timeout:   c.timeout,
		Transport: insecureTransport(),
	}
	if c.authMode == AUTH_DIGEST {
		client.Transport = digest.NewTransport(c.username, c.password, insecureTransport())
	}
	return client
}

// Login authenticates against the device's main page with the scheme
// selected during Probe().
func (c *Client) Login(ctx context.Context) error {
	target := c.baseURL + "/main"
	log.Debug().Msgf("authenticating to %s", target)
	if err := c.get(ctx, target); err != nil {
		return fmt.Errorf("authentication failed: %w", err)
	}
	return nil
}

// ControlURL returns the device API endpoint for an outlet operation.
func (c *Client) ControlURL(outlet int, action Action) string {
	return fmt.Sprintf("%s/outlet/%s?o=%d", c.baseURL, action, outlet)
}

// SetOutlet issues the outlet control command.
func (c *Client) SetOutlet(ctx context.Context, outlet int, action Action) error {
	target := c.ControlURL(outlet, action)
	log.Debug().Msgf("sending command to %s", target)
	if err := c.get(ctx, target); err != nil {
		return fmt.Errorf("failed to execute '%s' on outlet %d: %w", action, outlet, err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, target string) error {
	if c.http == nil {
		return fmt.Errorf("client has not probed the device yet")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if c.authMode == AUTH_BASIC {
		req.SetBasicAuth(c.username, c.password)
	}
	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer res.Body.Close()
	io.Copy(io.Discard, res.Body)

	switch {
	case res.StatusCode == http.StatusUnauthorized, res.StatusCode == http.StatusForbidden:
		return fmt.Errorf("device rejected %s credentials (status %d)", c.authMode, res.StatusCode)
	case res.StatusCode >= 300:
		return fmt.Errorf("unexpected status %d from device", res.StatusCode)
	}
	return nil
}
