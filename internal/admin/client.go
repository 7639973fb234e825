// Package admin implements the authenticated client for the object store's
// administrative API. A client obtains a token once at construction via basic
// authentication and reattaches it to every subsequent call; there is no
// refresh handling, so a token expired server-side surfaces as a request
// failure on the next call.
package admin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/objstore-policy-mgmt/internal/audit"
	"github.com/objstore-policy-mgmt/internal/config"
	"github.com/objstore-policy-mgmt/internal/creds"
	"github.com/objstore-policy-mgmt/internal/errors"
	"github.com/objstore-policy-mgmt/internal/policy"
)

const (
	// tokenPath is the token-issuance path, resolved against the base URI
	tokenPath = ".TOKEN/"
	// tokenCookie is the cookie carrying the session token
	tokenCookie = "token"
	// adminPrefix is the administrative interface root
	adminPrefix = "/_admin/manage/"
	// domainPathTmpl locates a domain artifact under a tenant
	domainPathTmpl = "tenants/%s/domains/%s/%s"
)

// Operation suffixes for domain artifacts
const (
	OpDomainEtc    = "etc"
	OpDomainPolicy = "etc/policy.json"
)

// maxErrorBody bounds how much of an error response body is kept for
// diagnostics
const maxErrorBody = 4 << 10

// Client is an authenticated session against the administrative API. Tenant
// and domain are passed per call, so one client is reusable across domains.
type Client struct {
	baseURL  *url.URL
	adminURL *url.URL
	http     *http.Client
	token    string
	log      *logrus.Logger
	audit    audit.Logger
}

// Option configures a Client before authentication
type Option func(*Client)

// WithLogger sets the diagnostic logger
func WithLogger(log *logrus.Logger) Option {
	return func(c *Client) { c.log = log }
}

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the per-request timeout on the underlying HTTP client
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithAuditLogger records every dispatched call to the given audit logger
func WithAuditLogger(a audit.Logger) Option {
	return func(c *Client) { c.audit = a }
}

// New creates a client for the given base URI and authenticates it with one
// basic-auth round trip to the token-issuance path.
func New(ctx context.Context, baseURI, username, passwd string, opts ...Option) (*Client, error) {
	if baseURI == "" {
		return nil, errors.NewConfigError("base URI is required")
	}
	base, err := url.Parse(baseURI)
	if err != nil {
		return nil, errors.NewConfigError("invalid base URI %q: %v", baseURI, err)
	}

	log := logrus.New()
	log.SetLevel(logrus.WarnLevel)

	c := &Client{
		baseURL:  base,
		adminURL: base.ResolveReference(&url.URL{Path: adminPrefix}),
		http:     &http.Client{Timeout: 30 * time.Second},
		log:      log,
		audit:    audit.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if err := c.authenticate(ctx, username, passwd); err != nil {
		return nil, err
	}
	return c, nil
}

// NewFromConfig creates a client from a YAML settings file and a separate
// JSON credentials file, keeping secrets out of configuration. The loaded
// settings are returned so the caller can use the configured tenant and
// domain names. The credentials file must contain a password; interactive
// prompting is a front-end concern.
func NewFromConfig(ctx context.Context, settingsPath, credsPath string, opts ...Option) (*Client, *config.Settings, error) {
	settings, err := config.LoadSettings(settingsPath)
	if err != nil {
		return nil, nil, err
	}

	username, passwd, err := creds.File(credsPath).Credentials()
	if err != nil {
		return nil, nil, err
	}
	if passwd == "" {
		return nil, nil, errors.NewConfigError("no password in credentials file %s", credsPath)
	}

	client, err := New(ctx, settings.BaseURI, username, passwd, opts...)
	if err != nil {
		return nil, nil, err
	}
	return client, settings, nil
}

// authenticate obtains the session token via one credentialed POST
func (c *Client) authenticate(ctx context.Context, username, passwd string) error {
	tokURL := c.baseURL.ResolveReference(&url.URL{Path: tokenPath})
	c.log.WithField("url", tokURL.String()).Info("requesting access token")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokURL.String(), nil)
	if err != nil {
		return fmt.Errorf("building token request: %w", err)
	}
	req.SetBasicAuth(username, passwd)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("requesting token from %s: %w", tokURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body := readErrorBody(resp.Body)
		return errors.NewAuthenticationError(errors.NewResponseError(
			fmt.Sprintf("error authenticating user %q", username),
			http.MethodPost, tokURL.String(), resp.StatusCode, body))
	}

	for _, ck := range resp.Cookies() {
		if ck.Name == tokenCookie {
			c.token = ck.Value
			break
		}
	}
	if c.token == "" {
		return errors.NewAuthenticationError(errors.NewResponseError(
			fmt.Sprintf("expecting cookie named %q in authentication response", tokenCookie),
			http.MethodPost, tokURL.String(), resp.StatusCode, ""))
	}

	c.log.Info("access token obtained")
	return nil
}

// Token returns the session token obtained at construction
func (c *Client) Token() string {
	return c.token
}

// GetDomainItem executes a GET on the given artifact for a domain. operation
// is a path suffix such as OpDomainEtc. The decoded JSON body is returned,
// which may be an object or an array.
func (c *Client) GetDomainItem(ctx context.Context, tenant, domain, operation string) (any, error) {
	if err := checkScope(tenant, domain); err != nil {
		return nil, err
	}

	body, err := c.dispatch(ctx, http.MethodGet, tenant, domain, operation, nil)
	if err != nil {
		return nil, err
	}

	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("decoding %s response for domain %q: %w", operation, domain, err)
	}
	return doc, nil
}

// PutDomainItem executes a PUT of the given pre-serialized payload on the
// given artifact for a domain.
func (c *Client) PutDomainItem(ctx context.Context, tenant, domain, operation string, payload []byte) error {
	if err := checkScope(tenant, domain); err != nil {
		return err
	}

	_, err := c.dispatch(ctx, http.MethodPut, tenant, domain, operation, payload)
	return err
}

// GetDomainEtc gets the etc metadata document for a domain
func (c *Client) GetDomainEtc(ctx context.Context, tenant, domain string) (any, error) {
	return c.GetDomainItem(ctx, tenant, domain, OpDomainEtc)
}

// GetDomainPolicy gets the access policy for a domain
func (c *Client) GetDomainPolicy(ctx context.Context, tenant, domain string) (*policy.Policy, error) {
	doc, err := c.GetDomainItem(ctx, tenant, domain, OpDomainPolicy)
	if err != nil {
		return nil, err
	}

	m, ok := doc.(map[string]any)
	if !ok {
		return nil, errors.NewParseError(fmt.Errorf("policy document for domain %q is not a JSON object", domain))
	}
	return policy.FromMap(m)
}

// PutDomainPolicy sets the access policy for a domain
func (c *Client) PutDomainPolicy(ctx context.Context, tenant, domain string, p *policy.Policy) error {
	return c.PutDomainItem(ctx, tenant, domain, OpDomainPolicy, []byte(p.Serialize()))
}

// dispatch issues one authenticated round trip and returns the response body
func (c *Client) dispatch(ctx context.Context, method, tenant, domain, operation string, payload []byte) ([]byte, error) {
	requestID := uuid.New().String()
	domainURL := c.domainURL(tenant, domain, operation)
	start := time.Now()

	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, domainURL.String(), reqBody)
	if err != nil {
		return nil, fmt.Errorf("building %s request: %w", method, err)
	}
	req.AddCookie(&http.Cookie{Name: tokenCookie, Value: c.token})
	req.Header.Set("X-Request-Id", requestID)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.log.WithFields(logrus.Fields{
		"requestId": requestID,
		"method":    method,
		"url":       domainURL.String(),
	}).Info("dispatching request")

	resp, err := c.http.Do(req)
	if err != nil {
		c.audit.Log(audit.NewDomainEntry(requestID, operation, method, domainURL.String(),
			tenant, domain, 0, time.Since(start), err))
		return nil, fmt.Errorf("%s %s: %w", method, domainURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body := readErrorBody(resp.Body)
		reqErr := errors.NewResponseError(fmt.Sprintf("%s request failed", method),
			method, domainURL.String(), resp.StatusCode, body)
		c.audit.Log(audit.NewDomainEntry(requestID, operation, method, domainURL.String(),
			tenant, domain, resp.StatusCode, time.Since(start), reqErr))
		return nil, reqErr
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading %s response: %w", method, err)
	}

	c.audit.Log(audit.NewDomainEntry(requestID, operation, method, domainURL.String(),
		tenant, domain, resp.StatusCode, time.Since(start), nil))
	return body, nil
}

// checkScope fails fast before dispatch when the call is missing its scope
func checkScope(tenant, domain string) error {
	if tenant == "" {
		return errors.NewRequestError("tenancy name is not set - API call not dispatched")
	}
	if domain == "" {
		return errors.NewRequestError("domain name is not set - API call not dispatched")
	}
	return nil
}

func (c *Client) domainURL(tenant, domain, operation string) *url.URL {
	path := fmt.Sprintf(domainPathTmpl, tenant, domain, operation)
	return c.adminURL.ResolveReference(&url.URL{Path: path})
}

func readErrorBody(r io.Reader) string {
	body, _ := io.ReadAll(io.LimitReader(r, maxErrorBody))
	return string(body)
}
