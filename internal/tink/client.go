// Package tink is a thin client for the Tink open-banking API: OAuth token
// exchange, user lifecycle, paginated transaction export, the Tink Link
// bank-connection URL and webhook registration.
package tink

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"ecobud/internal/cache"
)

// Scopes used by the client
const (
	ScopeUserCreate         = "user:create"
	ScopeUserRead           = "user:read"
	ScopeUserDelete         = "user:delete"
	ScopeTransactionsRead   = "transactions:read"
	ScopeAuthorizationGrant = "authorization:grant"
	ScopeWebhookEndpoints   = "webhook-endpoints"

	// ScopeBankConnection is delegated to Tink Link when a user connects a bank
	ScopeBankConnection = "authorization:read,authorization:grant,credentials:refresh,credentials:read,credentials:write,providers:read,user:read"

	// EventTransactionsModified is the webhook event ecobud subscribes to
	EventTransactionsModified = "account-transactions:modified"
)

const (
	tokenPath              = "/api/v1/oauth/token"
	authorizationGrantPath = "/api/v1/oauth/authorization-grant"
	delegateGrantPath      = "/api/v1/oauth/authorization-grant/delegate"
	createUserPath         = "/api/v1/user/create"
	userPath               = "/api/v1/user"
	deleteUserPath         = "/api/v1/user/delete"
	transactionsPath       = "/data/v2/transactions"
	webhookEndpointsPath   = "/events/v2/webhook-endpoints"
	connectAccountsPath    = "/1.0/transactions/connect-accounts"
)

// ErrUserAlreadyExists is returned by CreateUser when Tink already knows the external user id
var ErrUserAlreadyExists = errors.New("tink user already exists")

// APIError is a non-2xx answer from Tink
type APIError struct {
	Method string
	Path   string
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("tink %s %s: status %d: %s", e.Method, e.Path, e.Status, e.Body)
}

type Config struct {
	BaseURL       string
	LinkURL       string
	ClientID      string
	ClientSecret  string
	ActorClientID string
	RedirectURI   string
	Market        string
	Locale        string
	TokenTTL      time.Duration
	HTTPClient    *http.Client
}

type Client struct {
	cfg    Config
	http   *http.Client
	tokens *cache.LRUCache[*oauth2.Token]
}

func NewClient(cfg Config) *Client {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	cfg.LinkURL = strings.TrimRight(cfg.LinkURL, "/")
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 10 * time.Minute
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		cfg:    cfg,
		http:   httpClient,
		tokens: cache.NewLRUCache[*oauth2.Token](1000, cfg.TokenTTL),
	}
}

// TokenCache exposes the token cache so that it can be registered for cleanup
func (c *Client) TokenCache() cache.Cleaner {
	return c.tokens
}

func (c *Client) oauthContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, c.http)
}

func (c *Client) cacheToken(key string, tok *oauth2.Token) {
	ttl := c.cfg.TokenTTL
	if !tok.Expiry.IsZero() {
		// refresh a little before Tink expires the token
		if until := time.Until(tok.Expiry) - 30*time.Second; until < ttl {
			ttl = until
		}
	}
	if ttl > 0 {
		c.tokens.SetWithTTL(key, tok, ttl)
	}
}

// ClientToken returns a client-credentials access token for scope
func (c *Client) ClientToken(ctx context.Context, scope string) (string, error) {
	key := "client|" + scope
	if tok, ok := c.tokens.Get(key); ok {
		return tok.AccessToken, nil
	}

	cc := clientcredentials.Config{
		ClientID:     c.cfg.ClientID,
		ClientSecret: c.cfg.ClientSecret,
		TokenURL:     c.cfg.BaseURL + tokenPath,
		Scopes:       []string{scope},
		AuthStyle:    oauth2.AuthStyleInParams,
	}
	tok, err := cc.Token(c.oauthContext(ctx))
	if err != nil {
		return "", fmt.Errorf("tink client token (%s): %w", scope, err)
	}
	c.cacheToken(key, tok)
	return tok.AccessToken, nil
}

type grantResponse struct {
	Code string `json:"code"`
}

// AuthorizationCode requests an authorization code for username with scope
func (c *Client) AuthorizationCode(ctx context.Context, username, scope string) (string, error) {
	form := url.Values{
		"external_user_id": {username},
		"scope":            {scope},
	}
	return c.grant(ctx, authorizationGrantPath, form)
}

// DelegatedAuthorizationCode requests a code that Tink Link may use on the user's behalf
func (c *Client) DelegatedAuthorizationCode(ctx context.Context, username, scope, idHint string) (string, error) {
	form := url.Values{
		"external_user_id": {username},
		"scope":            {scope},
		"actor_client_id":  {c.cfg.ActorClientID},
		"id_hint":          {idHint},
	}
	return c.grant(ctx, delegateGrantPath, form)
}

func (c *Client) grant(ctx context.Context, path string, form url.Values) (string, error) {
	token, err := c.ClientToken(ctx, ScopeAuthorizationGrant)
	if err != nil {
		return "", err
	}
	var resp grantResponse
	body := strings.NewReader(form.Encode())
	if err := c.do(ctx, http.MethodPost, path, token, "application/x-www-form-urlencoded", body, &resp); err != nil {
		return "", err
	}
	if resp.Code == "" {
		return "", fmt.Errorf("tink %s: empty authorization code", path)
	}
	return resp.Code, nil
}

// UserToken returns an access token acting as username with scope
func (c *Client) UserToken(ctx context.Context, username, scope string) (string, error) {
	key := "user|" + username + "|" + scope
	if tok, ok := c.tokens.Get(key); ok {
		return tok.AccessToken, nil
	}

	code, err := c.AuthorizationCode(ctx, username, scope)
	if err != nil {
		return "", err
	}
	oc := oauth2.Config{
		ClientID:     c.cfg.ClientID,
		ClientSecret: c.cfg.ClientSecret,
		Endpoint: oauth2.Endpoint{
			TokenURL:  c.cfg.BaseURL + tokenPath,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
	tok, err := oc.Exchange(c.oauthContext(ctx), code)
	if err != nil {
		return "", fmt.Errorf("tink user token (%s): %w", scope, err)
	}
	c.cacheToken(key, tok)
	return tok.AccessToken, nil
}

func (c *Client) do(ctx context.Context, method, path, token, contentType string, body io.Reader, out any) error {
	return c.doQuery(ctx, method, path, nil, token, contentType, body, out)
}

func (c *Client) doQuery(ctx context.Context, method, path string, query url.Values, token, contentType string, body io.Reader, out any) error {
	target := c.cfg.BaseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("build tink request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("tink %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return fmt.Errorf("read tink response: %w", err)
	}

	slog.DebugContext(ctx, "Tink request completed",
		"component", "tink",
		"method", method,
		"path", path,
		"status_code", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds())

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{Method: method, Path: path, Status: resp.StatusCode, Body: strings.TrimSpace(string(payload))}
	}
	if out == nil || len(bytes.TrimSpace(payload)) == 0 {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("decode tink %s response: %w", path, err)
	}
	return nil
}

func jsonBody(v any) (io.Reader, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(body), nil
}
