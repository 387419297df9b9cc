package tink

import (
	"context"
	"net/http"
	"net/url"
)

// BankConnectionURL builds the Tink Link URL a user opens to connect a bank.
// state is echoed back to the redirect URI.
func (c *Client) BankConnectionURL(ctx context.Context, username, state string) (string, error) {
	code, err := c.DelegatedAuthorizationCode(ctx, username, ScopeBankConnection, username)
	if err != nil {
		return "", err
	}

	query := url.Values{
		"client_id":          {c.cfg.ClientID},
		"redirect_uri":       {c.cfg.RedirectURI},
		"authorization_code": {code},
		"market":             {c.cfg.Market},
		"locale":             {c.cfg.Locale},
	}
	if state != "" {
		query.Set("state", state)
	}
	return c.cfg.LinkURL + connectAccountsPath + "?" + query.Encode(), nil
}

type webhookRequest struct {
	Description   string   `json:"description"`
	Disabled      bool     `json:"disabled"`
	EnabledEvents []string `json:"enabledEvents"`
	URL           string   `json:"url"`
}

// WebhookEndpoint is Tink's answer to a webhook registration
type WebhookEndpoint struct {
	ID            string   `json:"id"`
	Description   string   `json:"description"`
	URL           string   `json:"url"`
	Secret        string   `json:"secret"`
	EnabledEvents []string `json:"enabledEvents"`
	Disabled      bool     `json:"disabled"`
}

// RegisterTransactionWebhook subscribes webhookURL to transaction modifications
func (c *Client) RegisterTransactionWebhook(ctx context.Context, webhookURL string) (WebhookEndpoint, error) {
	token, err := c.ClientToken(ctx, ScopeWebhookEndpoints)
	if err != nil {
		return WebhookEndpoint{}, err
	}
	body, err := jsonBody(webhookRequest{
		Description:   "webhook",
		Disabled:      false,
		EnabledEvents: []string{EventTransactionsModified},
		URL:           webhookURL,
	})
	if err != nil {
		return WebhookEndpoint{}, err
	}

	var endpoint WebhookEndpoint
	if err := c.do(ctx, http.MethodPost, webhookEndpointsPath, token, "application/json", body, &endpoint); err != nil {
		return WebhookEndpoint{}, err
	}
	return endpoint, nil
}
