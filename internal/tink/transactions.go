package tink

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
)

type transactionsPage struct {
	Transactions  []json.RawMessage `json:"transactions"`
	NextPageToken string            `json:"nextPageToken"`
}

// FetchTransactions returns the raw transaction payloads of up to pageCount
// pages, newest first as Tink orders them. It stops early on the last page.
func (c *Client) FetchTransactions(ctx context.Context, username string, pageCount int) ([]json.RawMessage, error) {
	if pageCount < 1 {
		pageCount = 1
	}
	token, err := c.UserToken(ctx, username, ScopeTransactionsRead)
	if err != nil {
		return nil, err
	}

	var (
		all       []json.RawMessage
		pageToken string
	)
	for page := 0; page < pageCount; page++ {
		query := url.Values{}
		if pageToken != "" {
			query.Set("pageToken", pageToken)
		}

		var resp transactionsPage
		if err := c.doQuery(ctx, http.MethodGet, transactionsPath, query, token, "", nil, &resp); err != nil {
			return nil, err
		}
		all = append(all, resp.Transactions...)

		if resp.NextPageToken == "" {
			break
		}
		pageToken = resp.NextPageToken
	}

	slog.DebugContext(ctx, "Fetched transactions from Tink",
		"component", "tink",
		"username", username,
		"page_count", pageCount,
		"count", len(all))
	return all, nil
}
