package transport

import (
	"context"
	"net/url"
)

// Direct is the primary strategy: a plain GET asking for JSON.
type Direct struct {
	client   *Client
	settings Settings
}

// NewDirect creates a [Direct] strategy.
func NewDirect(client *Client, settings Settings) *Direct {
	return &Direct{client: client, settings: settings}
}

// Name returns [NameDirect].
func (d *Direct) Name() string { return NameDirect }

// Fetch issues the GET and returns the body of a 2xx response.
func (d *Direct) Fetch(ctx context.Context, target *url.URL) ([]byte, error) {
	raw := target.String()
	resp := d.client.Get(ctx, raw, d.settings.headersWith("application/json"), d.settings.Timeout)
	d.settings.logResponse(NameDirect, resp)
	if err := checkResponse(NameDirect, raw, resp); err != nil {
		return nil, err
	}
	return resp.Body, nil
}
