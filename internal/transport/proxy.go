package transport

import (
	"context"
	"net/url"
)

// DefaultProxyPrefix is a public CORS relay that returns the upstream body
// untouched. The escaped target URL is appended to it.
const DefaultProxyPrefix = "https://api.allorigins.win/raw?url="

// Proxy routes the request through a relay.
type Proxy struct {
	client   *Client
	prefix   string
	settings Settings
}

// NewProxy creates a [Proxy] strategy. An empty prefix uses [DefaultProxyPrefix].
func NewProxy(client *Client, prefix string, settings Settings) *Proxy {
	if prefix == "" {
		prefix = DefaultProxyPrefix
	}
	return &Proxy{client: client, prefix: prefix, settings: settings}
}

// Name returns [NameProxy].
func (p *Proxy) Name() string { return NameProxy }

// RelayURL returns the relay URL for target.
func (p *Proxy) RelayURL(target *url.URL) string {
	return p.prefix + url.QueryEscape(target.String())
}

// Fetch issues the relayed GET and returns the body of a 2xx response.
func (p *Proxy) Fetch(ctx context.Context, target *url.URL) ([]byte, error) {
	raw := p.RelayURL(target)
	resp := p.client.Get(ctx, raw, p.settings.headersWith("application/json"), p.settings.Timeout)
	p.settings.logResponse(NameProxy, resp)
	if err := checkResponse(NameProxy, raw, resp); err != nil {
		return nil, err
	}
	return resp.Body, nil
}
