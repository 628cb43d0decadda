package config

import (
	"sort"

	"github.com/jpalmerr/dashfeed"
)

// BuildOptions converts parsed configuration into SDK options.
//
// The endpoint itself is passed separately to [dashfeed.New] or
// [dashfeed.NewFetcher]; cfg.Endpoint holds it.
func BuildOptions(cfg *Config) []dashfeed.Option {
	opts := []dashfeed.Option{
		dashfeed.WithRefreshInterval(cfg.RefreshInterval.Duration()),
		dashfeed.WithPort(cfg.Port),
		dashfeed.WithProxyURL(cfg.ProxyURL),
		dashfeed.WithTransports(cfg.Transports...),
		dashfeed.WithFilters(dashfeed.Filters{
			StudentID: cfg.Filters.StudentID,
			Date:      cfg.Filters.Date,
		}),
	}

	if cfg.Timeout != 0 {
		opts = append(opts, dashfeed.WithTimeout(cfg.Timeout.Duration()))
	}

	if len(cfg.Headers) > 0 {
		opts = append(opts, dashfeed.WithHeaders(mapToKeyValuePairs(cfg.Headers)...))
	}

	return opts
}

// mapToKeyValuePairs converts a map to a sorted slice of key-value pairs.
func mapToKeyValuePairs(m map[string]string) []string {
	// sort keys for deterministic ordering
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(m)*2)
	for _, k := range keys {
		pairs = append(pairs, k, m[k])
	}
	return pairs
}
