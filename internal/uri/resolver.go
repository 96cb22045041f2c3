package uri

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var (
	// ErrUnsupportedScheme is returned for sources that are neither HTTP(S) nor a known content-addressed scheme
	ErrUnsupportedScheme = errors.New("unsupported uri scheme")

	// ErrNoGateway is returned when a content-addressed URI has no gateway configured for its scheme
	ErrNoGateway = errors.New("no gateway configured")
)

// Config holds the gateways used to fetch content-addressed media
type Config struct {
	// IPFSGateways is the list of IPFS gateways to try
	IPFSGateways []string
	// ArweaveGateways is the list of Arweave gateways to try
	ArweaveGateways []string
	// OnChFSGateways is the list of OnChFS gateways to try
	OnChFSGateways []string
}

// Resolver defines the interface for turning a source URI into fetchable URLs
type Resolver interface {
	// Candidates returns the HTTP(S) URLs the URI can be fetched from, in the order they should be tried.
	// A plain HTTP(S) URL resolves to itself. IPFS gateway URLs keep the original first and fall
	// back to the configured gateways.
	Candidates(uri string) ([]string, error)
}

type resolver struct {
	config *Config
}

// NewResolver creates a URI resolver
func NewResolver(config *Config) Resolver {
	if config == nil {
		config = &Config{}
	}
	return &resolver{config: config}
}

func (r *resolver) Candidates(raw string) ([]string, error) {
	raw = strings.TrimSpace(raw)

	if cid, ok := cutScheme(raw, "ipfs://"); ok {
		// ipfs://ipfs/<cid> shows up in older token metadata
		cid = strings.TrimPrefix(cid, "ipfs/")
		return expand("IPFS", r.config.IPFSGateways, "ipfs/"+cid)
	}

	if txID, ok := cutScheme(raw, "ar://"); ok {
		return expand("Arweave", r.config.ArweaveGateways, txID)
	}

	if cid, ok := cutScheme(raw, "onchfs://"); ok {
		return expand("OnChFS", r.config.OnChFSGateways, cid)
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse uri: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}

	// Gateway URLs (e.g. https://example.com/ipfs/Qm...) may point at a slow or dead gateway
	if _, rest, ok := strings.Cut(raw, "/ipfs/"); ok && rest != "" {
		candidates := []string{raw}
		for _, gw := range r.config.IPFSGateways {
			candidate := joinGateway(gw, "ipfs/"+rest)
			if candidate != raw {
				candidates = append(candidates, candidate)
			}
		}
		return candidates, nil
	}

	return []string{raw}, nil
}

func cutScheme(raw string, scheme string) (string, bool) {
	if len(raw) < len(scheme) || !strings.EqualFold(raw[:len(scheme)], scheme) {
		return "", false
	}
	return raw[len(scheme):], true
}

func expand(network string, gateways []string, path string) ([]string, error) {
	if path == "" || path == "ipfs/" {
		return nil, fmt.Errorf("empty %s identifier", network)
	}
	if len(gateways) == 0 {
		return nil, fmt.Errorf("%w for %s", ErrNoGateway, network)
	}

	candidates := make([]string, 0, len(gateways))
	for _, gw := range gateways {
		candidates = append(candidates, joinGateway(gw, path))
	}
	return candidates, nil
}

func joinGateway(gateway string, path string) string {
	return strings.TrimRight(gateway, "/") + "/" + path
}
