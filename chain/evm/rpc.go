package evm

import (
	"errors"
	"fmt"
	"net/url"
)

// RPC is a named RPC endpoint.
type RPC struct {
	Name    string `mapstructure:"name" yaml:"name"`
	HTTPURL string `mapstructure:"http_url" yaml:"http_url"`
}

// RPCConfig lists the RPCs of a chain in order of preference.
type RPCConfig struct {
	ChainSelector uint64
	RPCs          []RPC
}

// ToEndpoint returns the URL to dial.
func (r RPC) ToEndpoint() (string, error) {
	if r.HTTPURL == "" {
		return "", errors.New("no URL configured for RPC " + r.Name)
	}

	u, err := url.Parse(r.HTTPURL)
	if err != nil {
		return "", fmt.Errorf("invalid URL for RPC %s: %w", r.Name, err)
	}
	switch u.Scheme {
	case "http", "https", "ws", "wss":
		return r.HTTPURL, nil
	default:
		return "", fmt.Errorf("unsupported URL scheme %q for RPC %s", u.Scheme, r.Name)
	}
}
