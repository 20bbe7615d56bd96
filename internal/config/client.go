package config

import (
	"errors"

	vaultsandbox "github.com/vaultsandbox/client-go"
)

var ErrNoAPIKey = errors.New("API key not configured. Set VSB_API_KEY or run 'vsb config set api-key <key>'")

// NewClient builds an SDK client from the resolved configuration.
func NewClient() (*vaultsandbox.Client, error) {
	apiKey := APIKey()
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}

	opts := []vaultsandbox.Option{
		vaultsandbox.WithBaseURL(BaseURL()),
	}
	if Strategy() == "polling" {
		opts = append(opts, vaultsandbox.WithDeliveryStrategy(vaultsandbox.StrategyPolling))
	}

	return vaultsandbox.New(apiKey, opts...)
}
