// Package registry queries the national medicines registry (CIMA) by
// national code.
package registry

import (
	"context"
	"fmt"
	"strings"
	"time"

	"healthguard/common/config"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// spanishEANPrefix marks EAN-13 codes that embed a 6-digit national code.
const spanishEANPrefix = "847000"

// Entry is one registry search hit.
type Entry struct {
	RegistrationNumber string `json:"nregistro"`
	Name               string `json:"nombre"`
	Holder             string `json:"labtitular"`
}

type searchResult struct {
	Results []Entry `json:"resultados"`
}

type Client struct {
	httpClient *resty.Client
	logger     *zap.Logger
}

func NewClient(cfg config.HTTPClientConfig, logger *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(timeout).
		SetRetryCount(cfg.RetryCount).
		SetHeader("Accept", "application/json")

	return &Client{
		httpClient: client,
		logger:     logger,
	}
}

// NationalCode extracts the 6-digit national code from a Spanish EAN-13;
// other codes are returned unchanged.
func NationalCode(code string) string {
	if strings.HasPrefix(code, spanishEANPrefix) && len(code) == 13 {
		return code[6:12]
	}
	return code
}

// Lookup returns the first registry entry for code, or nil when the
// registry has none.
func (c *Client) Lookup(ctx context.Context, code string) (*Entry, error) {
	cn := NationalCode(code)

	var result searchResult
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetQueryParam("cn", cn).
		SetResult(&result).
		Get("/medicamentos")
	if err != nil {
		return nil, fmt.Errorf("registry request failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("registry returned %d", resp.StatusCode())
	}

	if len(result.Results) == 0 {
		c.logger.Debug("Registry has no entry", zap.String("code", cn))
		return nil, nil
	}
	return &result.Results[0], nil
}
