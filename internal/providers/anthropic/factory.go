package anthropic

import (
	"net/http"
	"time"

	"draftdesk/internal/infra"
	"draftdesk/internal/infra/credentials"
)

// Factory hands out message clients backed by the credential pool. Each
// Acquire picks the next usable key; MarkError quarantines the key a failing
// client was bound to so subsequent acquisitions rotate past it.
type Factory struct {
	pool       *credentials.Pool
	baseURL    string
	model      string
	httpClient *http.Client
	logger     *infra.Logger
}

// FactoryOptions configures a client factory.
type FactoryOptions struct {
	Pool           *credentials.Pool
	BaseURL        string
	Model          string
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration
}

// NewFactory builds a factory over the given pool.
func NewFactory(opts FactoryOptions) (*Factory, error) {
	if opts.Pool == nil {
		return nil, credentials.ErrNoKeys
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 120 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Factory{
		pool:       opts.Pool,
		baseURL:    opts.BaseURL,
		model:      opts.Model,
		httpClient: httpClient,
		logger:     opts.Logger,
	}, nil
}

// Model returns the configured model identifier.
func (f *Factory) Model() string {
	if f.model != "" {
		return f.model
	}
	return "claude-sonnet-4-5-20250929"
}

// Acquire returns a client bound to the next usable credential.
func (f *Factory) Acquire() (*Client, error) {
	return NewClient(Options{
		APIKey:     f.pool.Next(),
		BaseURL:    f.baseURL,
		Model:      f.model,
		HTTPClient: f.httpClient,
		Logger:     f.logger,
	})
}

// MarkError quarantines the credential the client is bound to.
func (f *Factory) MarkError(c *Client) {
	if c == nil {
		return
	}
	f.pool.MarkError(c.APIKey())
}
