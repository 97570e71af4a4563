package embeddings

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Config holds configuration for the TEI embedding service.
type Config struct {
	// BaseURL is the base URL of the TEI server
	BaseURL string

	// Model is reported on generated resources; TEI serves one model per server
	Model string

	// APIKey is sent as a bearer token when set
	APIKey string

	// Timeout bounds a single embed request
	Timeout time.Duration
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.Model == "" {
		c.Model = "BAAI/bge-small-en-v1.5"
	}
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}
}

// Validate validates the configuration.
func (c Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("%w: base URL required", ErrInvalidConfig)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("%w: timeout must not be negative", ErrInvalidConfig)
	}
	return nil
}

// Service generates embeddings through a TEI server's /embed endpoint.
type Service struct {
	config  Config
	client  *http.Client
	metrics *Metrics
}

// NewService creates a TEI client for config.
func NewService(config Config, logger *zap.Logger) (*Service, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return &Service{
		config:  config,
		client:  &http.Client{Timeout: config.Timeout},
		metrics: NewMetrics(logger),
	}, nil
}

// embedRequest is the body of POST /embed. Inputs is a string or a list.
type embedRequest struct {
	Inputs   any  `json:"inputs"`
	Truncate bool `json:"truncate"`
}

// EmbedDocuments embeds texts in one request, one vector per text.
func (s *Service) EmbedDocuments(ctx context.Context, texts []string) (vectors [][]float32, err error) {
	defer s.observe(ctx, "embed_documents", len(texts), time.Now(), &err)

	if len(texts) == 0 {
		return nil, fmt.Errorf("%w: no texts", ErrEmptyInput)
	}
	if vectors, err = s.post(ctx, texts); err != nil {
		return nil, err
	}
	if got, want := len(vectors), len(texts); got != want {
		return nil, fmt.Errorf("%w: server returned %d vectors for %d texts", ErrEmbeddingFailed, got, want)
	}
	return vectors, nil
}

// EmbedQuery embeds a single search query.
func (s *Service) EmbedQuery(ctx context.Context, text string) (vector []float32, err error) {
	defer s.observe(ctx, "embed_query", 1, time.Now(), &err)

	if text == "" {
		return nil, fmt.Errorf("%w: empty query", ErrEmptyInput)
	}
	vectors, err := s.post(ctx, text)
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("%w: server returned no vectors", ErrEmbeddingFailed)
	}
	return vectors[0], nil
}

func (s *Service) observe(ctx context.Context, op string, n int, start time.Time, err *error) {
	s.metrics.RecordGeneration(ctx, s.config.Model, op, time.Since(start), n, *err)
}

// post sends inputs to the server and decodes the vector list.
func (s *Service) post(ctx context.Context, inputs any) ([][]float32, error) {
	payload, err := json.Marshal(embedRequest{Inputs: inputs, Truncate: true})
	if err != nil {
		return nil, fmt.Errorf("encoding embed request: %w", err)
	}
	endpoint := strings.TrimSuffix(s.config.BaseURL, "/") + "/embed"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("building embed request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if key := s.config.APIKey; key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return nil, fmt.Errorf("%w: %s: %s", ErrEmbeddingFailed, resp.Status, bytes.TrimSpace(snippet))
	}

	var vectors [][]float32
	if err := json.NewDecoder(resp.Body).Decode(&vectors); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", ErrEmbeddingFailed, err)
	}
	return vectors, nil
}

// Model returns the configured model name.
func (s *Service) Model() string { return s.config.Model }
