package embeddings

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Provider names accepted by NewProvider.
const (
	ProviderTEI       = "tei"
	ProviderFastEmbed = "fastembed"
	ProviderHash      = "hash"
)

// ProviderConfig selects and configures a Provider.
type ProviderConfig struct {
	// Provider is ProviderTEI, ProviderFastEmbed or ProviderHash. Empty
	// means hash.
	Provider string
	Model    string
	// BaseURL and APIKey apply to TEI.
	BaseURL string
	APIKey  string
	// CacheDir holds downloaded FastEmbed models.
	CacheDir string
	// Dimension overrides the size guessed from Model.
	Dimension int
}

// dimensionFor guesses a model's vector size from known FastEmbed models,
// then from size words in the name. Unknown models get 384.
func dimensionFor(model string) int {
	if dim, ok := fastEmbedModelDimension(model); ok {
		return dim
	}
	name := strings.ToLower(model)
	for _, hint := range []struct {
		word string
		dim  int
	}{{"large", 1024}, {"base", 768}} {
		if strings.Contains(name, hint.word) {
			return hint.dim
		}
	}
	return 384
}

// NewProvider builds the provider named by cfg.Provider.
func NewProvider(cfg ProviderConfig, logger *zap.Logger) (Provider, error) {
	switch cfg.Provider {
	case ProviderTEI:
		svc, err := NewService(Config{BaseURL: cfg.BaseURL, Model: cfg.Model, APIKey: cfg.APIKey}, logger)
		if err != nil {
			return nil, err
		}
		dim := cfg.Dimension
		if dim == 0 {
			dim = dimensionFor(svc.Model())
		}
		return &remoteProvider{Service: svc, dim: dim}, nil
	case ProviderFastEmbed:
		fe, err := NewFastEmbedProvider(FastEmbedConfig{Model: cfg.Model, CacheDir: cfg.CacheDir})
		if err != nil {
			return nil, err
		}
		return fe, nil
	case ProviderHash, "":
		dim := cfg.Dimension
		if dim == 0 {
			dim = 384
		}
		h, err := NewHashEmbedder(dim)
		if err != nil {
			return nil, err
		}
		return h, nil
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", ErrInvalidConfig, cfg.Provider)
	}
}

// remoteProvider adds the fixed dimension and a no-op Close to Service.
type remoteProvider struct {
	*Service
	dim int
}

func (r *remoteProvider) Dimension() int { return r.dim }
func (r *remoteProvider) Close() error   { return nil }
