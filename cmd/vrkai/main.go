// Package main implements vrkai, an offline tool for VRKai and VRPack
// files: generate, inspect, search, pack and unpack without a server.
package main

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/vecfs/internal/embeddings"
	"github.com/fyrsmithlabs/vecfs/internal/ingest"
	"github.com/fyrsmithlabs/vecfs/internal/secrets"
)

var version = "dev"

// embedding flags shared by every command that embeds text
var (
	providerName string
	modelName    string
	baseURL      string
	dimension    int
	noScrub      bool
	verbose      bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "vrkai",
	Short: "Work with VRKai and VRPack files offline",
	Long: `vrkai builds, inspects and searches VRKai (one embedded resource) and
VRPack (a folder tree of VRKai) files locally.

Examples:
  # Embed a document with a local TEI server
  vrkai generate notes.md -o notes.vrkai

  # Bundle documents into a pack and search it
  vrkai pack -o docs.vrpack --name docs notes.vrkai guide.pdf
  vrkai search docs.vrpack -q "how do I rotate keys"`,
	Version:      version,
	SilenceUsage: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&providerName, "provider", embeddings.ProviderTEI, "embedding provider (tei, fastembed, hash)")
	pf.StringVar(&modelName, "model", "BAAI/bge-small-en-v1.5", "embedding model")
	pf.StringVar(&baseURL, "base-url", "http://localhost:8080", "TEI server URL")
	pf.IntVar(&dimension, "dimension", 0, "embedding dimension override")
	pf.BoolVar(&noScrub, "no-scrub", false, "keep secrets found in documents")
	pf.BoolVarP(&verbose, "verbose", "v", false, "log progress to stderr")

	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(packCmd)
	rootCmd.AddCommand(unpackCmd)
}

func newLogger() *zap.Logger {
	if !verbose {
		return zap.NewNop()
	}
	logger, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

func newProvider(logger *zap.Logger) (embeddings.Provider, error) {
	return embeddings.NewProvider(embeddings.ProviderConfig{
		Provider:  providerName,
		Model:     modelName,
		BaseURL:   baseURL,
		APIKey:    os.Getenv("VECFS_EMBEDDINGS_API_KEY"),
		Dimension: dimension,
	}, logger)
}

func newBuilder(provider embeddings.Provider, logger *zap.Logger) (*ingest.Builder, error) {
	var opts []ingest.Option
	if !noScrub {
		s, err := secrets.New(nil, logger)
		if err != nil {
			return nil, err
		}
		opts = append(opts, ingest.WithScrubber(s))
	}
	return ingest.NewBuilder(provider, nil, ingest.Config{}, logger, opts...), nil
}
