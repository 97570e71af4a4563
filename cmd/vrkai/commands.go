package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/vecfs/internal/ignore"
	"github.com/fyrsmithlabs/vecfs/internal/ingest"
	"github.com/fyrsmithlabs/vecfs/internal/resource"
	"github.com/fyrsmithlabs/vecfs/internal/search"
	"github.com/fyrsmithlabs/vecfs/internal/vrkai"
)

const (
	extVRKai  = ".vrkai"
	extVRPack = ".vrpack"
)

var (
	outPath     string
	description string
	packName    string
	packFolder  string
	query       string
	topK        int
	numVRKai    int
	methodName  string
	entriesOnly bool
)

var generateCmd = &cobra.Command{
	Use:   "generate <file>",
	Short: "Embed a document into a VRKai file",
	Args:  cobra.ExactArgs(1),
	RunE:  runGenerate,
}

var inspectCmd = &cobra.Command{
	Use:   "inspect <file.vrkai|file.vrpack>",
	Short: "Print the header of a VRKai or the entries of a VRPack",
	Args:  cobra.ExactArgs(1),
	RunE:  runInspect,
}

var searchCmd = &cobra.Command{
	Use:   "search <file.vrkai|file.vrpack>",
	Short: "Vector search inside a VRKai or VRPack",
	Args:  cobra.ExactArgs(1),
	RunE:  runSearch,
}

var packCmd = &cobra.Command{
	Use:   "pack <inputs...>",
	Short: "Bundle VRKai files and documents into a VRPack",
	Long: `Bundle inputs into a VRPack. Inputs ending in .vrkai are added as they
are; any other file is embedded first. A directory adds every supported
file below it that .gitignore and .vecfsignore do not exclude, keeping its
folder layout. When -o names an existing pack the inputs are added to it.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runPack,
}

var unpackCmd = &cobra.Command{
	Use:   "unpack <file.vrpack> <dir>",
	Short: "Write every VRPack entry to dir as a .vrkai file",
	Args:  cobra.ExactArgs(2),
	RunE:  runUnpack,
}

func init() {
	generateCmd.Flags().StringVarP(&outPath, "output", "o", "", "output file (default <name>.vrkai)")
	generateCmd.Flags().StringVar(&description, "description", "", "resource description")

	searchCmd.Flags().StringVarP(&query, "query", "q", "", "query text")
	searchCmd.Flags().IntVar(&topK, "k", 10, "number of results")
	searchCmd.Flags().IntVar(&numVRKai, "num-resources", 5, "VRPack entries to search inside")
	searchCmd.Flags().StringVar(&methodName, "method", "exhaustive", "traversal method (exhaustive, efficient)")
	searchCmd.Flags().BoolVar(&entriesOnly, "entries", false, "rank VRPack entries instead of their nodes")
	_ = searchCmd.MarkFlagRequired("query")

	packCmd.Flags().StringVarP(&outPath, "output", "o", "", "VRPack file to write")
	packCmd.Flags().StringVar(&packName, "name", "", "pack name (default output file name)")
	packCmd.Flags().StringVar(&packFolder, "folder", "/", "pack folder to add inputs under")
	_ = packCmd.MarkFlagRequired("output")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	logger := newLogger()
	provider, err := newProvider(logger)
	if err != nil {
		return err
	}
	defer provider.Close()

	f, err := readInput(args[0])
	if err != nil {
		return err
	}
	f.Description = description
	builder, err := newBuilder(provider, logger)
	if err != nil {
		return err
	}
	v, err := builder.BuildVRKai(ctx, f)
	if err != nil {
		return err
	}
	data, err := v.EncodeBytes()
	if err != nil {
		return err
	}
	out := outPath
	if out == "" {
		out = strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0])) + extVRKai
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", out, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %d nodes, %d tokens, merkle %s\n",
		out, v.Resource.Resource.Len(), v.TotalTokenCount, v.Resource.Resource.MerkleRoot())
	return nil
}

// vrkaiSummary is the inspect view of one VRKai.
type vrkaiSummary struct {
	Path           string            `json:"path,omitempty"`
	Name           string            `json:"name"`
	ID             string            `json:"id"`
	Version        vrkai.Version     `json:"version"`
	EmbeddingModel string            `json:"embedding_model"`
	MerkleRoot     string            `json:"merkle_root"`
	Nodes          int               `json:"nodes"`
	Tokens         int               `json:"tokens"`
	SourceFiles    int               `json:"source_files"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

type packSummary struct {
	Name            string            `json:"name"`
	Version         vrkai.Version     `json:"version"`
	VRKaiCount      int               `json:"vrkai_count"`
	FolderCount     int               `json:"folder_count"`
	EmbeddingModels map[string]int    `json:"embedding_models"`
	MerkleRoot      string            `json:"merkle_root"`
	Metadata        map[string]string `json:"metadata,omitempty"`
	Entries         []vrkaiSummary    `json:"entries"`
}

func summarize(v *vrkai.VRKai, p resource.Path) vrkaiSummary {
	res := v.Resource.Resource
	s := vrkaiSummary{
		Name:           res.Name(),
		ID:             res.ResourceID(),
		Version:        v.Version,
		EmbeddingModel: res.EmbeddingModelUsed(),
		MerkleRoot:     res.MerkleRoot(),
		Nodes:          res.Len(),
		Tokens:         v.TotalTokenCount,
		Metadata:       v.Metadata,
	}
	if !p.IsRoot() {
		s.Path = p.String()
	}
	if v.SourceFileMap != nil {
		s.SourceFiles = v.SourceFileMap.Len()
	}
	return s
}

func runInspect(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	if !isPack(args[0]) {
		v, err := vrkai.DecodeBytes(data)
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), summarize(v, resource.Root()))
	}

	p, err := vrkai.DecodePackBytes(data)
	if err != nil {
		return err
	}
	entries, err := p.UnpackAll(cmd.Context())
	if err != nil {
		return err
	}
	root, err := p.MerkleRoot()
	if err != nil {
		return err
	}
	out := packSummary{
		Name:            p.Name,
		Version:         p.Version,
		VRKaiCount:      p.VRKaiCount,
		FolderCount:     p.FolderCount,
		EmbeddingModels: p.EmbeddingModelsUsed,
		MerkleRoot:      root,
		Metadata:        p.Metadata,
		Entries:         make([]vrkaiSummary, len(entries)),
	}
	for i, e := range entries {
		out.Entries[i] = summarize(e.VRKai, e.Path)
	}
	return writeJSON(cmd.OutOrStdout(), out)
}

// hit is one printed search result.
type hit struct {
	Path     string  `json:"path"`
	Score    float32 `json:"score"`
	Resource string  `json:"resource,omitempty"`
	Text     string  `json:"text,omitempty"`
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	method, ok := search.ParseMethod(methodName)
	if !ok {
		return fmt.Errorf("unknown method %q", methodName)
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	logger := newLogger()
	provider, err := newProvider(logger)
	if err != nil {
		return err
	}
	defer provider.Close()

	q, err := provider.EmbedQuery(ctx, query)
	if err != nil {
		return err
	}

	var hits []hit
	if isPack(args[0]) {
		hits, err = searchPack(ctx, data, q, method)
	} else {
		hits, err = searchVRKai(ctx, data, q, provider.Model(), method)
	}
	if err != nil {
		return err
	}
	return writeJSON(cmd.OutOrStdout(), hits)
}

func searchVRKai(ctx context.Context, data []byte, q []float32, model string, method search.Method) ([]hit, error) {
	v, err := vrkai.DecodeBytes(data)
	if err != nil {
		return nil, err
	}
	res := v.Resource.Resource
	if used := res.EmbeddingModelUsed(); used != "" && used != model {
		return nil, fmt.Errorf("resource was embedded with %q, query with %q", used, model)
	}
	nodes, err := search.Search(ctx, res, q, topK, method)
	if err != nil {
		return nil, err
	}
	return toHits(nodes), nil
}

func searchPack(ctx context.Context, data []byte, q []float32, method search.Method) ([]hit, error) {
	p, err := vrkai.DecodePackBytes(data)
	if err != nil {
		return nil, err
	}
	if entriesOnly {
		scored, err := p.SearchVRKai(ctx, q, topK)
		if err != nil {
			return nil, err
		}
		out := make([]hit, len(scored))
		for i, s := range scored {
			out[i] = hit{Path: s.Path.String(), Score: s.Score, Resource: s.VRKai.Name()}
		}
		return out, nil
	}
	nodes, err := p.VectorSearch(ctx, q, numVRKai, topK, method)
	if err != nil {
		return nil, err
	}
	return toHits(nodes), nil
}

func toHits(nodes []search.RetrievedNode) []hit {
	out := make([]hit, len(nodes))
	for i, n := range nodes {
		out[i] = hit{Path: n.Path.String(), Score: n.Score, Resource: n.Header.Name}
		if text, ok := n.Node.Text(); ok {
			out[i].Text = text
		}
	}
	return out
}

func runPack(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	dest, err := resource.ParsePath(packFolder)
	if err != nil {
		return err
	}
	p, err := openPack(outPath)
	if err != nil {
		return err
	}
	if err := p.MkdirAll(dest); err != nil {
		return err
	}

	inputs, err := collectInputs(args, dest)
	if err != nil {
		return err
	}

	logger := newLogger()
	var builder *ingest.Builder
	for _, in := range inputs {
		var v *vrkai.VRKai
		if filepath.Ext(in.file) == extVRKai {
			data, err := os.ReadFile(in.file)
			if err != nil {
				return err
			}
			if v, err = vrkai.DecodeBytes(data); err != nil {
				return fmt.Errorf("%s: %w", in.file, err)
			}
		} else {
			if builder == nil {
				provider, err := newProvider(logger)
				if err != nil {
					return err
				}
				defer provider.Close()
				if builder, err = newBuilder(provider, logger); err != nil {
					return err
				}
			}
			f, err := readInput(in.file)
			if err != nil {
				return err
			}
			if v, err = builder.BuildVRKai(ctx, f); err != nil {
				return fmt.Errorf("%s: %w", in.file, err)
			}
		}
		if err := p.MkdirAll(in.folder); err != nil {
			return err
		}
		at, err := p.InsertVRKai(v, in.folder)
		if err != nil {
			return fmt.Errorf("%s: %w", in.file, err)
		}
		logger.Debug("added to pack", zap.String("input", in.file), zap.Stringer("path", at))
	}

	data, err := p.EncodeBytes()
	if err != nil {
		return err
	}
	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", outPath, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %d vrkai, %d folders\n", outPath, p.VRKaiCount, p.FolderCount)
	return nil
}

// packInput is one file and the pack folder it goes into.
type packInput struct {
	file   string
	folder resource.Path
}

// collectInputs expands directories into the files below them that are not
// ignored and can be ingested, mirroring their folders under dest.
func collectInputs(args []string, dest resource.Path) ([]packInput, error) {
	var out []packInput
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			out = append(out, packInput{file: arg, folder: dest})
			continue
		}
		m, err := ignore.Load(arg)
		if err != nil {
			return nil, err
		}
		base := dest.Push(resource.CleanSegment(filepath.Base(filepath.Clean(arg))))
		err = m.Walk(func(path, rel string) error {
			if filepath.Ext(path) != extVRKai && !ingest.Supported(path) {
				return nil
			}
			folder := base
			if dir := filepath.Dir(rel); dir != "." {
				for _, seg := range strings.Split(filepath.ToSlash(dir), "/") {
					folder = folder.Push(resource.CleanSegment(seg))
				}
			}
			out = append(out, packInput{file: path, folder: folder})
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// openPack loads the pack at path, or starts a new one when it does not
// exist yet.
func openPack(path string) (*vrkai.Pack, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		name := packName
		if name == "" {
			name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		}
		return vrkai.NewPack(name), nil
	}
	if err != nil {
		return nil, err
	}
	return vrkai.DecodePackBytes(data)
}

func runUnpack(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	p, err := vrkai.DecodePackBytes(data)
	if err != nil {
		return err
	}
	entries, err := p.UnpackAll(cmd.Context())
	if err != nil {
		return err
	}
	dir := args[1]
	for _, e := range entries {
		target, err := entryFile(dir, e.Path)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		enc, err := e.VRKai.EncodeBytes()
		if err != nil {
			return err
		}
		if err := os.WriteFile(target, enc, 0o644); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), target)
	}
	return nil
}

// entryFile maps a pack path to a file below dir.
func entryFile(dir string, p resource.Path) (string, error) {
	target := filepath.Join(append([]string{dir}, p.Segments()...)...) + extVRKai
	rel, err := filepath.Rel(dir, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("entry %s escapes %s", p, dir)
	}
	return target, nil
}

func readInput(path string) (ingest.File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ingest.File{}, err
	}
	return ingest.File{Name: filepath.Base(path), Data: data}, nil
}

func isPack(path string) bool {
	return filepath.Ext(path) == extVRPack
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
