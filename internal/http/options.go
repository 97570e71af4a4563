package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"

	"github.com/labstack/echo/v4"

	"github.com/fyrsmithlabs/vecfs/internal/resource"
	"github.com/fyrsmithlabs/vecfs/internal/search"
)

// options converts the request modifiers into search options.
func (o SearchOptions) options() ([]search.Option, error) {
	var opts []search.Option
	if o.MinScore != nil {
		opts = append(opts, search.WithMinimumScore(*o.MinScore))
	}
	if o.ToleranceRange != nil {
		opts = append(opts, search.WithToleranceRange(*o.ToleranceRange))
	}
	if o.UntilDepth != nil {
		if *o.UntilDepth < 0 {
			return nil, badOption("until_depth must not be negative")
		}
		opts = append(opts, search.WithUntilDepth(*o.UntilDepth))
	}
	switch t := resource.BaseType(o.LimitToType); t {
	case "":
	case resource.BaseTypeDocument, resource.BaseTypeMap:
		opts = append(opts, search.WithLimitToType(t))
	default:
		return nil, badOption(fmt.Sprintf("unknown limit_to_type %q", o.LimitToType))
	}
	if o.Hierarchical {
		opts = append(opts, search.WithHierarchicalAverageScoring())
	}
	if len(o.Tags) > 0 {
		opts = append(opts, search.WithSyntacticPrefilter(o.Tags...))
	}
	switch {
	case len(o.MetadataAny) > 0 && len(o.MetadataAll) > 0:
		return nil, badOption("set metadata_any or metadata_all, not both")
	case len(o.MetadataAny) > 0:
		opts = append(opts, search.WithMetadataAny(metadataPairs(o.MetadataAny)...))
	case len(o.MetadataAll) > 0:
		opts = append(opts, search.WithMetadataAll(metadataPairs(o.MetadataAll)...))
	}
	if o.StartingPath != "" {
		p, err := resource.ParsePath(o.StartingPath)
		if err != nil {
			return nil, err
		}
		opts = append(opts, search.WithStartingPath(p))
	}
	if px := o.Proximity; px != nil {
		if px.Window < 1 {
			return nil, badOption("proximity window must be positive")
		}
		opts = append(opts, search.WithProximityResults(px.Window, px.TopN))
	}
	return opts, nil
}

func metadataPairs(m map[string]*string) []resource.MetadataPair {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]resource.MetadataPair, len(keys))
	for i, k := range keys {
		if v := m[k]; v != nil {
			pairs[i] = resource.KeyEquals(k, *v)
		} else {
			pairs[i] = resource.HasKey(k)
		}
	}
	return pairs
}

// formOptions reads the optional "options" field of a multipart search.
func formOptions(c echo.Context) ([]search.Option, error) {
	raw := c.FormValue("options")
	if raw == "" {
		return nil, nil
	}
	var o SearchOptions
	if err := json.Unmarshal([]byte(raw), &o); err != nil {
		return nil, badOption("options must be a JSON object")
	}
	return o.options()
}

func badOption(msg string) error {
	return echo.NewHTTPError(http.StatusBadRequest, msg)
}
