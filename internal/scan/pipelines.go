package scan

import (
	"fmt"

	"folio/internal/library"
	"folio/internal/services"
)

// BuilderOptions tunes the stages of built pipelines.
type BuilderOptions struct {
	IncludeHidden   bool
	ExtraExtensions map[library.ContentType][]string
}

// Builder assembles the pipeline graph for a content type.
type Builder struct {
	opts BuilderOptions
}

// NewBuilder returns a Builder.
func NewBuilder(opts BuilderOptions) *Builder {
	return &Builder{opts: opts}
}

// Build returns a validated graph for kind:
//
//	books:      discover -> filter -> {enrich, fingerprint} -> merge
//	comics:     discover -> filter -> enrich
//	audiobooks: discover -> filter -> fingerprint -> enrich
func (b *Builder) Build(kind library.ContentType) (*Graph, error) {
	var (
		stages []Stage
		edges  [][2]string
	)
	base := []Stage{DiscoverStage(b.opts.IncludeHidden), FilterStage(b.opts.ExtraExtensions)}
	switch kind {
	case library.ContentBooks:
		stages = append(base, EnrichStage(), FingerprintStage(), MergeStage())
		edges = [][2]string{
			{StageDiscover, StageFilter},
			{StageFilter, StageEnrich},
			{StageFilter, StageFingerprint},
			{StageEnrich, StageMerge},
			{StageFingerprint, StageMerge},
		}
	case library.ContentComics:
		stages = append(base, EnrichStage())
		edges = [][2]string{
			{StageDiscover, StageFilter},
			{StageFilter, StageEnrich},
		}
	case library.ContentAudiobooks:
		stages = append(base, FingerprintStage(), EnrichStage())
		edges = [][2]string{
			{StageDiscover, StageFilter},
			{StageFilter, StageFingerprint},
			{StageFingerprint, StageEnrich},
		}
	default:
		return nil, services.Wrap(services.ErrValidation, "scan", "build graph",
			fmt.Sprintf("no pipeline for content type %q", kind), nil)
	}
	return Assemble(stages, edges)
}

// Assemble builds and validates a graph from stages and named edges.
func Assemble(stages []Stage, edges [][2]string) (*Graph, error) {
	g := NewGraph()
	for _, stage := range stages {
		if _, err := g.AddNode(stage); err != nil {
			return nil, err
		}
	}
	for _, edge := range edges {
		parent, ok := g.Lookup(edge[0])
		if !ok {
			return nil, fmt.Errorf("%w: unknown stage %s", ErrInvalidGraph, edge[0])
		}
		child, ok := g.Lookup(edge[1])
		if !ok {
			return nil, fmt.Errorf("%w: unknown stage %s", ErrInvalidGraph, edge[1])
		}
		if err := g.Link(parent.ID, child.ID); err != nil {
			return nil, err
		}
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}
