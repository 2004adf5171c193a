package merge

import (
	"context"
	"fmt"

	"github.com/example42/saigen/internal/logutil"
	"github.com/example42/saigen/internal/orchestrator"
	"github.com/example42/saigen/internal/saidata"
)

// Generator is the subset of orchestrator.Orchestrator the updater depends
// on (consumer-defined so tests can inject a stub).
type Generator interface {
	Generate(ctx context.Context, req orchestrator.Request) *saidata.GenerationResult
}

// Updater refreshes an existing saidata document: it asks the generation
// pipeline for a fresh document in update mode (the existing document rides
// along in the prompt context) and merges the two under the chosen
// strategy.
type Updater struct {
	gen    Generator
	engine *Engine
	logger logutil.LoggerInterface
}

// NewUpdater constructs an Updater merging through engine. logger defaults
// to a plain prefixed logger when nil.
func NewUpdater(gen Generator, engine *Engine, logger logutil.LoggerInterface) *Updater {
	if logger == nil {
		logger = logutil.NewLogger(logutil.InfoLevel, nil, "[update] ")
	}
	if engine == nil {
		engine = New(nil)
	}
	return &Updater{gen: gen, engine: engine, logger: logger}
}

// Update regenerates existing's software and merges the result. The existing
// document is never mutated; on a failed generation the error carries the
// first validation error and no merge happens.
func (u *Updater) Update(ctx context.Context, existing *saidata.Document, targetProviders []string, preferredProvider string, strategy Strategy, interactive bool) (*saidata.Document, Stats, error) {
	if existing == nil || existing.Metadata.Name == "" {
		return nil, Stats{}, fmt.Errorf("existing document has no metadata.name to regenerate")
	}

	result := u.gen.Generate(ctx, orchestrator.Request{
		SoftwareName:      existing.Metadata.Name,
		TargetProviders:   targetProviders,
		PreferredProvider: preferredProvider,
		ExistingSaidata:   existing,
		Mode:              orchestrator.ModeUpdate,
	})
	if result == nil || !result.Success {
		msg := "generation failed"
		if result != nil && len(result.ValidationErrors) > 0 {
			msg = result.ValidationErrors[0].Message
		}
		return nil, Stats{}, fmt.Errorf("updating %q: %s", existing.Metadata.Name, msg)
	}

	merged, stats := u.engine.Merge(existing, result.Saidata, strategy, interactive)
	u.logger.InfoContext(ctx, "updated %q with strategy %s: %d added, %d updated, %d conflicts resolved",
		existing.Metadata.Name, strategy, stats.FieldsAdded, stats.FieldsUpdated, stats.ConflictsResolved)
	return merged, stats, nil
}
