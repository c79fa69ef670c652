package aliases

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/finquery/internal/interfaces"
)

// Snapshot is the index currently being served together with when and
// where it was built.
type Snapshot struct {
	Index   *Index
	BuiltAt time.Time
	Source  string
}

// Holder serves the current alias index. Readers take the pointer without
// locking; Rebuild builds a new index off to the side and swaps it in.
type Holder struct {
	source  interfaces.UniverseSource
	logger  arbor.ILogger
	current atomic.Pointer[Snapshot]

	// rebuildMu serialises rebuilds, never reads
	rebuildMu sync.Mutex
	onSwap    func(BuildReport)
}

// NewHolder creates a holder with no index loaded.
func NewHolder(source interfaces.UniverseSource, logger arbor.ILogger) *Holder {
	return &Holder{source: source, logger: logger}
}

// Current returns the served index, or nil before the first build.
func (h *Holder) Current() *Index {
	if snap := h.current.Load(); snap != nil {
		return snap.Index
	}
	return nil
}

// Snapshot returns the served snapshot, or nil before the first build.
func (h *Holder) Snapshot() *Snapshot {
	return h.current.Load()
}

// Require returns the served index or ErrIndexNotBuilt.
func (h *Holder) Require() (*Index, error) {
	if idx := h.Current(); idx != nil {
		return idx, nil
	}
	return nil, ErrIndexNotBuilt
}

// OnSwap registers fn to run after Rebuild installs a new index.
// It must be set before the first rebuild.
func (h *Holder) OnSwap(fn func(BuildReport)) {
	h.onSwap = fn
}

// Swap installs a prebuilt index.
func (h *Holder) Swap(idx *Index, source string) {
	h.current.Store(&Snapshot{Index: idx, BuiltAt: time.Now(), Source: source})
}

// Rebuild loads the universe from the source, builds a new index and swaps
// it in. On failure the previous index keeps serving.
func (h *Holder) Rebuild(ctx context.Context) (BuildReport, error) {
	h.rebuildMu.Lock()
	defer h.rebuildMu.Unlock()

	if h.source == nil {
		return BuildReport{}, fmt.Errorf("no universe source configured")
	}

	start := time.Now()
	universe, err := h.source.Load(ctx)
	if err != nil {
		h.logger.Error().Err(err).Str("source", h.source.Name()).Msg("Failed to load universe")
		return BuildReport{}, fmt.Errorf("failed to load universe from %s: %w", h.source.Name(), err)
	}
	if err := ctx.Err(); err != nil {
		return BuildReport{}, err
	}

	idx, err := Build(universe)
	if err != nil {
		h.logger.Error().Err(err).Str("source", h.source.Name()).Msg("Alias index build failed, keeping previous index")
		return BuildReport{}, fmt.Errorf("failed to build alias index: %w", err)
	}

	report := idx.Report()
	LogReport(h.logger, report)

	if prev := h.Current(); prev != nil && prev.Version() == idx.Version() {
		h.logger.Debug().Str("version", idx.Version()).Msg("Universe unchanged, keeping current index")
		return report, nil
	}

	h.Swap(idx, h.source.Name())
	h.logger.Info().
		Str("version", report.Version).
		Str("source", h.source.Name()).
		Int("tickers", report.Tickers).
		Int("aliases", report.Aliases).
		Int("overrides", report.Overrides).
		Int("collisions", len(report.Collisions)).
		Dur("duration", time.Since(start)).
		Msg("Alias index built")

	if h.onSwap != nil {
		h.onSwap(report)
	}

	return report, nil
}

// LogReport writes every collision and override conflict at warn level.
func LogReport(logger arbor.ILogger, report BuildReport) {
	for _, c := range report.Collisions {
		logger.Warn().
			Str("alias", c.Alias).
			Str("ticker", c.Rejected).
			Str("claimed_by", c.Ticker).
			Str("kind", string(c.Kind)).
			Msg("Alias claimed by another ticker, keeping first claimant")
	}
	for _, c := range report.OverrideConflicts {
		logger.Warn().
			Str("phrase", c.Phrase).
			Str("winner", c.Winner).
			Int("winner_priority", c.WinnerPriority).
			Str("loser", c.Loser).
			Int("loser_priority", c.LoserPriority).
			Msg("Conflicting manual overrides resolved by priority")
	}
}
