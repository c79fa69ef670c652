package querylog

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/finquery/internal/common"
	"github.com/ternarybob/finquery/internal/interfaces"
	"github.com/ternarybob/finquery/internal/models"
)

// maxKeywordRunes caps not_found keywords so a pasted paragraph does not
// become a counter key.
const maxKeywordRunes = 100

// Recorder writes query log records on a background goroutine so resolution
// never waits on storage.
type Recorder struct {
	storage interfaces.QueryLogStorage
	logger  arbor.ILogger
	channel chan *models.QueryLogRecord
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	dropped atomic.Int64
	closed  atomic.Bool
	once    sync.Once
}

var _ interfaces.QueryRecorder = (*Recorder)(nil)

// NewRecorder creates a recorder with a buffer of bufferSize records.
// Call Start before recording.
func NewRecorder(storage interfaces.QueryLogStorage, bufferSize int, logger arbor.ILogger) *Recorder {
	if bufferSize < 1 {
		bufferSize = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Recorder{
		storage: storage,
		logger:  logger,
		channel: make(chan *models.QueryLogRecord, bufferSize),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start launches the writer goroutine
func (r *Recorder) Start() {
	r.wg.Add(1)
	go r.consume()
}

// Record queues record for writing. It never blocks: when the buffer is full
// or the recorder is closed the record is dropped and counted.
func (r *Recorder) Record(record *models.QueryLogRecord) {
	if record == nil {
		return
	}
	if r.closed.Load() {
		r.dropped.Add(1)
		return
	}
	select {
	case r.channel <- record:
	default:
		if n := r.dropped.Add(1); n == 1 || n%100 == 0 {
			r.logger.Warn().Int("dropped", int(n)).Msg("Query log buffer full, dropping records")
		}
	}
}

// Dropped returns how many records were discarded.
func (r *Recorder) Dropped() int64 {
	return r.dropped.Load()
}

// Close stops accepting records, writes what is already buffered and waits
// for the writer to exit.
func (r *Recorder) Close() error {
	r.once.Do(func() {
		r.closed.Store(true)
		r.cancel()
		r.wg.Wait()
		r.logger.Debug().Int("dropped", int(r.dropped.Load())).Msg("Query log recorder stopped")
	})
	return nil
}

func (r *Recorder) consume() {
	defer r.wg.Done()

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error().
				Str("panic", fmt.Sprintf("%v", rec)).
				Msg("Query log recorder panic recovered")
		}
	}()

	for {
		select {
		case record := <-r.channel:
			r.write(record)
		case <-r.ctx.Done():
			r.drain()
			return
		}
	}
}

// drain flushes records queued before Close.
func (r *Recorder) drain() {
	for {
		select {
		case record := <-r.channel:
			r.write(record)
		default:
			return
		}
	}
}

func (r *Recorder) write(record *models.QueryLogRecord) {
	// The recorder's own context is already cancelled while draining.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := r.storage.SaveRecord(ctx, record); err != nil {
		r.logger.Warn().Err(err).Str("record_id", record.ID).Msg("Failed to save query log record")
		return
	}
	for _, kw := range Keywords(record) {
		if err := r.storage.IncrementKeyword(ctx, kw.Keyword, kw.Outcome, record.CreatedAt); err != nil {
			r.logger.Warn().Err(err).Str("keyword", kw.Keyword).Msg("Failed to update keyword counter")
		}
	}
}

// Keywords derives the counters a record contributes to. Exact and override
// matches count their ticker as resolved, fuzzy matches count the misspelt
// token, and a query with no entity counts its normalized text as not_found.
func Keywords(record *models.QueryLogRecord) []models.KeywordLookup {
	var out []models.KeywordLookup
	seen := make(map[string]bool)
	add := func(keyword, outcome string) {
		key := outcome + "|" + keyword
		if keyword == "" || seen[key] {
			return
		}
		seen[key] = true
		out = append(out, models.KeywordLookup{Key: key, Keyword: keyword, Outcome: outcome})
	}

	if len(record.Tickers) == 0 {
		query := common.Normalize(record.Query)
		if utf8.RuneCountInString(query) > maxKeywordRunes {
			query = string([]rune(query)[:maxKeywordRunes])
		}
		add(query, models.OutcomeNotFound)
		return out
	}

	for i, ticker := range record.Tickers {
		if i < len(record.Methods) && record.Methods[i] == string(models.MatchFuzzy) {
			continue
		}
		add(ticker, models.OutcomeResolved)
	}
	for _, token := range record.FuzzyTokens {
		add(token, models.OutcomeFuzzy)
	}
	return out
}
