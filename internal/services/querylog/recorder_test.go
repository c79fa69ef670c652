package querylog

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/finquery/internal/models"
)

type mockStorage struct {
	mock.Mock
}

func (m *mockStorage) SaveRecord(ctx context.Context, record *models.QueryLogRecord) error {
	return m.Called(ctx, record).Error(0)
}

func (m *mockStorage) ListRecent(ctx context.Context, outcome string, limit int) ([]models.QueryLogRecord, error) {
	args := m.Called(ctx, outcome, limit)
	return args.Get(0).([]models.QueryLogRecord), args.Error(1)
}

func (m *mockStorage) IncrementKeyword(ctx context.Context, keyword, outcome string, at time.Time) error {
	return m.Called(ctx, keyword, outcome, at).Error(0)
}

func (m *mockStorage) TopKeywords(ctx context.Context, outcome string, limit int) ([]models.KeywordLookup, error) {
	args := m.Called(ctx, outcome, limit)
	return args.Get(0).([]models.KeywordLookup), args.Error(1)
}

func (m *mockStorage) PruneBefore(ctx context.Context, cutoff time.Time) (int, error) {
	args := m.Called(ctx, cutoff)
	return args.Int(0), args.Error(1)
}

// gatedStorage blocks every save until the gate is closed.
type gatedStorage struct {
	mockStorage
	gate  chan struct{}
	mu    sync.Mutex
	saved []string
}

func (g *gatedStorage) SaveRecord(ctx context.Context, record *models.QueryLogRecord) error {
	<-g.gate
	g.mu.Lock()
	defer g.mu.Unlock()
	g.saved = append(g.saved, record.ID)
	return nil
}

func (g *gatedStorage) IncrementKeyword(ctx context.Context, keyword, outcome string, at time.Time) error {
	return nil
}

func TestRecorder_WritesRecordAndKeywords(t *testing.T) {
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	record := &models.QueryLogRecord{
		ID:          "r1",
		CreatedAt:   at,
		Query:       "apple and microsft revenue",
		Tickers:     []string{"AAPL", "MSFT"},
		Methods:     []string{"exact", "fuzzy"},
		FuzzyTokens: []string{"microsft"},
		Outcome:     models.OutcomeFuzzy,
	}

	storage := &mockStorage{}
	storage.On("SaveRecord", mock.Anything, record).Return(nil).Once()
	storage.On("IncrementKeyword", mock.Anything, "AAPL", models.OutcomeResolved, at).Return(nil).Once()
	storage.On("IncrementKeyword", mock.Anything, "microsft", models.OutcomeFuzzy, at).Return(nil).Once()

	r := NewRecorder(storage, 8, arbor.NewLogger())
	r.Start()
	r.Record(record)
	require.NoError(t, r.Close())

	storage.AssertExpectations(t)
	assert.Zero(t, r.Dropped())
}

func TestRecorder_SaveFailureSkipsKeywords(t *testing.T) {
	record := &models.QueryLogRecord{ID: "r1", Tickers: []string{"AAPL"}, Methods: []string{"exact"}}

	storage := &mockStorage{}
	storage.On("SaveRecord", mock.Anything, record).Return(assert.AnError).Once()

	r := NewRecorder(storage, 8, arbor.NewLogger())
	r.Start()
	r.Record(record)
	require.NoError(t, r.Close())

	storage.AssertExpectations(t)
	storage.AssertNotCalled(t, "IncrementKeyword", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRecorder_DropsWhenFull(t *testing.T) {
	storage := &gatedStorage{gate: make(chan struct{})}
	r := NewRecorder(storage, 1, arbor.NewLogger())
	r.Start()

	const total = 6
	for i := 0; i < total; i++ {
		r.Record(&models.QueryLogRecord{ID: strings.Repeat("x", i+1)})
	}
	// One record can be in flight and one buffered.
	assert.GreaterOrEqual(t, r.Dropped(), int64(total-2))

	close(storage.gate)
	require.NoError(t, r.Close())

	storage.mu.Lock()
	saved := len(storage.saved)
	storage.mu.Unlock()
	assert.Equal(t, int64(total), int64(saved)+r.Dropped())
}

func TestRecorder_RecordAfterClose(t *testing.T) {
	storage := &mockStorage{}
	r := NewRecorder(storage, 4, arbor.NewLogger())
	r.Start()
	require.NoError(t, r.Close())
	require.NoError(t, r.Close())

	r.Record(&models.QueryLogRecord{ID: "late"})
	r.Record(nil)

	assert.Equal(t, int64(1), r.Dropped())
	storage.AssertNotCalled(t, "SaveRecord", mock.Anything, mock.Anything)
}

func TestKeywords(t *testing.T) {
	long := strings.Repeat("a", 150)

	tests := []struct {
		name   string
		record *models.QueryLogRecord
		want   []string
	}{
		{
			name: "resolved tickers",
			record: &models.QueryLogRecord{
				Tickers: []string{"AAPL", "MSFT", "AAPL"},
				Methods: []string{"exact", "override", "exact"},
			},
			want: []string{"resolved|AAPL", "resolved|MSFT"},
		},
		{
			name: "fuzzy token replaces ticker",
			record: &models.QueryLogRecord{
				Tickers:     []string{"MSFT"},
				Methods:     []string{"fuzzy"},
				FuzzyTokens: []string{"microsft"},
			},
			want: []string{"fuzzy|microsft"},
		},
		{
			name:   "not found uses normalized query",
			record: &models.QueryLogRecord{Query: "  What IS   EBITDA  "},
			want:   []string{"not_found|what is ebitda"},
		},
		{
			name:   "not found query is capped",
			record: &models.QueryLogRecord{Query: long},
			want:   []string{"not_found|" + long[:maxKeywordRunes]},
		},
		{
			name:   "empty query contributes nothing",
			record: &models.QueryLogRecord{Query: "   "},
			want:   nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			for _, kw := range Keywords(tt.record) {
				got = append(got, kw.Key)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}
