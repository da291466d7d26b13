package lookup

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kjannette/valuator-backend/internal/models"
	"github.com/kjannette/valuator-backend/internal/valuation"
)

var (
	// ErrSuperseded is returned to a lookup that finished after a newer one
	// was started. Its result is discarded.
	ErrSuperseded = errors.New("lookup superseded by a newer request")
	ErrNoRecord   = errors.New("no record loaded")
)

type Fetcher interface {
	Fetch(ctx context.Context, symbol string) (*models.FinancialRecord, error)
}

// State is the record currently on display.
type State struct {
	LookupID  string                  `json:"lookupId"`
	Symbol    string                  `json:"symbol"`
	Record    *models.FinancialRecord `json:"record"`
	FetchedAt time.Time               `json:"fetchedAt"`
}

// Session holds the single current record. A new lookup cancels the one in
// flight and only the most recently started lookup may publish.
type Session struct {
	fetcher Fetcher
	now     func() time.Time

	mu      sync.Mutex
	gen     uint64
	cancel  context.CancelFunc
	current *State
}

func NewSession(f Fetcher) *Session {
	return &Session{fetcher: f, now: time.Now}
}

func (s *Session) Lookup(ctx context.Context, symbol string) (*State, error) {
	return s.Begin(ctx, symbol)()
}

// Begin makes symbol the latest lookup, cancelling the one in flight, and
// returns the function that performs it. Ordering is fixed when Begin
// returns, so the fetch itself may run on another goroutine.
func (s *Session) Begin(ctx context.Context, symbol string) func() (*State, error) {
	s.mu.Lock()
	s.gen++
	gen := s.gen
	if s.cancel != nil {
		s.cancel()
	}
	lctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()

	return func() (*State, error) {
		defer cancel()

		id := uuid.NewString()
		rec, err := s.fetcher.Fetch(lctx, symbol)

		s.mu.Lock()
		defer s.mu.Unlock()
		if gen != s.gen {
			return nil, ErrSuperseded
		}
		s.cancel = nil
		if err != nil {
			s.current = nil
			return nil, err
		}
		s.current = &State{
			LookupID:  id,
			Symbol:    rec.Profile.Symbol,
			Record:    rec,
			FetchedAt: s.now(),
		}
		return s.current, nil
	}
}

// Current returns the published state, or nil.
func (s *Session) Current() *State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Reset cancels any lookup in flight and clears the record.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.current = nil
}

// Value runs the valuation against the current record. Valuation errors
// leave the record in place.
func (s *Session) Value(a valuation.Assumptions) (*valuation.Result, error) {
	st := s.Current()
	if st == nil {
		return nil, ErrNoRecord
	}
	return valuation.Project(st.Record, a, s.now())
}
