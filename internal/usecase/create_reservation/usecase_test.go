package create_reservation

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-RentalService/internal/domain"
	"github.com/m04kA/SMC-RentalService/internal/infra/events"
	"github.com/m04kA/SMC-RentalService/internal/infra/idempotency"
	"github.com/m04kA/SMC-RentalService/internal/infra/storage/memory"
	checkAvailability "github.com/m04kA/SMC-RentalService/internal/usecase/check_availability"
	"github.com/m04kA/SMC-RentalService/pkg/logger"
	"github.com/m04kA/SMC-RentalService/pkg/metrics"
	"github.com/m04kA/SMC-RentalService/pkg/txmanager"
	"github.com/m04kA/SMC-RentalService/pkg/types"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

type countingMetrics struct {
	mu       sync.Mutex
	outcomes []string
}

func (m *countingMetrics) IncReservation(outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcomes = append(m.outcomes, outcome)
}

type fixture struct {
	store     *memory.Store
	publisher *recordingPublisher
	metrics   *countingMetrics
	idem      *idempotency.MemoryStore
	uc        *UseCase
}

func newFixture(consistency domain.ReservationConsistency) *fixture {
	store := memory.NewStore()
	store.PutItem(domain.Item{ID: 1, Name: "Mesa", TotalQuantity: 5})
	store.PutItem(domain.Item{ID: 2, Name: "Silla", TotalQuantity: 40})

	f := &fixture{
		store:     store,
		publisher: &recordingPublisher{},
		metrics:   &countingMetrics{},
		idem:      idempotency.NewMemoryStore(0),
	}
	f.uc = f.build(consistency, store)
	return f
}

func (f *fixture) build(consistency domain.ReservationConsistency, tx TransactionManager) *UseCase {
	checker := checkAvailability.NewUseCase(f.store.Items(), f.store.Reservations(), domain.DateOrderStrict, nil, logger.NewNop())
	return NewUseCase(checker, f.store.Items(), f.store.Reservations(), tx, f.idem, f.publisher,
		consistency, f.metrics, logger.NewNop())
}

func listAll(t *testing.T, store *memory.Store) []*domain.Reservation {
	t.Helper()
	list, err := store.Reservations().List(context.Background(), domain.ReservationFilter{})
	require.NoError(t, err)
	return list
}

func date(s string) types.Date {
	return types.MustParseDate(s)
}

func line(itemID int64, from, to string, qty int64) LineRequest {
	return LineRequest{ItemID: itemID, DateFrom: date(from), DateTo: date(to), Quantity: qty}
}

var consistencyLevels = []domain.ReservationConsistency{
	domain.ConsistencyTransactional,
	domain.ConsistencyCheckThenCreate,
}

func TestCreateReservation(t *testing.T) {
	for _, level := range consistencyLevels {
		t.Run(string(level), func(t *testing.T) {
			f := newFixture(level)
			notes := "boda"

			resp, err := f.uc.Execute(context.Background(), &Request{
				ClientID: 7,
				Notes:    &notes,
				Lines: []LineRequest{
					line(1, "2026-03-10", "2026-03-12", 2),
					line(2, "2026-03-10", "2026-03-12", 20),
				},
			})
			require.NoError(t, err)

			assert.NotZero(t, resp.ID)
			assert.Equal(t, domain.StatusPending, resp.Status)
			assert.Equal(t, &notes, resp.Notes)
			require.Len(t, resp.Lines, 2)
			assert.Equal(t, int64(20), resp.Lines[1].Quantity)
			assert.False(t, resp.Replayed)

			require.Len(t, f.publisher.events, 1)
			assert.Equal(t, events.TypeReservationCreated, f.publisher.events[0].Type)
			assert.Equal(t, []string{metrics.ReservationCreated}, f.metrics.outcomes)
			assert.Len(t, listAll(t, f.store), 1)
		})
	}
}

func TestCreateReservationInsufficientStock(t *testing.T) {
	for _, level := range consistencyLevels {
		t.Run(string(level), func(t *testing.T) {
			f := newFixture(level)
			f.store.AddReservation(domain.Reservation{
				ClientID: 1,
				Status:   domain.StatusConfirmed,
				Lines: []domain.ReservationLineItem{{
					ItemID:   1,
					Period:   domain.NewDateRange(date("2026-03-12"), date("2026-03-14")),
					Quantity: 4,
				}},
			})

			_, err := f.uc.Execute(context.Background(), &Request{
				ClientID: 7,
				Lines:    []LineRequest{line(1, "2026-03-10", "2026-03-12", 2)},
			})
			require.ErrorIs(t, err, ErrInsufficientStock)

			var shortage *StockShortageError
			require.ErrorAs(t, err, &shortage)
			assert.Equal(t, int64(1), shortage.ItemID)
			assert.Equal(t, "Mesa", shortage.ItemName)
			assert.Equal(t, int64(1), shortage.Available)
			assert.Equal(t, int64(2), shortage.Requested)

			assert.Empty(t, f.publisher.events)
			assert.Equal(t, []string{metrics.ReservationInsufficientStock}, f.metrics.outcomes)
			assert.Len(t, listAll(t, f.store), 1)
		})
	}
}

func TestCreateReservationCountsEarlierLinesOfSameRequest(t *testing.T) {
	f := newFixture(domain.ConsistencyTransactional)

	// 3 + 3 > 5 на общем дне 03-12
	_, err := f.uc.Execute(context.Background(), &Request{
		ClientID: 7,
		Lines: []LineRequest{
			line(1, "2026-03-10", "2026-03-12", 3),
			line(1, "2026-03-12", "2026-03-14", 3),
		},
	})
	var shortage *StockShortageError
	require.ErrorAs(t, err, &shortage)
	assert.Equal(t, int64(2), shortage.Available)

	// Непересекающиеся периоды не складываются
	_, err = f.uc.Execute(context.Background(), &Request{
		ClientID: 7,
		Lines: []LineRequest{
			line(1, "2026-03-10", "2026-03-12", 3),
			line(1, "2026-03-13", "2026-03-14", 3),
		},
	})
	assert.NoError(t, err)
}

func TestCreateReservationItemNotFound(t *testing.T) {
	for _, level := range consistencyLevels {
		t.Run(string(level), func(t *testing.T) {
			f := newFixture(level)
			_, err := f.uc.Execute(context.Background(), &Request{
				ClientID: 7,
				Lines:    []LineRequest{line(99, "2026-03-10", "2026-03-12", 1)},
			})
			assert.ErrorIs(t, err, ErrItemNotFound)
			assert.Equal(t, []string{metrics.ReservationRejected}, f.metrics.outcomes)
		})
	}
}

func TestCreateReservationValidation(t *testing.T) {
	tooMany := make([]LineRequest, domain.MaxLinesPerReservation+1)
	for i := range tooMany {
		tooMany[i] = line(1, "2026-03-10", "2026-03-10", 1)
	}
	longNotes := string(make([]byte, domain.MaxNotesLength+1))

	tests := []struct {
		name string
		req  *Request
	}{
		{"no client", &Request{Lines: []LineRequest{line(1, "2026-03-10", "2026-03-12", 1)}}},
		{"no lines", &Request{ClientID: 1}},
		{"too many lines", &Request{ClientID: 1, Lines: tooMany}},
		{"notes too long", &Request{ClientID: 1, Notes: &longNotes, Lines: []LineRequest{line(1, "2026-03-10", "2026-03-12", 1)}}},
		{"zero quantity", &Request{ClientID: 1, Lines: []LineRequest{line(1, "2026-03-10", "2026-03-12", 0)}}},
		{"quantity over limit", &Request{ClientID: 1, Lines: []LineRequest{line(1, "2026-03-10", "2026-03-12", domain.MaxQuantityPerLine+1)}}},
		{"bad item", &Request{ClientID: 1, Lines: []LineRequest{line(0, "2026-03-10", "2026-03-12", 1)}}},
		{"inverted range", &Request{ClientID: 1, Lines: []LineRequest{line(1, "2026-03-12", "2026-03-10", 1)}}},
		{"missing date", &Request{ClientID: 1, Lines: []LineRequest{{ItemID: 1, DateFrom: date("2026-03-10"), Quantity: 1}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(domain.ConsistencyTransactional)
			_, err := f.uc.Execute(context.Background(), tt.req)
			assert.ErrorIs(t, err, ErrInvalidInput)
			assert.Empty(t, listAll(t, f.store))
		})
	}
}

func TestCreateReservationIdempotentReplay(t *testing.T) {
	f := newFixture(domain.ConsistencyTransactional)
	req := &Request{
		ClientID:       7,
		IdempotencyKey: "order-1",
		Lines:          []LineRequest{line(1, "2026-03-10", "2026-03-12", 2)},
	}

	first, err := f.uc.Execute(context.Background(), req)
	require.NoError(t, err)

	second, err := f.uc.Execute(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.True(t, second.Replayed)
	assert.Len(t, listAll(t, f.store), 1)
	assert.Len(t, f.publisher.events, 1)
	assert.Equal(t, []string{metrics.ReservationCreated, metrics.ReservationReplayed}, f.metrics.outcomes)

	// Ключ привязан к клиенту
	other := *req
	other.ClientID = 8
	third, err := f.uc.Execute(context.Background(), &other)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, third.ID)
}

func TestCreateReservationReleasesKeyOnFailure(t *testing.T) {
	f := newFixture(domain.ConsistencyTransactional)
	req := &Request{
		ClientID:       7,
		IdempotencyKey: "order-1",
		Lines:          []LineRequest{line(1, "2026-03-10", "2026-03-12", 6)},
	}

	_, err := f.uc.Execute(context.Background(), req)
	require.ErrorIs(t, err, ErrInsufficientStock)

	req.Lines[0].Quantity = 5
	resp, err := f.uc.Execute(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, resp.Replayed)
}

type brokenReservations struct {
	*memory.ReservationRepository
}

func (r *brokenReservations) Create(context.Context, *domain.Reservation) (*domain.Reservation, error) {
	return nil, errors.New("connection reset by peer")
}

func TestCreateReservationReleasesKeyOnEveryFailure(t *testing.T) {
	tests := []struct {
		name    string
		line    LineRequest
		broken  bool
		wantErr error
	}{
		{"insufficient stock", line(1, "2026-03-10", "2026-03-12", 6), false, ErrInsufficientStock},
		{"item not found", line(99, "2026-03-10", "2026-03-12", 1), false, ErrItemNotFound},
		{"storage failure", line(1, "2026-03-10", "2026-03-12", 1), true, ErrInternal},
	}

	for _, consistency := range []domain.ReservationConsistency{domain.ConsistencyTransactional, domain.ConsistencyCheckThenCreate} {
		for _, tt := range tests {
			t.Run(string(consistency)+"/"+tt.name, func(t *testing.T) {
				f := newFixture(consistency)
				uc := f.uc
				if tt.broken {
					checker := checkAvailability.NewUseCase(f.store.Items(), f.store.Reservations(), domain.DateOrderStrict, nil, logger.NewNop())
					uc = NewUseCase(checker, f.store.Items(), &brokenReservations{f.store.Reservations()}, f.store, f.idem,
						f.publisher, consistency, f.metrics, logger.NewNop())
				}

				_, err := uc.Execute(context.Background(), &Request{
					ClientID:       7,
					IdempotencyKey: "order-1",
					Lines:          []LineRequest{tt.line},
				})
				require.ErrorIs(t, err, tt.wantErr)

				stored, err := f.idem.Reserve(context.Background(), "7:order-1")
				require.NoError(t, err)
				assert.Nil(t, stored)
			})
		}
	}
}

func TestCreateReservationNilRequest(t *testing.T) {
	f := newFixture(domain.ConsistencyTransactional)

	resp, err := f.uc.Execute(context.Background(), nil)
	assert.Nil(t, resp)
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Empty(t, listAll(t, f.store))
}

func TestCreateReservationKeyInProgress(t *testing.T) {
	f := newFixture(domain.ConsistencyTransactional)
	_, err := f.idem.Reserve(context.Background(), "7:order-1")
	require.NoError(t, err)

	_, err = f.uc.Execute(context.Background(), &Request{
		ClientID:       7,
		IdempotencyKey: "order-1",
		Lines:          []LineRequest{line(1, "2026-03-10", "2026-03-12", 1)},
	})
	assert.ErrorIs(t, err, ErrRequestInProgress)
}

func TestCreateReservationPublishFailureKeepsReservation(t *testing.T) {
	f := newFixture(domain.ConsistencyTransactional)
	f.publisher.err = errors.New("broker down")

	resp, err := f.uc.Execute(context.Background(), &Request{
		ClientID: 7,
		Lines:    []LineRequest{line(1, "2026-03-10", "2026-03-12", 1)},
	})
	require.NoError(t, err)
	assert.NotZero(t, resp.ID)
	assert.Len(t, listAll(t, f.store), 1)
}

func TestTransactionalCreateNeverOverbooks(t *testing.T) {
	f := newFixture(domain.ConsistencyTransactional)

	const workers = 20
	var wg sync.WaitGroup
	var mu sync.Mutex
	created := 0

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(client int64) {
			defer wg.Done()
			_, err := f.uc.Execute(context.Background(), &Request{
				ClientID: client,
				Lines:    []LineRequest{line(1, "2026-03-10", "2026-03-12", 1)},
			})
			if err == nil {
				mu.Lock()
				created++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, ErrInsufficientStock)
		}(int64(i + 1))
	}
	wg.Wait()

	assert.Equal(t, 5, created)
	blocked, err := f.store.Reservations().SumOverlappingQuantity(context.Background(), 1,
		domain.NewDateRange(date("2026-03-11"), date("2026-03-11")))
	require.NoError(t, err)
	assert.Equal(t, int64(5), blocked)
}

// retryingTx повторяет fn при ошибке сериализации, как txmanager
type retryingTx struct {
	*memory.Store
	attempts int
}

func (tx *retryingTx) DoSerializable(ctx context.Context, fn func(ctx context.Context) error) error {
	for {
		tx.attempts++
		err := tx.Store.DoSerializable(ctx, fn)
		if err == nil || !txmanager.IsSerializationFailure(err) || tx.attempts >= 3 {
			return err
		}
	}
}

type flakyReservations struct {
	*memory.ReservationRepository
	failures int
}

func (r *flakyReservations) Create(ctx context.Context, res *domain.Reservation) (*domain.Reservation, error) {
	if r.failures > 0 {
		r.failures--
		return nil, &pq.Error{Code: "40001", Message: "could not serialize access"}
	}
	return r.ReservationRepository.Create(ctx, res)
}

func TestTransactionalCreateRetriesSerializationFailure(t *testing.T) {
	f := newFixture(domain.ConsistencyTransactional)
	tx := &retryingTx{Store: f.store}
	repo := &flakyReservations{ReservationRepository: f.store.Reservations(), failures: 1}

	checker := checkAvailability.NewUseCase(f.store.Items(), f.store.Reservations(), domain.DateOrderStrict, nil, logger.NewNop())
	uc := NewUseCase(checker, f.store.Items(), repo, tx, nil, nil, domain.ConsistencyTransactional, nil, logger.NewNop())

	resp, err := uc.Execute(context.Background(), &Request{
		ClientID: 7,
		Lines:    []LineRequest{line(1, "2026-03-10", "2026-03-12", 1)},
	})
	require.NoError(t, err)
	assert.NotZero(t, resp.ID)
	assert.Equal(t, 2, tx.attempts)
}

func TestUnknownConsistencyFallsBackToTransactional(t *testing.T) {
	f := newFixture("eventual")
	assert.Equal(t, domain.ConsistencyTransactional, f.uc.consistency)
}

func TestCreateReservationCountsEveryOverlappingEarlierLine(t *testing.T) {
	f := newFixture(domain.ConsistencyTransactional)

	// A и B не пересекаются друг с другом, но обе пересекают C: C видит 5 - 2 - 2 = 1
	_, err := f.uc.Execute(context.Background(), &Request{
		ClientID: 7,
		Lines: []LineRequest{
			line(1, "2026-03-10", "2026-03-11", 2),
			line(1, "2026-03-14", "2026-03-15", 2),
			line(1, "2026-03-10", "2026-03-15", 2),
		},
	})

	var shortage *StockShortageError
	require.ErrorAs(t, err, &shortage)
	assert.Equal(t, int64(1), shortage.Available)
	assert.Empty(t, listAll(t, f.store))
}
