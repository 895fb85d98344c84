package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-RentalService/internal/domain"
	itemRepo "github.com/m04kA/SMC-RentalService/internal/infra/storage/item"
	reservationRepo "github.com/m04kA/SMC-RentalService/internal/infra/storage/reservation"
	"github.com/m04kA/SMC-RentalService/pkg/types"
)

func period(from, to string) domain.DateRange {
	return domain.NewDateRange(types.MustParseDate(from), types.MustParseDate(to))
}

func line(itemID int64, from, to string, qty int64) domain.ReservationLineItem {
	return domain.ReservationLineItem{ItemID: itemID, Period: period(from, to), Quantity: qty}
}

func TestItems(t *testing.T) {
	s := NewStore()
	s.PutItem(domain.Item{ID: 1, Name: "Mesa", TotalQuantity: 5})

	item, err := s.Items().GetByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "Mesa", item.Name)

	_, err = s.Items().GetByIDForUpdate(context.Background(), 2)
	assert.ErrorIs(t, err, itemRepo.ErrItemNotFound)
}

func TestSumOverlappingQuantity(t *testing.T) {
	s := NewStore()
	s.AddReservation(domain.Reservation{Status: domain.StatusConfirmed, Lines: []domain.ReservationLineItem{
		line(1, "2026-03-10", "2026-03-12", 2),
		line(2, "2026-03-10", "2026-03-12", 9),
	}})
	s.AddReservation(domain.Reservation{Status: domain.StatusCompleted, Lines: []domain.ReservationLineItem{
		line(1, "2026-03-12", "2026-03-14", 1),
	}})
	s.AddReservation(domain.Reservation{Status: domain.StatusCancelled, Lines: []domain.ReservationLineItem{
		line(1, "2026-03-10", "2026-03-12", 100),
	}})

	repo := s.Reservations()
	ctx := context.Background()

	sum, err := repo.SumOverlappingQuantity(ctx, 1, period("2026-03-12", "2026-03-12"))
	require.NoError(t, err)
	assert.Equal(t, int64(3), sum, "touching boundaries overlap, cancelled excluded")

	sum, err = repo.SumOverlappingQuantity(ctx, 1, period("2026-03-15", "2026-03-20"))
	require.NoError(t, err)
	assert.Zero(t, sum)

	// Перевернутый период: date_from <= 03-10 AND date_to >= 03-14
	sum, err = repo.SumOverlappingQuantity(ctx, 1, period("2026-03-14", "2026-03-10"))
	require.NoError(t, err)
	assert.Zero(t, sum)
}

func TestCreateGetAndCopies(t *testing.T) {
	s := NewStore()
	repo := s.Reservations()
	ctx := context.Background()

	notes := "boda"
	created, err := repo.Create(ctx, &domain.Reservation{
		ClientID: 5,
		Status:   domain.StatusPending,
		Notes:    &notes,
		Lines:    []domain.ReservationLineItem{line(1, "2026-03-10", "2026-03-12", 2)},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), created.ID)
	assert.Equal(t, created.ID, created.Lines[0].ReservationID)
	assert.NotZero(t, created.Lines[0].ID)

	created.Lines[0].Quantity = 999
	got, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.Lines[0].Quantity, "returned values must not alias stored state")

	_, err = repo.GetByID(ctx, 42)
	assert.ErrorIs(t, err, reservationRepo.ErrReservationNotFound)

	_, err = repo.Create(ctx, &domain.Reservation{ClientID: 1})
	assert.ErrorIs(t, err, reservationRepo.ErrEmptyReservation)
}

func TestListFiltersAndOrder(t *testing.T) {
	s := NewStore()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	s.AddReservation(domain.Reservation{ClientID: 1, Status: domain.StatusPending, CreatedAt: base,
		Lines: []domain.ReservationLineItem{line(1, "2026-03-10", "2026-03-12", 1)}})
	s.AddReservation(domain.Reservation{ClientID: 2, Status: domain.StatusConfirmed, CreatedAt: base.Add(time.Hour),
		Lines: []domain.ReservationLineItem{line(2, "2026-03-20", "2026-03-21", 1)}})
	s.AddReservation(domain.Reservation{ClientID: 1, Status: domain.StatusPending, CreatedAt: base.Add(2 * time.Hour),
		Lines: []domain.ReservationLineItem{line(1, "2026-04-01", "2026-04-02", 1)}})

	repo := s.Reservations()
	ctx := context.Background()

	all, err := repo.List(ctx, domain.ReservationFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []int64{3, 2, 1}, []int64{all[0].ID, all[1].ID, all[2].ID})

	item := int64(1)
	window := period("2026-03-12", "2026-03-25")
	filtered, err := repo.List(ctx, domain.ReservationFilter{ItemID: &item, Period: &window})
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, int64(1), filtered[0].ID)

	status := domain.StatusConfirmed
	client := int64(2)
	filtered, err = repo.List(ctx, domain.ReservationFilter{Status: &status, ClientID: &client})
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, int64(2), filtered[0].ID)
}

func TestUpdateStatus(t *testing.T) {
	s := NewStore()
	res := s.AddReservation(domain.Reservation{Status: domain.StatusPending,
		Lines: []domain.ReservationLineItem{line(1, "2026-03-10", "2026-03-12", 1)}})

	repo := s.Reservations()
	_, err := repo.UpdateStatus(context.Background(), res.ID, domain.StatusPending, domain.StatusCancelled)
	require.NoError(t, err)

	_, err = repo.UpdateStatus(context.Background(), res.ID, domain.StatusPending, domain.StatusConfirmed)
	assert.ErrorIs(t, err, reservationRepo.ErrStatusConflict)

	sum, err := repo.SumOverlappingQuantity(context.Background(), 1, period("2026-03-10", "2026-03-12"))
	require.NoError(t, err)
	assert.Zero(t, sum, "cancelled reservation must release stock")
}
