package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/cinema-go/internal/domain"
	"github.com/kirinyoku/cinema-go/internal/repository/memory"
	"github.com/kirinyoku/cinema-go/internal/uow"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

var t0 = time.Date(2030, 3, 14, 18, 0, 0, 0, time.UTC)

func minutes(n int) time.Duration { return time.Duration(n) * time.Minute }

type SchedulerTestSuite struct {
	suite.Suite
	ctx      context.Context
	store    *memory.Store
	service  *Service
	movie    *domain.Movie
	short    *domain.Movie
	theater  *domain.Theater
	theater2 *domain.Theater
}

func (s *SchedulerTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = memory.NewStore()
	s.service = New(s.store, uow.NewUoW(s.store, nil), nil, nil, Config{DurationTolerance: -1})
	s.service.now = func() time.Time { return t0.Add(-time.Hour) }

	s.movie = s.addMovie("Heat", 120)
	s.short = s.addMovie("Shorts", 90)
	s.theater = s.addTheater("Main", 10, 15)
	s.theater2 = s.addTheater("Small", 2, 5)
}

func TestSchedulerSuite(t *testing.T) {
	suite.Run(t, new(SchedulerTestSuite))
}

func (s *SchedulerTestSuite) addMovie(title string, duration int) *domain.Movie {
	m := &domain.Movie{Title: title, Duration: duration, ReleaseYear: 1995}
	id, err := s.store.Movies().Create(s.ctx, m)
	s.Require().NoError(err)
	m.ID = id
	return m
}

func (s *SchedulerTestSuite) addTheater(name string, rows, seatsPerRow int) *domain.Theater {
	t := &domain.Theater{Name: name, Rows: rows, SeatsPerRow: seatsPerRow, Capacity: rows * seatsPerRow}
	id, err := s.store.Theaters().Create(s.ctx, t)
	s.Require().NoError(err)
	t.ID = id
	return t
}

func (s *SchedulerTestSuite) create(movieID, theaterID int64, start time.Time, length int) (*domain.Showtime, error) {
	return s.service.Create(s.ctx, CreateInput{
		MovieID:   movieID,
		TheaterID: theaterID,
		Start:     start,
		End:       start.Add(minutes(length)),
		Price:     decimal.RequireFromString("12.50"),
	})
}

func (s *SchedulerTestSuite) TestCreate_FullCapacity() {
	st, err := s.create(s.movie.ID, s.theater.ID, t0, 120)
	s.Require().NoError(err)

	s.Equal(150, st.AvailableSeats)
	s.True(decimal.RequireFromString("12.5").Equal(st.Price))

	got, err := s.service.Get(s.ctx, st.ID)
	s.Require().NoError(err)
	s.Equal(st.ID, got.ID)
}

func (s *SchedulerTestSuite) TestCreate_Overlap() {
	first, err := s.create(s.movie.ID, s.theater.ID, t0, 120)
	s.Require().NoError(err)

	_, err = s.create(s.movie.ID, s.theater.ID, t0.Add(minutes(60)), 120)
	s.Require().ErrorIs(err, domain.ErrScheduleConflict)

	var sc domain.ScheduleConflictError
	s.Require().ErrorAs(err, &sc)
	s.Equal(first.ID, sc.ConflictingID)
	s.Equal(s.theater.ID, sc.TheaterID)
}

func (s *SchedulerTestSuite) TestCreate_BackToBackAndOtherTheater() {
	_, err := s.create(s.movie.ID, s.theater.ID, t0, 120)
	s.Require().NoError(err)

	_, err = s.create(s.movie.ID, s.theater.ID, t0.Add(minutes(120)), 120)
	s.NoError(err)

	_, err = s.create(s.movie.ID, s.theater2.ID, t0.Add(minutes(30)), 120)
	s.NoError(err)
}

func (s *SchedulerTestSuite) TestCreate_Errors() {
	tests := []struct {
		name      string
		movieID   int64
		theaterID int64
		length    int
		price     decimal.Decimal
		wantErr   error
	}{
		{name: "missing movie", movieID: 99, theaterID: s.theater.ID, length: 120, wantErr: domain.ErrNotFound},
		{name: "missing theater", movieID: s.movie.ID, theaterID: 99, length: 120, wantErr: domain.ErrNotFound},
		{name: "too long", movieID: s.movie.ID, theaterID: s.theater.ID, length: 126, wantErr: domain.ErrDurationMismatch},
		{name: "negative price", movieID: s.movie.ID, theaterID: s.theater.ID, length: 120, price: decimal.NewFromInt(-1), wantErr: domain.ErrInvalidFormat},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			_, err := s.service.Create(s.ctx, CreateInput{
				MovieID:   tt.movieID,
				TheaterID: tt.theaterID,
				Start:     t0,
				End:       t0.Add(minutes(tt.length)),
				Price:     tt.price,
			})
			s.ErrorIs(err, tt.wantErr)
		})
	}

	list, err := s.service.ListByMovie(s.ctx, s.movie.ID)
	s.Require().NoError(err)
	s.Empty(list)
}

func (s *SchedulerTestSuite) TestCreate_ConcurrentOverlapOnlyOneWins() {
	const n = 8

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.create(s.movie.ID, s.theater.ID, t0.Add(minutes(i)), 120)
			if err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	s.Equal(1, wins)
}

func (s *SchedulerTestSuite) TestUpdate_Window() {
	st, err := s.create(s.movie.ID, s.theater.ID, t0, 120)
	s.Require().NoError(err)
	other, err := s.create(s.movie.ID, s.theater.ID, t0.Add(minutes(180)), 120)
	s.Require().NoError(err)

	start, end := t0.Add(minutes(30)), t0.Add(minutes(150))
	updated, err := s.service.Update(s.ctx, st.ID, domain.ShowtimeChanges{StartTime: &start, EndTime: &end})
	s.Require().NoError(err)
	s.Equal(start, updated.StartTime)

	start, end = t0.Add(minutes(120)), t0.Add(minutes(240))
	_, err = s.service.Update(s.ctx, st.ID, domain.ShowtimeChanges{StartTime: &start, EndTime: &end})
	var sc domain.ScheduleConflictError
	s.Require().ErrorAs(err, &sc)
	s.Equal(other.ID, sc.ConflictingID)

	end = t0.Add(minutes(60))
	_, err = s.service.Update(s.ctx, st.ID, domain.ShowtimeChanges{EndTime: &end})
	var dm domain.DurationMismatchError
	s.Require().ErrorAs(err, &dm)
	s.Equal(st.ID, dm.ShowtimeID)
}

func (s *SchedulerTestSuite) TestUpdate_ItselfIsNotAConflict() {
	st, err := s.create(s.movie.ID, s.theater.ID, t0, 120)
	s.Require().NoError(err)

	start, end := t0.Add(minutes(3)), t0.Add(minutes(123))
	_, err = s.service.Update(s.ctx, st.ID, domain.ShowtimeChanges{StartTime: &start, EndTime: &end})
	s.NoError(err)
}

func (s *SchedulerTestSuite) TestUpdate_MovieRechecksDuration() {
	st, err := s.create(s.movie.ID, s.theater.ID, t0, 120)
	s.Require().NoError(err)

	_, err = s.service.Update(s.ctx, st.ID, domain.ShowtimeChanges{MovieID: &s.short.ID})
	s.ErrorIs(err, domain.ErrDurationMismatch)

	missing := int64(404)
	_, err = s.service.Update(s.ctx, st.ID, domain.ShowtimeChanges{MovieID: &missing})
	s.ErrorIs(err, domain.ErrNotFound)
}

func (s *SchedulerTestSuite) TestUpdate_TheaterChangeResetsSeats() {
	st, err := s.create(s.movie.ID, s.theater.ID, t0, 120)
	s.Require().NoError(err)

	price := decimal.NewFromInt(8)
	updated, err := s.service.Update(s.ctx, st.ID, domain.ShowtimeChanges{TheaterID: &s.theater2.ID, Price: &price})
	s.Require().NoError(err)
	s.Equal(s.theater2.ID, updated.TheaterID)
	s.Equal(10, updated.AvailableSeats)
	s.True(price.Equal(updated.Price))
}

func (s *SchedulerTestSuite) TestUpdate_TheaterChangeWithBookings() {
	st, err := s.create(s.movie.ID, s.theater.ID, t0, 120)
	s.Require().NoError(err)

	s.Require().NoError(s.store.Bookings().Create(s.ctx, &domain.Booking{
		ID: uuid.New(), ShowtimeID: st.ID, SeatNumber: 1, Row: 1, Seat: 1,
	}))

	_, err = s.service.Update(s.ctx, st.ID, domain.ShowtimeChanges{TheaterID: &s.theater2.ID})
	s.Require().ErrorIs(err, domain.ErrTheaterChangeWithBookings)
	s.Equal("theater_change_with_bookings", domain.Kind(err))
}

func (s *SchedulerTestSuite) TestUpdate_NotFound() {
	price := decimal.NewFromInt(1)
	_, err := s.service.Update(s.ctx, 77, domain.ShowtimeChanges{Price: &price})
	s.ErrorIs(err, domain.ErrNotFound)
}

func (s *SchedulerTestSuite) TestRemove_CascadesBookings() {
	st, err := s.create(s.movie.ID, s.theater.ID, t0, 120)
	s.Require().NoError(err)

	for seat := 1; seat <= 3; seat++ {
		s.Require().NoError(s.store.Bookings().Create(s.ctx, &domain.Booking{
			ID: uuid.New(), ShowtimeID: st.ID, SeatNumber: seat,
		}))
	}

	s.Require().NoError(s.service.Remove(s.ctx, st.ID))

	left, err := s.store.Bookings().CountByShowtime(s.ctx, st.ID)
	s.Require().NoError(err)
	s.Zero(left)

	_, err = s.service.Get(s.ctx, st.ID)
	s.ErrorIs(err, domain.ErrNotFound)

	s.ErrorIs(s.service.Remove(s.ctx, st.ID), domain.ErrNotFound)
}

func (s *SchedulerTestSuite) TestFindOverlap() {
	st, err := s.create(s.movie.ID, s.theater.ID, t0, 120)
	s.Require().NoError(err)

	got, err := s.service.FindOverlap(s.ctx, s.theater.ID, t0.Add(minutes(119)), t0.Add(minutes(240)), 0)
	s.Require().NoError(err)
	s.Require().NotNil(got)
	s.Equal(st.ID, got.ID)

	got, err = s.service.FindOverlap(s.ctx, s.theater.ID, t0, t0.Add(minutes(120)), st.ID)
	s.Require().NoError(err)
	s.Nil(got)
}

func (s *SchedulerTestSuite) TestUpcoming() {
	for i := 0; i < 3; i++ {
		_, err := s.create(s.movie.ID, s.theater.ID, t0.Add(time.Duration(i)*3*time.Hour), 120)
		s.Require().NoError(err)
	}

	list, err := s.service.Upcoming(s.ctx, 2)
	s.Require().NoError(err)
	s.Len(list, 2)

	list, err = s.service.Upcoming(s.ctx, 1000)
	s.Require().NoError(err)
	s.Len(list, 3)

	s.service.now = func() time.Time { return t0.Add(24 * time.Hour) }
	list, err = s.service.Upcoming(s.ctx, 0)
	s.Require().NoError(err)
	s.Empty(list)
}

func (s *SchedulerTestSuite) TestTolerance() {
	s.Equal(DefaultDurationTolerance, s.service.Tolerance())

	strict := New(s.store, uow.NewUoW(s.store, nil), nil, nil, Config{})
	s.Zero(strict.Tolerance())

	_, err := strict.Create(s.ctx, CreateInput{
		MovieID: s.movie.ID, TheaterID: s.theater.ID, Start: t0, End: t0.Add(minutes(121)),
	})
	s.ErrorIs(err, domain.ErrDurationMismatch)
}
