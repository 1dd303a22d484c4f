package integration_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/cinema-go/internal/domain"
	"github.com/kirinyoku/cinema-go/internal/postgres"
	httpgin "github.com/kirinyoku/cinema-go/internal/transport/http/gin"
	"github.com/stretchr/testify/suite"
)

type BookingSuite struct {
	BaseSuite
}

func TestBookingSuite(t *testing.T) {
	suite.Run(t, new(BookingSuite))
}

// day hands out a separate day per fixture so that schedules created by
// different tests never collide.
var (
	dayMu sync.Mutex
	day   = time.Date(2031, 6, 1, 18, 0, 0, 0, time.UTC)
)

func nextDay() time.Time {
	dayMu.Lock()
	defer dayMu.Unlock()
	day = day.Add(24 * time.Hour)
	return day
}

type fixture struct {
	theater  domain.Theater
	movie    domain.Movie
	showtime domain.Showtime
}

func (s *BookingSuite) fixture(rows, seatsPerRow int) fixture {
	var f fixture
	suffix := uuid.NewString()[:8]

	s.doJSON(http.MethodPost, "/theaters", map[string]any{
		"name": "Hall " + suffix, "rows": rows, "seats_per_row": seatsPerRow,
	}, http.StatusCreated, &f.theater)

	s.doJSON(http.MethodPost, "/movies", map[string]any{
		"title": "Movie " + suffix, "duration": 120, "release_year": 2010,
	}, http.StatusCreated, &f.movie)

	start := nextDay()
	s.doJSON(http.MethodPost, "/showtimes", map[string]any{
		"movie_id":   f.movie.ID,
		"theater_id": f.theater.ID,
		"start_time": start.Format(time.RFC3339),
		"end_time":   start.Add(120 * time.Minute).Format(time.RFC3339),
		"price":      "12.00",
	}, http.StatusCreated, &f.showtime)

	return f
}

func (s *BookingSuite) available(showtimeID int64) int {
	var st domain.Showtime
	s.doJSON(http.MethodGet, fmt.Sprintf("/showtimes/%d", showtimeID), nil, http.StatusOK, &st)
	return st.AvailableSeats
}

func (s *BookingSuite) book(showtimeID int64, seat int) (int, []byte) {
	status, raw, _ := s.do(http.MethodPost, "/bookings", map[string]any{
		"showtime_id": showtimeID,
		"seat_number": seat,
		"user_id":     uuid.NewString(),
	}, nil)
	return status, raw
}

func (s *BookingSuite) TestMigrateIsRepeatable() {
	s.Require().NoError(postgres.Migrate(s.cfg.Postgres.DSN()))
}

func (s *BookingSuite) TestScheduleAndBook() {
	f := s.fixture(10, 15)
	s.Equal(150, f.theater.Capacity)
	s.Equal(150, f.showtime.AvailableSeats)

	// overlapping window in the same theater
	status, raw, _ := s.do(http.MethodPost, "/showtimes", map[string]any{
		"movie_id":   f.movie.ID,
		"theater_id": f.theater.ID,
		"start_time": f.showtime.StartTime.Add(60 * time.Minute).Format(time.RFC3339),
		"end_time":   f.showtime.StartTime.Add(180 * time.Minute).Format(time.RFC3339),
	}, nil)
	s.Require().Equal(http.StatusConflict, status, string(raw))

	status, raw = s.book(f.showtime.ID, 1)
	s.Require().Equal(http.StatusCreated, status, string(raw))
	var b domain.Booking
	s.Require().NoError(json.Unmarshal(raw, &b))
	s.Equal(149, s.available(f.showtime.ID))

	status, _ = s.book(f.showtime.ID, 1)
	s.Equal(http.StatusConflict, status)

	status, _, _ = s.do(http.MethodDelete, "/bookings/"+b.ID.String(), nil, nil)
	s.Equal(http.StatusNoContent, status)
	s.Equal(150, s.available(f.showtime.ID))
}

func (s *BookingSuite) TestSellOut() {
	f := s.fixture(10, 10)

	for seat := 1; seat <= 100; seat++ {
		status, raw := s.book(f.showtime.ID, seat)
		s.Require().Equal(http.StatusCreated, status, string(raw))
	}
	s.Zero(s.available(f.showtime.ID))

	status, raw := s.book(f.showtime.ID, 101)
	s.Require().Equal(http.StatusBadRequest, status)
	var resp httpgin.ErrorResponse
	s.Require().NoError(json.Unmarshal(raw, &resp))
	s.Equal("out_of_bounds", resp.Kind)

	status, raw = s.book(f.showtime.ID, 10)
	s.Require().Equal(http.StatusConflict, status)
	s.Require().NoError(json.Unmarshal(raw, &resp))
	s.Equal("no_seats_available", resp.Kind)
}

func (s *BookingSuite) TestConcurrentBookingsOfOneSeat() {
	f := s.fixture(5, 5)

	const n = 12
	statuses := make(chan int, n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			status, _ := s.book(f.showtime.ID, 13)
			statuses <- status
		}()
	}
	wg.Wait()
	close(statuses)

	counts := map[int]int{}
	for st := range statuses {
		counts[st]++
	}

	s.Equal(1, counts[http.StatusCreated])
	s.Equal(n-1, counts[http.StatusConflict])
	s.Equal(24, s.available(f.showtime.ID))
}

func (s *BookingSuite) TestConcurrentShowtimesInOneTheater() {
	f := s.fixture(2, 2)
	start := nextDay()

	const n = 6
	statuses := make(chan int, n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			from := start.Add(time.Duration(i) * time.Minute)
			status, _, _ := s.do(http.MethodPost, "/showtimes", map[string]any{
				"movie_id":   f.movie.ID,
				"theater_id": f.theater.ID,
				"start_time": from.Format(time.RFC3339),
				"end_time":   from.Add(120 * time.Minute).Format(time.RFC3339),
			}, nil)
			statuses <- status
		}(i)
	}
	wg.Wait()
	close(statuses)

	created := 0
	for st := range statuses {
		if st == http.StatusCreated {
			created++
		}
	}
	s.Equal(1, created)
}

func (s *BookingSuite) TestIdempotentBooking() {
	f := s.fixture(3, 3)
	key := uuid.NewString()
	body := map[string]any{"showtime_id": f.showtime.ID, "seat_number": 4, "user_id": uuid.NewString()}

	status, first, _ := s.do(http.MethodPost, "/bookings", body, map[string]string{"Idempotency-Key": key})
	s.Require().Equal(http.StatusCreated, status, string(first))

	status, second, headers := s.do(http.MethodPost, "/bookings", body, map[string]string{"Idempotency-Key": key})
	s.Require().Equal(http.StatusCreated, status, string(second))
	s.Equal("true", headers.Get("Idempotent-Replayed"))
	s.JSONEq(string(first), string(second))

	s.Equal(8, s.available(f.showtime.ID))
}

func (s *BookingSuite) TestDurationChangeRejected() {
	f := s.fixture(2, 2)

	status, raw, _ := s.do(http.MethodPatch, fmt.Sprintf("/movies/%d/duration", f.movie.ID), map[string]any{"duration": 90}, nil)
	s.Require().Equal(http.StatusBadRequest, status, string(raw))

	var m domain.Movie
	s.doJSON(http.MethodGet, fmt.Sprintf("/movies/%d", f.movie.ID), nil, http.StatusOK, &m)
	s.Equal(120, m.Duration)
}

func (s *BookingSuite) TestRemoveShowtimeCascades() {
	f := s.fixture(2, 2)

	status, raw := s.book(f.showtime.ID, 1)
	s.Require().Equal(http.StatusCreated, status, string(raw))

	status, _, _ = s.do(http.MethodDelete, fmt.Sprintf("/showtimes/%d", f.showtime.ID), nil, nil)
	s.Require().Equal(http.StatusNoContent, status)

	status, _, _ = s.do(http.MethodGet, fmt.Sprintf("/tickets/showtime/%d", f.showtime.ID), nil, nil)
	s.Equal(http.StatusNotFound, status)

	status, _, _ = s.do(http.MethodDelete, fmt.Sprintf("/movies/%d", f.movie.ID), nil, nil)
	s.Equal(http.StatusNoContent, status)
}
