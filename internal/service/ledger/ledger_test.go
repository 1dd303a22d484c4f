package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/kirinyoku/cinema-go/internal/domain"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

type MockShowtimeRepo struct {
	mock.Mock
	domain.ShowtimeRepository
}

func (m *MockShowtimeRepo) SetAvailableSeats(ctx context.Context, id int64, available int) error {
	args := m.Called(ctx, id, available)
	return args.Error(0)
}

type LedgerTestSuite struct {
	suite.Suite
	ctx    context.Context
	repo   *MockShowtimeRepo
	ledger *Ledger
}

func (s *LedgerTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.repo = new(MockShowtimeRepo)
	s.ledger = New()
}

func TestLedgerSuite(t *testing.T) {
	suite.Run(t, new(LedgerTestSuite))
}

func (s *LedgerTestSuite) TestReserve() {
	tests := []struct {
		name          string
		available     int
		setupMocks    func()
		wantErr       error
		wantAvailable int
	}{
		{
			name:      "takes one seat",
			available: 3,
			setupMocks: func() {
				s.repo.On("SetAvailableSeats", mock.Anything, int64(1), 2).Return(nil).Once()
			},
			wantAvailable: 2,
		},
		{
			name:          "sold out",
			available:     0,
			wantErr:       domain.ErrNoSeatsAvailable,
			wantAvailable: 0,
		},
		{
			name:      "storage error leaves counter",
			available: 1,
			setupMocks: func() {
				s.repo.On("SetAvailableSeats", mock.Anything, int64(1), 0).Return(errors.New("db")).Once()
			},
			wantErr:       errors.New("db"),
			wantAvailable: 1,
		},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			s.SetupTest()
			if tt.setupMocks != nil {
				tt.setupMocks()
			}

			st := &domain.Showtime{ID: 1, AvailableSeats: tt.available}
			err := s.ledger.Reserve(s.ctx, s.repo, st)

			switch {
			case tt.wantErr == nil:
				s.Require().NoError(err)
			case errors.Is(tt.wantErr, domain.ErrBadRequest):
				s.Require().ErrorIs(err, tt.wantErr)
			default:
				s.Require().ErrorContains(err, tt.wantErr.Error())
			}
			s.Equal(tt.wantAvailable, st.AvailableSeats)
			s.repo.AssertExpectations(s.T())
		})
	}
}

func (s *LedgerTestSuite) TestRelease() {
	s.repo.On("SetAvailableSeats", mock.Anything, int64(1), 10).Return(nil).Once()

	st := &domain.Showtime{ID: 1, AvailableSeats: 9}
	s.Require().NoError(s.ledger.Release(s.ctx, s.repo, st, 10))
	s.Equal(10, st.AvailableSeats)

	err := s.ledger.Release(s.ctx, s.repo, st, 10)
	s.Require().ErrorIs(err, domain.ErrInternalConsistency)
	s.NotErrorIs(err, domain.ErrBadRequest)

	var ce domain.ConsistencyError
	s.Require().ErrorAs(err, &ce)
	s.Equal(11, ce.Available)
	s.Equal(10, st.AvailableSeats)

	s.repo.AssertExpectations(s.T())
}
