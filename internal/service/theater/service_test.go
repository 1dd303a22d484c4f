package theater

import (
	"context"
	"math"
	"testing"

	"github.com/kirinyoku/cinema-go/internal/domain"
	"github.com/kirinyoku/cinema-go/internal/repository/memory"
	"github.com/kirinyoku/cinema-go/internal/uow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

func TestCapacity(t *testing.T) {
	tests := []struct {
		name        string
		rows        int
		seatsPerRow int
		want        int
		wantErr     bool
	}{
		{name: "10x20", rows: 10, seatsPerRow: 20, want: 200},
		{name: "single seat", rows: 1, seatsPerRow: 1, want: 1},
		{name: "zero rows", rows: 0, seatsPerRow: 20, wantErr: true},
		{name: "negative seats per row", rows: 5, seatsPerRow: -1, wantErr: true},
		{name: "overflows int32", rows: math.MaxInt32, seatsPerRow: 2, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Capacity(tt.rows, tt.seatsPerRow)
			if tt.wantErr {
				require.ErrorIs(t, err, domain.ErrInvalidGeometry)
				require.ErrorIs(t, err, domain.ErrBadRequest)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

type TheaterServiceTestSuite struct {
	suite.Suite
	ctx     context.Context
	service *Service
}

func (s *TheaterServiceTestSuite) SetupTest() {
	s.ctx = context.Background()
	store := memory.NewStore()
	s.service = New(store, uow.NewUoW(store, nil), nil, Config{})
}

func TestTheaterServiceSuite(t *testing.T) {
	suite.Run(t, new(TheaterServiceTestSuite))
}

func (s *TheaterServiceTestSuite) TestCreate() {
	t, err := s.service.Create(s.ctx, "  Hall 1 ", 10, 20)
	s.Require().NoError(err)
	s.Equal("Hall 1", t.Name)
	s.Equal(200, t.Capacity)
	s.NotZero(t.ID)

	got, err := s.service.Get(s.ctx, t.ID)
	s.Require().NoError(err)
	s.Equal(*t, *got)
}

func (s *TheaterServiceTestSuite) TestCreate_Invalid() {
	tests := []struct {
		name        string
		theater     string
		rows        int
		seatsPerRow int
		wantErr     error
	}{
		{name: "blank name", theater: " ", rows: 1, seatsPerRow: 1, wantErr: domain.ErrInvalidFormat},
		{name: "zero rows", theater: "A", rows: 0, seatsPerRow: 1, wantErr: domain.ErrInvalidGeometry},
		{name: "zero seats", theater: "A", rows: 1, seatsPerRow: 0, wantErr: domain.ErrInvalidGeometry},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			_, err := s.service.Create(s.ctx, tt.theater, tt.rows, tt.seatsPerRow)
			s.ErrorIs(err, tt.wantErr)
		})
	}

	list, err := s.service.List(s.ctx)
	s.Require().NoError(err)
	s.Empty(list)
}

func (s *TheaterServiceTestSuite) TestCreate_DuplicateName() {
	_, err := s.service.Create(s.ctx, "Hall", 1, 1)
	s.Require().NoError(err)

	_, err = s.service.Create(s.ctx, "Hall", 2, 2)
	s.ErrorIs(err, domain.ErrDuplicateName)
}

func (s *TheaterServiceTestSuite) TestGet_NotFound() {
	_, err := s.service.Get(s.ctx, 42)
	s.ErrorIs(err, domain.ErrNotFound)
	s.Equal("not_found", domain.Kind(err))
}
