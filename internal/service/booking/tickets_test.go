package booking

import (
	"testing"

	"github.com/kirinyoku/cinema-go/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func (s *BookingTestSuite) TestBookTicket() {
	s.events.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	b, err := s.service.BookTicket(s.ctx, s.showtime.ID, 3, 4, "Ann", "ann@example.com")
	s.Require().NoError(err)
	s.Equal(34, b.SeatNumber)

	_, err = s.service.BookTicket(s.ctx, s.showtime.ID, 11, 1, "Ann", "ann@example.com")
	s.ErrorIs(err, domain.ErrOutOfBounds)

	_, err = s.service.BookTicket(s.ctx, s.showtime.ID, 1, 1, "", "")
	s.ErrorIs(err, domain.ErrInvalidFormat)

	_, err = s.service.BookTicket(s.ctx, 999, 1, 1, "Ann", "ann@example.com")
	s.ErrorIs(err, domain.ErrNotFound)
}

func (s *BookingTestSuite) TestTicketQueries() {
	s.events.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	_, err := s.service.BookTicket(s.ctx, s.showtime.ID, 2, 1, "Ann", "ann@example.com")
	s.Require().NoError(err)
	first, err := s.service.BookTicket(s.ctx, s.showtime.ID, 1, 1, "Ann", "ann@example.com")
	s.Require().NoError(err)
	_, err = s.book(s.showtime.ID, domain.SeatNumber(100))
	s.Require().NoError(err)

	list, err := s.service.TicketsByShowtime(s.ctx, s.showtime.ID)
	s.Require().NoError(err)
	s.Require().Len(list, 3)
	s.Equal(first.ID, list[0].ID)

	mine, err := s.service.TicketsByCustomer(s.ctx, " ANN@example.com ")
	s.Require().NoError(err)
	s.Len(mine, 2)

	none, err := s.service.TicketsByCustomer(s.ctx, "nobody@example.com")
	s.Require().NoError(err)
	s.Empty(none)

	_, err = s.service.TicketsByShowtime(s.ctx, 404)
	s.ErrorIs(err, domain.ErrNotFound)

	s.Require().NoError(s.service.CancelTicket(s.ctx, first.ID))
	s.Equal(148, s.available(s.showtime.ID))
}

func TestValidateSeatIdentity(t *testing.T) {
	theater := &domain.Theater{Rows: 10, SeatsPerRow: 15, Capacity: 150}

	tests := []struct {
		name    string
		seat    domain.SeatIdentity
		wantErr error
	}{
		{name: "first flat seat", seat: domain.SeatNumber(1)},
		{name: "last flat seat", seat: domain.SeatNumber(150)},
		{name: "flat zero", seat: domain.SeatNumber(0), wantErr: domain.ErrOutOfBounds},
		{name: "flat past capacity", seat: domain.SeatNumber(151), wantErr: domain.ErrOutOfBounds},
		{name: "last pair", seat: domain.RowSeat(10, 15)},
		{name: "row past end", seat: domain.RowSeat(11, 1), wantErr: domain.ErrOutOfBounds},
		{name: "seat past end of row", seat: domain.RowSeat(1, 16), wantErr: domain.ErrOutOfBounds},
		{name: "pair with number", seat: domain.SeatIdentity{Kind: domain.SeatPair, Row: 1, Seat: 1, Number: 1}, wantErr: domain.ErrInvalidFormat},
		{name: "missing kind", seat: domain.SeatIdentity{}, wantErr: domain.ErrInvalidFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSeatIdentity(tt.seat, theater)
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestSeatIdentityNormalize(t *testing.T) {
	tests := []struct {
		seat                  domain.SeatIdentity
		number, row, position int
	}{
		{seat: domain.SeatNumber(1), number: 1, row: 1, position: 1},
		{seat: domain.SeatNumber(15), number: 15, row: 1, position: 15},
		{seat: domain.SeatNumber(16), number: 16, row: 2, position: 1},
		{seat: domain.RowSeat(2, 1), number: 16, row: 2, position: 1},
		{seat: domain.RowSeat(10, 15), number: 150, row: 10, position: 15},
	}

	for _, tt := range tests {
		number, row, position := tt.seat.Normalize(15)
		assert.Equal(t, tt.number, number)
		assert.Equal(t, tt.row, row)
		assert.Equal(t, tt.position, position)
	}
}

func TestValidateCustomer(t *testing.T) {
	email, err := ValidateCustomer("Ann", " Ann@Example.COM")
	require.NoError(t, err)
	assert.Equal(t, "ann@example.com", email)

	_, err = ValidateCustomer("", "ann@example.com")
	require.ErrorIs(t, err, domain.ErrInvalidFormat)

	_, err = ValidateCustomer("Ann", "not-an-email")
	require.ErrorIs(t, err, domain.ErrInvalidFormat)
}

func TestValidateUserID(t *testing.T) {
	id, err := ValidateUserID(userID)
	require.NoError(t, err)
	assert.Equal(t, userID, id.String())

	_, err = ValidateUserID("not-a-uuid")
	var fe domain.InvalidFormatError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "user_id", fe.Field)
}
