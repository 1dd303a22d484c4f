package httpgin

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kirinyoku/cinema-go/internal/domain"
	redisrepo "github.com/kirinyoku/cinema-go/internal/repository/redis"
	"github.com/kirinyoku/cinema-go/internal/service"
	"github.com/kirinyoku/cinema-go/internal/service/booking"
)

// @Summary  Book a seat (idempotent)
// @Param    req body  CreateBookingRequest true "payload"
// @Param    Idempotency-Key header string false "replays the first response"
// @Success  201 {object} domain.Booking
// @Failure  400 {object} ErrorResponse "invalid user id / seat out of bounds"
// @Failure  404 {object} ErrorResponse "showtime not found"
// @Failure  409 {object} ErrorResponse "seat taken / sold out / idem in progress"
// @Failure  429 {object} ErrorResponse "rate limited"
// @Router   /bookings [post]
func handleCreateBooking(svcs *service.Services, idem *redisrepo.IdempotencyStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateBookingRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			bindErr(c, err)
			return
		}

		idempotent(c, idem, "booking", func() (int, any, error) {
			b, err := svcs.Bookings.Create(c.Request.Context(), booking.CreateRequest{
				ShowtimeID:    req.ShowtimeID,
				Seat:          req.seat(),
				UserID:        req.UserID,
				CustomerName:  req.CustomerName,
				CustomerEmail: req.CustomerEmail,
			})
			if err != nil {
				return 0, nil, err
			}
			return http.StatusCreated, b, nil
		})
	}
}

// @Summary  Get booking
// @Param    id  path  string  true  "Booking ID (uuid)"
// @Success  200 {object} domain.Booking
// @Failure  404 {object} ErrorResponse
// @Router   /bookings/{id} [get]
func handleGetBooking(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}
		b, err := svcs.Bookings.Get(c.Request.Context(), id)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, b)
	}
}

// @Summary  Cancel booking
// @Param    id  path  string  true  "Booking ID (uuid)"
// @Success  204
// @Failure  404 {object} ErrorResponse
// @Router   /bookings/{id} [delete]
func handleDeleteBooking(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}
		if err := svcs.Bookings.Remove(c.Request.Context(), id); err != nil {
			respondErr(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// @Summary  Book a ticket by row and seat (idempotent)
// @Param    req body  BookTicketRequest true "payload"
// @Param    Idempotency-Key header string false "replays the first response"
// @Success  201 {object} domain.Booking
// @Failure  400 {object} ErrorResponse
// @Failure  404 {object} ErrorResponse
// @Failure  409 {object} ErrorResponse
// @Failure  429 {object} ErrorResponse "rate limited"
// @Router   /tickets/book [post]
func handleBookTicket(svcs *service.Services, idem *redisrepo.IdempotencyStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req BookTicketRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			bindErr(c, err)
			return
		}

		idempotent(c, idem, "ticket", func() (int, any, error) {
			b, err := svcs.Bookings.BookTicket(
				c.Request.Context(),
				req.ShowtimeID,
				req.RowNumber,
				req.SeatNumber,
				req.CustomerName,
				req.CustomerEmail,
			)
			if err != nil {
				return 0, nil, err
			}
			return http.StatusCreated, b, nil
		})
	}
}

// @Summary  List tickets of a showtime
// @Param    showtimeId  path  int  true  "Showtime ID"
// @Success  200 {array} domain.Booking
// @Failure  404 {object} ErrorResponse
// @Router   /tickets/showtime/{showtimeId} [get]
func handleTicketsByShowtime(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		showtimeID, ok := parseInt64Param(c, "showtimeId")
		if !ok {
			return
		}
		list, err := svcs.Bookings.TicketsByShowtime(c.Request.Context(), showtimeID)
		if err != nil {
			respondErr(c, err)
			return
		}
		if list == nil {
			list = []domain.Booking{}
		}
		c.JSON(http.StatusOK, list)
	}
}

// @Summary  List tickets of a customer
// @Param    email  path  string  true  "Customer email"
// @Success  200 {array} domain.Booking
// @Router   /tickets/customer/{email} [get]
func handleTicketsByCustomer(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := svcs.Bookings.TicketsByCustomer(c.Request.Context(), c.Param("email"))
		if err != nil {
			respondErr(c, err)
			return
		}
		if list == nil {
			list = []domain.Booking{}
		}
		c.JSON(http.StatusOK, list)
	}
}

// @Summary  Cancel ticket
// @Param    id  path  string  true  "Ticket ID (uuid)"
// @Success  204
// @Failure  404 {object} ErrorResponse
// @Router   /tickets/{id} [delete]
func handleCancelTicket(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}
		if err := svcs.Bookings.CancelTicket(c.Request.Context(), id); err != nil {
			respondErr(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}
