package httpgin

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kirinyoku/cinema-go/internal/domain"
	"github.com/kirinyoku/cinema-go/internal/service"
	"github.com/kirinyoku/cinema-go/internal/service/scheduler"
)

// @Summary  Schedule showtime
// @Param    req body  CreateShowtimeRequest true "payload"
// @Success  201 {object} domain.Showtime
// @Failure  400 {object} ErrorResponse "duration mismatch"
// @Failure  404 {object} ErrorResponse "movie or theater not found"
// @Failure  409 {object} ErrorResponse "schedule conflict"
// @Router   /showtimes [post]
func handleCreateShowtime(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateShowtimeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			bindErr(c, err)
			return
		}
		start, err := parseRFC3339(req.StartTime)
		if err != nil {
			badRequest(c, "invalid start_time (RFC3339)")
			return
		}
		end, err := parseRFC3339(req.EndTime)
		if err != nil {
			badRequest(c, "invalid end_time (RFC3339)")
			return
		}
		st, err := svcs.Showtimes.Create(c.Request.Context(), scheduler.CreateInput{
			MovieID:   req.MovieID,
			TheaterID: req.TheaterID,
			Start:     start,
			End:       end,
			Price:     req.Price,
		})
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, st)
	}
}

// @Summary  Get showtime
// @Param    id  path  int  true  "Showtime ID"
// @Success  200 {object} domain.Showtime
// @Failure  404 {object} ErrorResponse
// @Router   /showtimes/{id} [get]
func handleGetShowtime(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		st, err := svcs.Showtimes.Get(c.Request.Context(), id)
		if err != nil {
			respondErr(c, err)
			return
		}
		writeJSONWithCache(c, http.StatusOK, st, "public, max-age=15", true)
	}
}

// @Summary  Update showtime
// @Param    id  path  int  true  "Showtime ID"
// @Param    req body  UpdateShowtimeRequest true "payload"
// @Success  200 {object} domain.Showtime
// @Failure  400 {object} ErrorResponse
// @Failure  404 {object} ErrorResponse
// @Failure  409 {object} ErrorResponse "schedule conflict"
// @Router   /showtimes/{id} [put]
func handleUpdateShowtime(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		var req UpdateShowtimeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			bindErr(c, err)
			return
		}
		changes, err := req.changes()
		if err != nil {
			respondErr(c, err)
			return
		}
		st, err := svcs.Showtimes.Update(c.Request.Context(), id, changes)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, st)
	}
}

// @Summary  Delete showtime and its bookings
// @Param    id  path  int  true  "Showtime ID"
// @Success  204
// @Failure  404 {object} ErrorResponse
// @Router   /showtimes/{id} [delete]
func handleDeleteShowtime(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		if err := svcs.Showtimes.Remove(c.Request.Context(), id); err != nil {
			respondErr(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// @Summary  List showtimes of a movie
// @Param    movieId  path  int  true  "Movie ID"
// @Success  200 {array} domain.Showtime
// @Router   /showtimes/movie/{movieId} [get]
func handleListShowtimesByMovie(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		movieID, ok := parseInt64Param(c, "movieId")
		if !ok {
			return
		}
		list, err := svcs.Showtimes.ListByMovie(c.Request.Context(), movieID)
		if err != nil {
			respondErr(c, err)
			return
		}
		if list == nil {
			list = []domain.Showtime{}
		}
		writeJSONWithCache(c, http.StatusOK, list, "public, max-age=15", true)
	}
}

// @Summary  List upcoming showtimes
// @Param    limit  query  int  false  "page size"
// @Success  200 {array} domain.Showtime
// @Router   /showtimes/upcoming [get]
func handleUpcomingShowtimes(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := parseIntDefault(c.Query("limit"), 0)
		list, err := svcs.Showtimes.Upcoming(c.Request.Context(), limit)
		if err != nil {
			respondErr(c, err)
			return
		}
		if list == nil {
			list = []domain.Showtime{}
		}
		c.JSON(http.StatusOK, list)
	}
}
