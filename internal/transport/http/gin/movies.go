package httpgin

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kirinyoku/cinema-go/internal/domain"
	"github.com/kirinyoku/cinema-go/internal/service"
)

// @Summary  Create movie
// @Param    req body  CreateMovieRequest true "payload"
// @Success  201 {object} domain.Movie
// @Failure  400 {object} ErrorResponse
// @Failure  409 {object} ErrorResponse "duplicate title"
// @Router   /movies [post]
func handleCreateMovie(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateMovieRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			bindErr(c, err)
			return
		}
		m, err := svcs.Movies.Create(c.Request.Context(), domain.Movie{
			Title:       req.Title,
			Genre:       req.Genre,
			Duration:    req.Duration,
			Rating:      req.Rating,
			ReleaseYear: req.ReleaseYear,
		})
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, m)
	}
}

// @Summary  List movies
// @Success  200 {array} domain.Movie
// @Router   /movies [get]
func handleListMovies(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := svcs.Movies.List(c.Request.Context())
		if err != nil {
			respondErr(c, err)
			return
		}
		if list == nil {
			list = []domain.Movie{}
		}
		writeJSONWithCache(c, http.StatusOK, list, "public, max-age=60", true)
	}
}

// @Summary  Get movie
// @Param    id  path  int  true  "Movie ID"
// @Success  200 {object} domain.Movie
// @Failure  404 {object} ErrorResponse
// @Router   /movies/{id} [get]
func handleGetMovie(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		m, err := svcs.Movies.Get(c.Request.Context(), id)
		if err != nil {
			respondErr(c, err)
			return
		}
		writeJSONWithCache(c, http.StatusOK, m, "public, max-age=60", true)
	}
}

// @Summary  Delete movie
// @Param    id  path  int  true  "Movie ID"
// @Success  204
// @Failure  400 {object} ErrorResponse "movie has showtimes"
// @Failure  404 {object} ErrorResponse
// @Router   /movies/{id} [delete]
func handleDeleteMovie(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		if err := svcs.Movies.Remove(c.Request.Context(), id); err != nil {
			respondErr(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// @Summary  Change movie duration
// @Description Re-validates every showtime of the movie. Depending on the
// @Description server policy the change is rejected or the showtimes are
// @Description adjusted (and deleted when they would overlap).
// @Param    id  path  int  true  "Movie ID"
// @Param    req body  UpdateDurationRequest true "payload"
// @Success  200 {object} domain.DurationUpdate
// @Failure  400 {object} ErrorResponse
// @Failure  404 {object} ErrorResponse
// @Router   /movies/{id}/duration [patch]
func handleUpdateMovieDuration(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		var req UpdateDurationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			bindErr(c, err)
			return
		}
		res, err := svcs.Movies.UpdateDuration(c.Request.Context(), id, req.Duration)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, res)
	}
}
