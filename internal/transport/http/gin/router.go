package httpgin

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	redisrepo "github.com/kirinyoku/cinema-go/internal/repository/redis"
	"github.com/kirinyoku/cinema-go/internal/service"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

type Options struct {
	Idempotency *redisrepo.IdempotencyStore
	Limiter     *redisrepo.SlidingWindowLimiter
}

func NewRouter(
	svcs *service.Services,
	opts Options,
	logger *slog.Logger,
	middlewares ...gin.HandlerFunc,
) *gin.Engine {
	registerValidations()

	r := gin.New()

	r.Use(gin.Recovery(), RequestIDMiddleware(), LoggingMiddleware(logger), CORS())
	for _, m := range middlewares {
		if m != nil {
			r.Use(m)
		}
	}

	// Swagger UI
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// health
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	limited := RateLimit(opts.Limiter, logger)

	movies := r.Group("/movies")
	{
		movies.POST("", handleCreateMovie(svcs))
		movies.GET("", handleListMovies(svcs))
		movies.GET("/:id", handleGetMovie(svcs))
		movies.DELETE("/:id", handleDeleteMovie(svcs))
		movies.PATCH("/:id/duration", handleUpdateMovieDuration(svcs))
	}

	theaters := r.Group("/theaters")
	{
		theaters.POST("", handleCreateTheater(svcs))
		theaters.GET("", handleListTheaters(svcs))
		theaters.GET("/:id", handleGetTheater(svcs))
	}

	showtimes := r.Group("/showtimes")
	{
		showtimes.POST("", handleCreateShowtime(svcs))
		showtimes.GET("/upcoming", handleUpcomingShowtimes(svcs))
		showtimes.GET("/movie/:movieId", handleListShowtimesByMovie(svcs))
		showtimes.GET("/:id", handleGetShowtime(svcs))
		showtimes.PUT("/:id", handleUpdateShowtime(svcs))
		showtimes.DELETE("/:id", handleDeleteShowtime(svcs))
	}

	bookings := r.Group("/bookings")
	{
		bookings.POST("", limited, handleCreateBooking(svcs, opts.Idempotency))
		bookings.GET("/:id", handleGetBooking(svcs))
		bookings.DELETE("/:id", handleDeleteBooking(svcs))
	}

	tickets := r.Group("/tickets")
	{
		tickets.POST("/book", limited, handleBookTicket(svcs, opts.Idempotency))
		tickets.GET("/showtime/:showtimeId", handleTicketsByShowtime(svcs))
		tickets.GET("/customer/:email", handleTicketsByCustomer(svcs))
		tickets.DELETE("/:id", handleCancelTicket(svcs))
	}

	return r
}

// --- Helpers ---

func parseInt64Param(c *gin.Context, name string) (int64, bool) {
	s := c.Param(name)
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil || v <= 0 {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return v, true
}

func parseUUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	v, err := uuid.Parse(c.Param(name))
	if err != nil {
		badRequest(c, "invalid "+name)
		return uuid.Nil, false
	}
	return v, true
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
