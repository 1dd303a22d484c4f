package httpgin

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kirinyoku/cinema-go/internal/domain"
	"github.com/kirinyoku/cinema-go/internal/service"
)

// @Summary  Create theater
// @Param    req body  CreateTheaterRequest true "payload"
// @Success  201 {object} domain.Theater
// @Failure  400 {object} ErrorResponse "invalid geometry"
// @Failure  409 {object} ErrorResponse "duplicate name"
// @Router   /theaters [post]
func handleCreateTheater(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateTheaterRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			bindErr(c, err)
			return
		}
		t, err := svcs.Theaters.Create(c.Request.Context(), req.Name, req.Rows, req.SeatsPerRow)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, t)
	}
}

// @Summary  List theaters
// @Success  200 {array} domain.Theater
// @Router   /theaters [get]
func handleListTheaters(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := svcs.Theaters.List(c.Request.Context())
		if err != nil {
			respondErr(c, err)
			return
		}
		if list == nil {
			list = []domain.Theater{}
		}
		writeJSONWithCache(c, http.StatusOK, list, "public, max-age=300", true)
	}
}

// @Summary  Get theater
// @Param    id  path  int  true  "Theater ID"
// @Success  200 {object} domain.Theater
// @Failure  404 {object} ErrorResponse
// @Router   /theaters/{id} [get]
func handleGetTheater(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		t, err := svcs.Theaters.Get(c.Request.Context(), id)
		if err != nil {
			respondErr(c, err)
			return
		}
		writeJSONWithCache(c, http.StatusOK, t, "public, max-age=300", true)
	}
}
