package httpgin

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/kirinyoku/cinema-go/internal/domain"
)

const kindRateLimited = "rate_limited"

// statusFor maps an error of the domain taxonomy to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrDuplicateName),
		errors.Is(err, domain.ErrScheduleConflict),
		errors.Is(err, domain.ErrSeatTaken),
		errors.Is(err, domain.ErrNoSeatsAvailable):
		return http.StatusConflict
	case errors.Is(err, domain.ErrBadRequest):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func respondErr(c *gin.Context, err error) {
	if err == nil {
		c.Status(http.StatusNoContent)
		return
	}

	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		msg = "internal server error"
	} else {
		msg = publicMessage(err)
	}

	c.AbortWithStatusJSON(status, ErrorResponse{Error: msg, Kind: domain.Kind(err)})
}

// publicMessage strips the operation prefixes added while the error
// travelled up the stack.
func publicMessage(err error) string {
	msg := err.Error()
	for {
		i := strings.Index(msg, ": ")
		if i < 0 || !strings.HasPrefix(msg, "service.") && !strings.HasPrefix(msg, "memory.") &&
			!strings.HasPrefix(msg, "postgres.") {
			return msg
		}
		msg = msg[i+2:]
	}
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{
		Error: msg,
		Kind:  domain.Kind(domain.ErrInvalidFormat),
	})
}

// bindErr reports a request body that failed to decode or validate.
func bindErr(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		parts := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			parts = append(parts, fe.Field()+" "+validationMessage(fe))
		}
		badRequest(c, strings.Join(parts, "; "))
		return
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &syntaxErr):
		badRequest(c, "malformed JSON body")
	case errors.As(err, &typeErr):
		badRequest(c, "invalid type for field "+typeErr.Field)
	default:
		badRequest(c, err.Error())
	}
}
