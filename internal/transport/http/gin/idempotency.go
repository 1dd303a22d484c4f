package httpgin

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	redisrepo "github.com/kirinyoku/cinema-go/internal/repository/redis"
)

const idemLockTTL = 60 * time.Second

// idempotent runs handle at most once per Idempotency-Key header within
// scope and replays the stored response for repeated requests. Without a
// store or a header it just calls handle. Only successful responses are
// stored, so a failed request can be retried with the same key.
func idempotent(
	c *gin.Context,
	idem *redisrepo.IdempotencyStore,
	scope string,
	handle func() (int, any, error),
) {
	idemKey := strings.TrimSpace(c.GetHeader("Idempotency-Key"))
	if idem == nil || idemKey == "" {
		status, body, err := handle()
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(status, body)
		return
	}

	ctx := c.Request.Context()
	storageKey := redisrepo.KeyIdem(scope, idemKey)

	if replay(c, idem, storageKey, idemKey) {
		return
	}

	locked, err := idem.AcquireLock(ctx, storageKey, idemLockTTL)
	if err != nil {
		respondErr(c, err)
		return
	}
	if !locked {
		if replay(c, idem, storageKey, idemKey) {
			return
		}
		c.Header("Retry-After", "1")
		c.AbortWithStatusJSON(http.StatusConflict, ErrorResponse{
			Error: "idempotency key in progress",
			Kind:  "idempotency_in_progress",
		})
		return
	}

	status, body, err := handle()
	if err != nil {
		_ = idem.Release(ctx, storageKey)
		respondErr(c, err)
		return
	}

	b, err := json.Marshal(body)
	if err != nil {
		_ = idem.Release(ctx, storageKey)
		respondErr(c, err)
		return
	}

	_ = idem.SaveResult(ctx, storageKey, status, string(b))
	c.Header("Idempotency-Key", idemKey)
	c.Data(status, "application/json; charset=utf-8", b)
}

func replay(c *gin.Context, idem *redisrepo.IdempotencyStore, storageKey, idemKey string) bool {
	status, payload, ok, _ := idem.GetResult(c.Request.Context(), storageKey)
	if !ok {
		return false
	}

	c.Header("Idempotency-Key", idemKey)
	c.Header("Idempotent-Replayed", "true")
	c.Data(status, "application/json; charset=utf-8", []byte(payload))
	return true
}
