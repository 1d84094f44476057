package ginserver

import (
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"rentline/internal/app/dto"
	domainlisting "rentline/internal/domain/listing"
	domainuser "rentline/internal/domain/user"
)

type StatsHTTP interface {
	Stats(c *gin.Context)
}

// StatsHandler serves the public landing-page counters.
type StatsHandler struct {
	Users    domainuser.Repository
	Listings domainlisting.Repository
	Logger   *slog.Logger
}

func (h StatsHandler) Stats(c *gin.Context) {
	users, err := h.Users.Count(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	properties, err := h.Listings.Count(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.Stats{
		Properties:   properties,
		Users:        users,
		Satisfaction: 98,
		Support:      "24/7",
	})
}

func (h StatsHandler) fail(c *gin.Context, err error) {
	if h.Logger != nil {
		h.Logger.Error("stats query failed", "error", err)
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}

var _ StatsHTTP = (*StatsHandler)(nil)
