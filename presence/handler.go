package presence

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

type presenceHandler struct {
	tracker *Tracker
}

func NewPresenceHandler(tracker *Tracker) *presenceHandler {
	return &presenceHandler{tracker: tracker}
}

// HeartbeatHandler marks the caller online and refreshes lastSeen. The
// mobile client calls this on foreground and then periodically.
func (ph *presenceHandler) HeartbeatHandler(ctx *gin.Context) {
	id := ctx.GetString("id")
	if id == "" {
		ctx.String(http.StatusUnauthorized, "unauthenticated")
		return
	}

	if err := ph.tracker.Online(ctx.Request.Context(), id); err != nil {
		ctx.String(http.StatusInternalServerError, "unknown-error")
		return
	}
	ctx.Status(http.StatusNoContent)
}

func (ph *presenceHandler) OfflineHandler(ctx *gin.Context) {
	id := ctx.GetString("id")
	if id == "" {
		ctx.String(http.StatusUnauthorized, "unauthenticated")
		return
	}

	if err := ph.tracker.Offline(ctx.Request.Context(), id); err != nil {
		ctx.String(http.StatusInternalServerError, "unknown-error")
		return
	}
	ctx.Status(http.StatusNoContent)
}

func (ph *presenceHandler) GetHandler(ctx *gin.Context) {
	record, err := ph.tracker.Get(ctx.Request.Context(), ctx.Param("playerid"))
	if err != nil {
		if errors.Is(err, ErrNotTracked) {
			ctx.String(http.StatusNotFound, "not-tracked")
			return
		}
		ctx.String(http.StatusInternalServerError, "unknown-error")
		return
	}

	ctx.JSON(http.StatusOK, record)
}
