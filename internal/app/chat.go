package app

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/unklab-dev/kampusbot-go/internal/ctxutil"
	apperrors "github.com/unklab-dev/kampusbot-go/internal/errors"
	"github.com/unklab-dev/kampusbot-go/internal/sentry"
)

type chatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message" binding:"required"`
}

type chatResponse struct {
	SessionID  string  `json:"session_id"`
	Reply      string  `json:"reply"`
	Source     string  `json:"source"`
	Tag        string  `json:"tag,omitempty"`
	Confidence float64 `json:"confidence"`
	Language   string  `json:"language"`
}

// handleChat answers one chat message. A missing session_id starts a
// fresh conversation and the generated ID is returned to the client.
func (a *Application) handleChat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		a.metrics.RecordHTTPError("bad_request")
		c.JSON(http.StatusBadRequest, gin.H{"error": "message is required"})
		return
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = a.sessions.NewID()
	}

	ctx := ctxutil.WithSessionID(c.Request.Context(), sessionID)
	reply, err := a.dispatcher.Handle(ctx, sessionID, req.Message)
	if err != nil {
		status := mapStatus(err)
		if status >= 500 {
			a.logger.WithError(err).Error("Chat handling failed")
			sentry.CaptureExceptionWithContext(ctx, err)
			a.metrics.RecordHTTPError("internal")
		} else {
			a.metrics.RecordHTTPError("bad_request")
		}
		c.JSON(status, gin.H{"error": apperrors.GetUserMessage(err)})
		return
	}

	c.JSON(http.StatusOK, chatResponse{
		SessionID:  sessionID,
		Reply:      reply.Text,
		Source:     reply.Source,
		Tag:        reply.Tag,
		Confidence: reply.Confidence,
		Language:   string(reply.Language),
	})
}
