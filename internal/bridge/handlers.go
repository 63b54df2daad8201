package bridge

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"tabtimer/internal/core/countdown"
	"tabtimer/internal/core/model"
)

type reorderRequest struct {
	IDs []string `json:"ids"`
}

func invalidJSON(c *gin.Context) {
	writeError(c, badRequest("invalid_json", "invalid request body"))
}

func (server *Server) startTimer(c *gin.Context) {
	var req StartTimerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidJSON(c)
		return
	}
	if err := server.start(c.Request.Context(), req); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, Reply{Success: true})
}

func (server *Server) cancelTimer(c *gin.Context) {
	if err := server.timer.Cancel(c.Request.Context()); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, Reply{Success: true})
}

func (server *Server) timerStatus(c *gin.Context) {
	status, err := server.timer.Status(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, statusReply(status))
}

func (server *Server) listPresets(c *gin.Context) {
	presets, err := server.presets.ListPresets(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	if presets == nil {
		presets = []model.TimerPreset{}
	}
	c.JSON(http.StatusOK, gin.H{"presets": presets})
}

func (server *Server) createPreset(c *gin.Context) {
	var draft model.TimerPreset
	if err := c.ShouldBindJSON(&draft); err != nil {
		invalidJSON(c)
		return
	}
	preset, err := server.presets.CreatePreset(c.Request.Context(), draft)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"preset": preset})
}

func (server *Server) updatePreset(c *gin.Context) {
	var preset model.TimerPreset
	if err := c.ShouldBindJSON(&preset); err != nil {
		invalidJSON(c)
		return
	}
	preset.ID = c.Param("id")
	updated, err := server.presets.UpdatePreset(c.Request.Context(), preset)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"preset": updated})
}

func (server *Server) deletePreset(c *gin.Context) {
	if err := server.presets.DeletePreset(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, Reply{Success: true})
}

func (server *Server) reorderPresets(c *gin.Context) {
	var req reorderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidJSON(c)
		return
	}
	presets, err := server.presets.ReorderPresets(c.Request.Context(), req.IDs)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"presets": presets})
}

func (server *Server) lastSettings(c *gin.Context) {
	settings, err := server.presets.LastSettings(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"settings": settings})
}

func (server *Server) saveLastSettings(c *gin.Context) {
	var settings model.LastSettings
	if err := c.ShouldBindJSON(&settings); err != nil {
		invalidJSON(c)
		return
	}
	if settings.Hours < 0 || settings.Minutes < 0 || settings.Seconds < 0 {
		writeError(c, badRequest("invalid_settings", "durations must not be negative"))
		return
	}
	if err := server.presets.SaveLastSettings(c.Request.Context(), settings); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"settings": settings})
}

func (server *Server) appState(c *gin.Context) {
	state, err := server.presets.AppState(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": state})
}

func (server *Server) saveAppState(c *gin.Context) {
	var state model.AppState
	if err := c.ShouldBindJSON(&state); err != nil {
		invalidJSON(c)
		return
	}
	state = state.Normalize()
	if err := server.presets.SaveAppState(c.Request.Context(), state); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": state})
}

func (server *Server) forceSync(c *gin.Context) {
	if server.syncer == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": gin.H{"code": "sync_disabled", "message": "no remote store configured"},
		})
		return
	}
	outcome, err := server.syncer.Force(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"outcome": outcome})
}

// start resolves a preset start into its duration and starts the engine.
func (server *Server) start(ctx context.Context, req StartTimerRequest) error {
	if req.TotalSeconds <= 0 && req.CurrentTimerID != "" {
		preset, err := server.presets.GetPreset(ctx, req.CurrentTimerID)
		if err != nil {
			return err
		}
		req.TotalSeconds = preset.TotalSeconds()
	}
	return server.timer.Start(ctx, countdown.StartRequest{
		TotalSeconds: req.TotalSeconds,
		EndTime:      req.endTime(),
		PresetID:     req.CurrentTimerID,
		Sound:        req.Sound,
	})
}

// handleCommand answers the commands clients send over the websocket.
func (server *Server) handleCommand(ctx context.Context, envelope Envelope) (any, error) {
	switch envelope.Type {
	case MsgStartTimer:
		var req StartTimerRequest
		if len(envelope.Payload) > 0 {
			if err := json.Unmarshal(envelope.Payload, &req); err != nil {
				return nil, badRequest("invalid_json", "invalid START_TIMER payload")
			}
		}
		if err := server.start(ctx, req); err != nil {
			return Reply{Error: err.Error()}, nil
		}
		return Reply{Success: true}, nil
	case MsgCancelTimer:
		if err := server.timer.Cancel(ctx); err != nil {
			return Reply{Error: err.Error()}, nil
		}
		return Reply{Success: true}, nil
	case MsgGetCountdownStatus:
		status, err := server.timer.Status(ctx)
		if err != nil {
			return nil, err
		}
		return statusReply(status), nil
	default:
		return nil, badRequest("unknown_message", "unknown message type "+envelope.Type)
	}
}
