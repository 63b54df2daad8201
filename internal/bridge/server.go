package bridge

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"tabtimer/internal/core/countdown"
	"tabtimer/internal/core/model"
	"tabtimer/internal/core/syncer"
)

// Timer is the countdown engine as seen by the bridge.
type Timer interface {
	Start(ctx context.Context, request countdown.StartRequest) error
	Cancel(ctx context.Context) error
	Status(ctx context.Context) (countdown.Status, error)
}

// Presets is the local preset store as seen by the bridge.
type Presets interface {
	ListPresets(ctx context.Context) ([]model.TimerPreset, error)
	GetPreset(ctx context.Context, id string) (model.TimerPreset, error)
	CreatePreset(ctx context.Context, draft model.TimerPreset) (model.TimerPreset, error)
	UpdatePreset(ctx context.Context, preset model.TimerPreset) (model.TimerPreset, error)
	DeletePreset(ctx context.Context, id string) error
	ReorderPresets(ctx context.Context, ids []string) ([]model.TimerPreset, error)
	LastSettings(ctx context.Context) (model.LastSettings, error)
	SaveLastSettings(ctx context.Context, settings model.LastSettings) error
	AppState(ctx context.Context) (model.AppState, error)
	SaveAppState(ctx context.Context, state model.AppState) error
}

// Syncer forces a reconcile.
type Syncer interface {
	Force(ctx context.Context) (syncer.Outcome, error)
}

// Server is the localhost bridge: the HTTP API plus the websocket hub.
type Server struct {
	timer   Timer
	presets Presets
	syncer  Syncer
	hub     *Hub
	engine  *gin.Engine
}

// NewServer builds the router. syncer may be nil when sync is disabled.
func NewServer(timer Timer, presets Presets, syncer Syncer, hub *Hub) *Server {
	server := &Server{timer: timer, presets: presets, syncer: syncer, hub: hub}
	server.engine = server.routes()
	hub.SetHandler(server.handleCommand)
	return server
}

// Handler returns the HTTP handler.
func (server *Server) Handler() http.Handler {
	return server.engine
}

// Serve serves on listener until ctx is cancelled.
func (server *Server) Serve(ctx context.Context, listener net.Listener) error {
	httpServer := &http.Server{
		Handler:           server.engine,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("bridge: listening on %s", listener.Addr())
		errCh <- httpServer.Serve(listener)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	server.hub.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

func (server *Server) routes() *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Logger(), gin.Recovery())

	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "clients": server.hub.Clients()})
	})
	engine.GET("/ws", func(c *gin.Context) {
		server.hub.ServeWS(c.Writer, c.Request)
	})

	api := engine.Group("/api")

	timer := api.Group("/timer")
	timer.POST("/start", server.startTimer)
	timer.POST("/cancel", server.cancelTimer)
	timer.GET("/status", server.timerStatus)

	presets := api.Group("/presets")
	presets.GET("", server.listPresets)
	presets.POST("", server.createPreset)
	presets.PUT("/:id", server.updatePreset)
	presets.DELETE("/:id", server.deletePreset)
	presets.POST("/reorder", server.reorderPresets)

	api.GET("/settings/last", server.lastSettings)
	api.PUT("/settings/last", server.saveLastSettings)
	api.GET("/ui/route", server.appState)
	api.PUT("/ui/route", server.saveAppState)
	api.POST("/sync", server.forceSync)

	return engine
}
