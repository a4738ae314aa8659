// Package app implements the intent gateway: the HTTP/websocket surface a
// front end uses to drive the controller. It carries discrete intents over
// plain POST endpoints and, while manual mode is active, raw key down/up
// events over the websocket. It never bypasses facade validation.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"GroundLink/internal/autonav"
	"GroundLink/internal/controller"
	"GroundLink/internal/manual"
	"GroundLink/internal/model"
)

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

// Gateway exposes the controller over HTTP and pushes status snapshots to
// websocket clients whenever an intent changes state.
type Gateway struct {
	ctrl   *controller.Controller
	logger *zap.Logger

	mu      sync.Mutex
	clients map[*websocket.Conn]bool
	server  *http.Server
}

// NewGateway builds a gateway around the controller facade.
func NewGateway(ctrl *controller.Controller, logger *zap.Logger) *Gateway {
	return &Gateway{ctrl: ctrl, logger: logger, clients: map[*websocket.Conn]bool{}}
}

// Handler returns the route table; split out so tests can drive the gateway
// through httptest without binding a port.
func (g *Gateway) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/connect", g.handleConnect)
	mux.HandleFunc("POST /api/disconnect", g.handleDisconnect)
	mux.HandleFunc("POST /api/fly", g.handleFly)
	mux.HandleFunc("POST /api/stop", g.handleStop)
	mux.HandleFunc("POST /api/altitude", g.handleAltitude)
	mux.HandleFunc("POST /api/override", g.handleOverride)
	mux.HandleFunc("POST /api/manual", g.handleManual)
	mux.HandleFunc("GET /api/status", g.handleStatus)
	mux.HandleFunc("GET /ws", g.handleWS)
	return mux
}

// Start serves the gateway on addr, blocking until Shutdown or failure.
func (g *Gateway) Start(addr string) error {
	g.server = &http.Server{Addr: addr, Handler: g.Handler()}
	g.logger.Info("intent gateway listening", zap.String("addr", addr))
	err := g.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops the HTTP server and drops websocket clients.
func (g *Gateway) Shutdown(ctx context.Context) error {
	g.mu.Lock()
	for c := range g.clients {
		_ = c.Close()
	}
	g.clients = map[*websocket.Conn]bool{}
	srv := g.server
	g.mu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

// writeErr maps facade errors to HTTP status codes.
func (g *Gateway) writeErr(w http.ResponseWriter, err error) {
	code := http.StatusBadRequest
	switch {
	case errors.Is(err, controller.ErrManualControlActive):
		code = http.StatusConflict
	case errors.Is(err, controller.ErrNotConnected):
		code = http.StatusConflict
	case errors.Is(err, controller.ErrTransportFailure) || errors.Is(err, controller.ErrUnresponsive):
		code = http.StatusBadGateway
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(model.ErrorResponse{Error: err.Error()})
}

func (g *Gateway) writeStatus(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(g.ctrl.Status())
	g.broadcastStatus()
}

func (g *Gateway) handleConnect(w http.ResponseWriter, r *http.Request) {
	if err := g.ctrl.Connect(); err != nil {
		g.writeErr(w, err)
		return
	}
	g.writeStatus(w)
}

func (g *Gateway) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	g.ctrl.Disconnect()
	g.writeStatus(w)
}

func (g *Gateway) handleFly(w http.ResponseWriter, r *http.Request) {
	var req model.FlyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		g.writeErr(w, err)
		return
	}
	shape, err := autonav.ParseShape(req.Shape)
	if err != nil {
		g.writeErr(w, err)
		return
	}
	if err := g.ctrl.Fly(shape); err != nil {
		g.writeErr(w, err)
		return
	}
	g.writeStatus(w)
}

func (g *Gateway) handleStop(w http.ResponseWriter, r *http.Request) {
	if err := g.ctrl.Stop(); err != nil {
		g.writeErr(w, err)
		return
	}
	g.writeStatus(w)
}

func (g *Gateway) handleAltitude(w http.ResponseWriter, r *http.Request) {
	var req model.AltitudeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		g.writeErr(w, err)
		return
	}
	if err := g.ctrl.SetAltitude(req.AltitudeMm); err != nil {
		g.writeErr(w, err)
		return
	}
	g.writeStatus(w)
}

func (g *Gateway) handleOverride(w http.ResponseWriter, r *http.Request) {
	var req model.OverrideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		g.writeErr(w, err)
		return
	}
	if err := g.ctrl.SetOverride(req.Enable); err != nil {
		g.writeErr(w, err)
		return
	}
	g.writeStatus(w)
}

// handleManual begins or ends keyboard control: {"enable": true|false}.
func (g *Gateway) handleManual(w http.ResponseWriter, r *http.Request) {
	var req model.OverrideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		g.writeErr(w, err)
		return
	}
	if req.Enable {
		if err := g.ctrl.BeginManual(); err != nil {
			g.writeErr(w, err)
			return
		}
	} else {
		g.ctrl.EndManual()
	}
	g.writeStatus(w)
}

func (g *Gateway) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(g.ctrl.Status())
}

// handleWS upgrades the connection, pushes the current status and then
// consumes key events until the client goes away.
func (g *Gateway) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	st := g.ctrl.Status()
	// The initial push happens under the same lock that serializes broadcast
	// writes: the connection must never see two concurrent writers.
	g.mu.Lock()
	g.clients[conn] = true
	_ = conn.WriteJSON(st)
	g.mu.Unlock()

	go g.readKeys(conn)
}

func (g *Gateway) readKeys(conn *websocket.Conn) {
	defer func() {
		g.mu.Lock()
		delete(g.clients, conn)
		g.mu.Unlock()
		_ = conn.Close()
	}()
	for {
		var ev model.KeyEvent
		if err := conn.ReadJSON(&ev); err != nil {
			return
		}
		in, err := manual.ParseInput(ev.Input)
		if err != nil {
			g.logger.Debug("ignoring key event", zap.String("input", ev.Input), zap.Error(err))
			continue
		}
		switch ev.Type {
		case "down":
			g.ctrl.KeyDown(in)
		case "up":
			g.ctrl.KeyUp(in)
		default:
			g.logger.Debug("ignoring key event", zap.String("type", ev.Type))
		}
	}
}

// broadcastStatus pushes the current snapshot to every websocket client.
func (g *Gateway) broadcastStatus() {
	st := g.ctrl.Status()
	g.mu.Lock()
	defer g.mu.Unlock()
	for c := range g.clients {
		if err := c.WriteJSON(st); err != nil {
			_ = c.Close()
			delete(g.clients, c)
		}
	}
}
