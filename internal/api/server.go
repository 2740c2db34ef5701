package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/acuvio/camlink/internal/camera"
	"github.com/acuvio/camlink/internal/dispatch"
	"github.com/acuvio/camlink/internal/logger"
	"github.com/acuvio/camlink/internal/sdk"
	"github.com/acuvio/camlink/internal/sink"
)

// Event is one entry on the websocket event stream.
type Event struct {
	Type   string                   `json:"type"`
	Device *camera.DeviceDescriptor `json:"device,omitempty"`
	ID     string                   `json:"id,omitempty"`
	State  string                   `json:"state,omitempty"`
	Error  string                   `json:"error,omitempty"`
}

// Server exposes the device registry and one camera session over HTTP:
// REST control, a websocket event stream, and the MJPEG preview.
type Server struct {
	router   *mux.Router
	registry *camera.DeviceRegistry
	session  *camera.CameraSession
	loop     dispatch.Loop
	preview  *sink.MJPEGSink
	upgrader websocket.Upgrader

	events chan Event
	subs   map[*websocket.Conn]chan Event
	subOps chan func()
}

// NewServer creates the API server and subscribes it to registry and
// session events. preview may be nil.
func NewServer(registry *camera.DeviceRegistry, session *camera.CameraSession, loop dispatch.Loop, preview *sink.MJPEGSink) *Server {
	s := &Server{
		router:   mux.NewRouter(),
		registry: registry,
		session:  session,
		loop:     loop,
		preview:  preview,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		events: make(chan Event, 16),
		subs:   make(map[*websocket.Conn]chan Event),
		subOps: make(chan func()),
	}

	registry.OnDeviceAdded(func(d camera.DeviceDescriptor) {
		s.publish(Event{Type: "device_added", Device: &d})
	})
	registry.OnDeviceRemoved(func(id string) {
		s.publish(Event{Type: "device_removed", ID: id})
	})
	session.OnState(func(st camera.SessionState) {
		s.publish(Event{Type: "session_state", State: st.String()})
	})
	session.OnError(func(err error) {
		s.publish(Event{Type: "error", Error: err.Error()})
	})

	s.setupRoutes()
	go s.fanout()
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/devices", s.handleDevices).Methods("GET")

	api.HandleFunc("/session", s.handleSession).Methods("GET")
	api.HandleFunc("/session/device", s.handleSetDevice).Methods("POST")
	api.HandleFunc("/session/device", s.handleClearDevice).Methods("DELETE")
	api.HandleFunc("/session/start", s.handleStart).Methods("POST")
	api.HandleFunc("/session/stop", s.handleStop).Methods("POST")

	api.HandleFunc("/features/{name}", s.handleGetFeature).Methods("GET")
	api.HandleFunc("/features/{name}", s.handleSetFeature).Methods("PUT")

	api.HandleFunc("/events", s.handleEvents)
	api.HandleFunc("/health", s.handleHealth).Methods("GET")

	if s.preview != nil {
		s.router.Handle("/stream", s.preview).Methods("GET")
	}
}

// Router returns the configured handler, for tests and embedding.
func (s *Server) Router() http.Handler { return s.router }

// Start serves HTTP on the given port until the listener fails.
func (s *Server) Start(port int) error {
	addr := fmt.Sprintf(":%d", port)
	logger.WithComponent("api").Info().Str("addr", addr).Msg("http server listening")
	return http.ListenAndServe(addr, s.router)
}

// runOnLoop executes fn on the owner loop and waits for its result, since
// session transitions are serialized there.
func (s *Server) runOnLoop(fn func() error) error {
	errCh := make(chan error, 1)
	if err := s.loop.Post(func() { errCh <- fn() }); err != nil {
		return err
	}
	select {
	case err := <-errCh:
		return err
	case <-time.After(10 * time.Second):
		return camera.ErrShutdownTimeout
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := s.registry.Refresh()
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, devices)
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{
		"state": s.session.State().String(),
		"drops": s.session.Drops(),
	}
	if d := s.session.Device(); !d.IsZero() {
		resp["device"] = d
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSetDevice(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ID == "" {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	devices, err := s.registry.Refresh()
	if err != nil {
		s.writeError(w, err)
		return
	}
	var desc *camera.DeviceDescriptor
	for i := range devices {
		if devices[i].ID == req.ID {
			desc = &devices[i]
			break
		}
	}
	if desc == nil {
		s.writeError(w, camera.ErrDeviceNotFound)
		return
	}
	if err := s.runOnLoop(func() error { return s.session.SetDevice(desc) }); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"state": s.session.State().String()})
}

func (s *Server) handleClearDevice(w http.ResponseWriter, r *http.Request) {
	if err := s.runOnLoop(func() error { return s.session.SetDevice(nil) }); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"state": s.session.State().String()})
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	if err := s.runOnLoop(s.session.Start); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"state": s.session.State().String()})
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	if err := s.runOnLoop(s.session.Stop); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"state": s.session.State().String()})
}

func (s *Server) handleGetFeature(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	feature, err := s.session.Feature(name)
	if err != nil {
		s.writeError(w, err)
		return
	}
	value, err := feature.Get()
	if err != nil {
		s.writeError(w, err)
		return
	}
	info, err := feature.Range()
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"name":     name,
		"value":    value.String(),
		"kind":     info.Kind.String(),
		"writable": info.Writable,
		"min":      info.Min,
		"max":      info.Max,
		"enum":     info.Enum,
	})
}

func (s *Server) handleSetFeature(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	var req struct {
		Value interface{} `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	feature, err := s.session.Feature(name)
	if err != nil {
		s.writeError(w, err)
		return
	}
	value, err := featureValueFromJSON(req.Value)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := feature.Set(value); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"name": name, "value": value.String()})
}

// featureValueFromJSON maps a decoded JSON value to a feature value; the
// feature handle coerces it to the device's kind.
func featureValueFromJSON(v interface{}) (sdk.FeatureValue, error) {
	switch val := v.(type) {
	case float64:
		if val == float64(int64(val)) {
			return sdk.IntValue(int64(val)), nil
		}
		return sdk.FloatValue(val), nil
	case bool:
		return sdk.BoolValue(val), nil
	case string:
		return sdk.StringValue(val), nil
	default:
		return sdk.FeatureValue{}, fmt.Errorf("unsupported feature value %T", v)
	}
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	ch := make(chan Event, 16)
	s.subOps <- func() { s.subs[conn] = ch }
	defer func() {
		s.subOps <- func() {
			delete(s.subs, conn)
			close(ch)
		}
		conn.Close()
	}()

	for ev := range ch {
		if err := conn.WriteJSON(ev); err != nil {
			return
		}
	}
}

// fanout serializes event broadcast and subscriber changes.
func (s *Server) fanout() {
	for {
		select {
		case op := <-s.subOps:
			op()
		case ev := <-s.events:
			for _, ch := range s.subs {
				select {
				case ch <- ev:
				default:
					// Slow subscriber, drop the event.
				}
			}
		}
	}
}

func (s *Server) publish(ev Event) {
	select {
	case s.events <- ev:
	default:
		logger.WithComponent("api").Warn().Str("type", ev.Type).Msg("event buffer full, dropping")
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.WithComponent("api").Error().Err(err).Msg("failed to encode response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, camera.ErrRunnerNotReady):
		status = http.StatusServiceUnavailable
	case errors.Is(err, camera.ErrDeviceNotFound):
		status = http.StatusNotFound
	case errors.Is(err, camera.ErrDeviceBusy),
		errors.Is(err, camera.ErrInvalidState),
		errors.Is(err, camera.ErrBusy),
		errors.Is(err, camera.ErrNoDevice):
		status = http.StatusConflict
	case errors.Is(err, camera.ErrFeatureUnavailable):
		status = http.StatusNotFound
	case errors.Is(err, camera.ErrFeatureRange),
		errors.Is(err, camera.ErrFeatureType):
		status = http.StatusBadRequest
	}
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}
