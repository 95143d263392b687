// Package relay carries chat sessions over websockets.
package relay

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/cors"

	"github.com/hoangnguyen2809/chat-relay/internal/app"
	"github.com/hoangnguyen2809/chat-relay/internal/chat"
	"github.com/hoangnguyen2809/chat-relay/internal/metrics"
)

// Server accepts websocket connections and binds each one to a chat session.
type Server struct {
	cfg            app.Config
	log            *slog.Logger
	registry       *chat.Registry
	metrics        *metrics.Metrics
	metricsHandler http.Handler
	cors           *cors.Cors
	upgrader       websocket.Upgrader

	mu    sync.Mutex
	conns map[string]*conn // session ID -> connection
}

// NewServer builds a Server. metricsHandler is mounted at /metrics.
func NewServer(cfg app.Config, logger *slog.Logger, registry *chat.Registry, m *metrics.Metrics, metricsHandler http.Handler) *Server {
	s := &Server{
		cfg:            cfg,
		log:            logger,
		registry:       registry,
		metrics:        m,
		metricsHandler: metricsHandler,
		cors: cors.New(cors.Options{
			AllowedOrigins: cfg.CORSAllow,
			AllowedMethods: []string{http.MethodGet},
		}),
		conns: make(map[string]*conn),
	}
	s.upgrader = websocket.Upgrader{CheckOrigin: s.checkOrigin}
	return s
}

// Handler returns the HTTP routes with CORS applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /chat/{room}", s.HandleConnection)
	mux.HandleFunc("GET /rooms/{room}/members", s.handleMembers)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, healthResponse{Status: "ok", Sessions: s.SessionCount(), Rooms: s.registry.Len()})
	})
	if s.metricsHandler != nil {
		mux.Handle("GET /metrics", s.metricsHandler)
	}
	if s.cfg.StaticDir != "" {
		mux.Handle("GET /", http.FileServer(http.Dir(s.cfg.StaticDir)))
	}
	return s.cors.Handler(mux)
}

// checkOrigin admits non-browser clients (no Origin header) and browsers from
// the CORS allowlist.
func (s *Server) checkOrigin(r *http.Request) bool {
	if r.Header.Get("Origin") == "" {
		return true
	}
	return s.cors.OriginAllowed(r)
}

// HandleConnection upgrades the request and runs the session for the room in
// the path until the connection closes.
func (s *Server) HandleConnection(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("session.upgrade", "err", err, "remote", r.RemoteAddr)
		return
	}

	c := newConn(ws, s.cfg.SendBuffer, s.cfg.WriteTimeout, s.cfg.PongWait)
	room := s.registry.GetOrCreate(r.PathValue("room"))
	log := s.log.With("room", room.Name())
	session := chat.NewSession(s.sender(c, log), room)
	log = log.With("session", session.ID())

	s.track(session.ID(), c)
	log.Info("session.open", "remote", ws.RemoteAddr().String())

	go c.writeLoop()
	s.readLoop(ws, session, log)

	if err := session.HandleClose(); err != nil {
		log.Error("session.close.announce", "err", err)
	}
	s.untrack(session.ID())
	c.shutdown()
	<-c.writerDone
	_ = ws.Close()
	log.Info("session.close")
}

// readLoop hands inbound frames to the session one at a time. Rejected frames
// are logged and the connection stays open.
func (s *Server) readLoop(ws *websocket.Conn, session *chat.Session, log *slog.Logger) {
	ws.SetReadLimit(s.cfg.MaxMessageBytes)
	_ = ws.SetReadDeadline(time.Now().Add(s.cfg.PongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(s.cfg.PongWait))
	})

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug("session.read", "err", err)
			}
			return
		}
		s.metrics.FramesReceived.Inc()

		if err := session.HandleMessage(data); err != nil {
			s.metrics.ProtocolErrors.Inc()
			var perr *chat.ProtocolError
			switch {
			case errors.As(err, &perr):
				log.Warn("session.message.rejected", "reason", "unknown type", "type", perr.Type)
			case errors.Is(err, chat.ErrDecode):
				log.Warn("session.message.rejected", "reason", "malformed", "err", err)
			default:
				log.Error("session.message.failed", "err", err)
			}
		}
	}
}

// sender adapts c into the session's send capability, counting dropped frames.
func (s *Server) sender(c *conn, log *slog.Logger) chat.SendFunc {
	return func(data []byte) error {
		err := c.send(data)
		if err != nil {
			s.metrics.SendsDropped.Inc()
			log.Debug("session.send.dropped", "err", err)
		}
		return err
	}
}

func (s *Server) track(id string, c *conn) {
	s.mu.Lock()
	s.conns[id] = c
	s.mu.Unlock()
	s.metrics.SessionsActive.Inc()
}

func (s *Server) untrack(id string) {
	s.mu.Lock()
	delete(s.conns, id)
	s.mu.Unlock()
	s.metrics.SessionsActive.Dec()
}

// SessionCount returns the number of open connections.
func (s *Server) SessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

// Close drops every open connection. Each session then runs its normal close
// path, so remaining members still see departure notes until they go too.
func (s *Server) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.conns {
		c.fail()
	}
}

type membersResponse struct {
	Room    string    `json:"room"`
	Members []*string `json:"members"`
}

type healthResponse struct {
	Status   string `json:"status"`
	Sessions int    `json:"sessions"`
	Rooms    int    `json:"rooms"`
}

// handleMembers reports the member names of an existing room. Unknown rooms
// report no members and are not created.
func (s *Server) handleMembers(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("room")
	resp := membersResponse{Room: name, Members: []*string{}}
	if room, ok := s.registry.Lookup(name); ok {
		resp.Members = room.Members()
	}
	writeJSON(w, resp)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
