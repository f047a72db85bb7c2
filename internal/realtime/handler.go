package realtime

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"garage-backend/internal/cache"
	"garage-backend/internal/metrics"
	"garage-backend/internal/session"
	"garage-backend/pkg/utils"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // access is gated by the token, not the origin
	},
}

// Fetcher loads the full current collection of a table.
type Fetcher func(ctx context.Context) (interface{}, error)

// Identifier extracts the authenticated user id from a request.
type Identifier interface {
	UserIDFromRequest(r *http.Request) (string, error)
}

// Message is what subscribers receive.
type Message struct {
	Type       string              `json:"type"` // change, snapshot, session
	Table      string              `json:"table,omitempty"`
	Change     *Change             `json:"change,omitempty"`
	Rows       json.RawMessage     `json:"rows,omitempty"`
	Session    *session.Session    `json:"session,omitempty"`
	Navigation *session.Navigation `json:"navigation,omitempty"`
}

// Handler serves GET /ws?table=<name>[&snapshot=1] and GET /ws?table=auth.
// Every connection owns exactly one channel.
type Handler struct {
	bus      Bus
	ident    Identifier
	sessions *session.Controller
	fetchers map[string]Fetcher
}

func NewHandler(bus Bus, ident Identifier, sessions *session.Controller, fetchers map[string]Fetcher) *Handler {
	return &Handler{bus: bus, ident: ident, sessions: sessions, fetchers: fetchers}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID, err := h.ident.UserIDFromRequest(r)
	if err != nil {
		utils.Error(w, http.StatusUnauthorized, "Invalid or expired token")
		return
	}

	table := r.URL.Query().Get("table")
	if table != "auth" {
		if _, ok := h.fetchers[table]; !ok {
			utils.Error(w, http.StatusBadRequest, "unknown table")
			return
		}
		// the auth stream stays open to deactivated accounts, data feeds do not
		s := h.sessions.Resolve(r.Context(), userID)
		if s.State == session.Inactive {
			utils.Error(w, http.StatusForbidden, "account deactivated")
			return
		}
		if table == TableProfiles && !session.CanManageTeam(s.Role) {
			utils.Error(w, http.StatusForbidden, "only administrators can manage the team")
			return
		}
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[Realtime] Upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.WithoutCancel(r.Context()))
	defer cancel()
	go readPump(conn, cancel)

	if table == "auth" {
		h.serveAuth(ctx, conn, userID)
		return
	}
	h.serveTable(ctx, conn, table, r.URL.Query().Get("snapshot") == "1")
}

func (h *Handler) serveTable(ctx context.Context, conn *websocket.Conn, table string, snapshot bool) {
	msgs, unsubscribe, err := h.bus.Subscribe(ctx, tableTopic(table))
	if err != nil {
		log.Printf("[Realtime] Subscribe %s failed: %v", table, err)
		return
	}
	defer unsubscribe()

	metrics.RealtimeSubscribers.WithLabelValues(table).Inc()
	defer metrics.RealtimeSubscribers.WithLabelValues(table).Dec()

	if snapshot && !h.pushSnapshot(ctx, conn, table) {
		return
	}

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !ping(conn) {
				return
			}
		case payload, ok := <-msgs:
			if !ok {
				return
			}
			var ch Change
			if err := json.Unmarshal(payload, &ch); err != nil {
				continue
			}
			if !write(conn, Message{Type: "change", Table: table, Change: &ch}) {
				return
			}
			metrics.RealtimeNotifications.WithLabelValues(table).Inc()
			if snapshot && !h.pushSnapshot(ctx, conn, table) {
				return
			}
		}
	}
}

// pushSnapshot sends the whole collection, served from the shared cache
// when another connection already fetched it at the current version.
func (h *Handler) pushSnapshot(ctx context.Context, conn *websocket.Conn, table string) bool {
	rows, version, ok := cache.GetCachedCollection(ctx, table)
	if !ok {
		data, err := h.fetchers[table](ctx)
		if err != nil {
			log.Printf("[Realtime] Snapshot fetch %s failed: %v", table, err)
			return true
		}
		rows, err = json.Marshal(data)
		if err != nil {
			return true
		}
		cache.CacheCollection(ctx, table, version, rows)
	}
	return write(conn, Message{Type: "snapshot", Table: table, Rows: rows})
}

func (h *Handler) serveAuth(ctx context.Context, conn *websocket.Conn, userID string) {
	msgs, unsubscribe, err := h.bus.Subscribe(ctx, authTopic(userID))
	if err != nil {
		log.Printf("[Realtime] Subscribe auth failed: %v", err)
		return
	}
	defer unsubscribe()

	machine := session.NewMachine()
	current, _ := h.sessions.HandleAuthEvent(ctx, machine, session.AuthEvent{Type: session.EventSignedIn, UserID: userID})
	if !writeSession(conn, current) {
		return
	}

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !ping(conn) {
				return
			}
		case payload, ok := <-msgs:
			if !ok {
				return
			}
			var ev session.AuthEvent
			if err := json.Unmarshal(payload, &ev); err != nil {
				continue
			}
			s, err := h.sessions.HandleAuthEvent(ctx, machine, ev)
			if err != nil {
				log.Printf("[Realtime] Auth event %s ignored: %v", ev.Type, err)
				continue
			}
			if !writeSession(conn, s) {
				return
			}
			if s.State == session.Unauthenticated {
				return
			}
		}
	}
}

func writeSession(conn *websocket.Conn, s session.Session) bool {
	nav := session.NavigationFor(s)
	return write(conn, Message{Type: "session", Session: &s, Navigation: &nav})
}

func write(conn *websocket.Conn, msg Message) bool {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(msg); err != nil {
		return false
	}
	return true
}

func ping(conn *websocket.Conn) bool {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(websocket.PingMessage, nil) == nil
}

// readPump drains client frames so pongs and close frames are handled,
// and cancels the connection context when the peer goes away.
func readPump(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	conn.SetReadLimit(512)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
