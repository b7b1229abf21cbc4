package identity

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"securelink-backend/internal/shared/server/middleware"
	"securelink-backend/internal/shared/telemetry"
)

const (
	streamWriteWait  = 10 * time.Second
	streamPongWait   = 60 * time.Second
	streamPingPeriod = 50 * time.Second
	streamBuffer     = 16
)

// StreamHandler pushes the caller's session events over a websocket. The
// stream closes when the session that opened it signs out.
type StreamHandler struct {
	Svc      *Service
	upgrader websocket.Upgrader
}

func NewStreamHandler(svc *Service, allowedOrigins []string) *StreamHandler {
	origins := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		origins[o] = struct{}{}
	}
	return &StreamHandler{
		Svc: svc,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				_, ok := origins[origin]
				return ok
			},
		},
	}
}

func (h *StreamHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/session/events", h.stream)
}

func (h *StreamHandler) stream(c *gin.Context) {
	principal, _ := middleware.PrincipalFromContext(c)
	uid := principal.UID
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		telemetry.Warn("session_stream.upgrade_failed", map[string]any{"user_id": uid, "error": err})
		return
	}
	defer conn.Close()

	events := make(chan SessionEvent, streamBuffer)
	unsubscribe := h.Svc.SubscribeToSessionChanges(func(evt SessionEvent) {
		if evt.UID != uid {
			return
		}
		select {
		case events <- evt:
		default:
			telemetry.Warn("session_stream.dropped", map[string]any{"user_id": uid, "type": evt.Type})
		}
	})
	defer unsubscribe()

	closed := make(chan struct{})
	go readPump(conn, closed)

	ticker := time.NewTicker(streamPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case evt := <-events:
			_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := conn.WriteJSON(evt); err != nil {
				return
			}
			if evt.Type == EventSignedOut && evt.TokenID == principal.TokenID {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "signed out"),
					time.Now().Add(streamWriteWait))
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(streamWriteWait)); err != nil {
				return
			}
		case <-closed:
			return
		case <-c.Request.Context().Done():
			return
		}
	}
}

// readPump drains client frames so pongs and close frames are processed.
func readPump(conn *websocket.Conn, closed chan<- struct{}) {
	defer close(closed)
	_ = conn.SetReadDeadline(time.Now().Add(streamPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(streamPongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
