// Package wsjsonrpc serves a jsonrpc.Dispatcher over WebSocket.
//
// Every text or binary message is one JSON-RPC payload, a single call or a
// batch, and is answered by at most one message. Notifications and
// all-notification batches get no reply. Messages on a connection are
// handled in order.
package wsjsonrpc

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/mnehpets/rpcserve/jsonrpc"
	"github.com/mnehpets/rpcserve/log"
)

// Handler upgrades HTTP requests to WebSocket connections and dispatches
// their messages.
type Handler struct {
	Dispatcher *jsonrpc.Dispatcher
	Logger     *slog.Logger
	// MaxMessageBytes caps a single inbound message; 0 means no limit.
	MaxMessageBytes int64
	Upgrader        websocket.Upgrader
}

// New creates a Handler with the default same-origin upgrader.
func New(d *jsonrpc.Dispatcher, logger *slog.Logger, maxMessageBytes int64) *Handler {
	return &Handler{
		Dispatcher:      d,
		Logger:          logger,
		MaxMessageBytes: maxMessageBytes,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger, ok := log.FromContext(r.Context())
	if !ok {
		logger = h.Logger
	}
	if logger == nil {
		logger = log.Discard()
	}

	// Upgrade writes the HTTP error response itself on failure.
	conn, err := h.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Debug("websocket upgrade failed", slog.Any("error", err))
		return
	}
	defer conn.Close() //nolint:errcheck

	if h.MaxMessageBytes > 0 {
		conn.SetReadLimit(h.MaxMessageBytes)
	}

	logger = logger.With(slog.String("conn_id", uuid.NewString()))
	ctx := log.WithContext(r.Context(), logger)
	logger.Info("websocket connected", slog.String("remote_addr", r.RemoteAddr))

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Warn("websocket read failed", slog.Any("error", err))
			}
			logger.Info("websocket closed")
			return
		}

		out := h.Dispatcher.DispatchMessage(ctx, payload)
		if out.Payload == nil {
			continue
		}
		if err := conn.WriteJSON(out.Payload); err != nil {
			logger.Warn("websocket write failed", slog.Any("error", err))
			return
		}
	}
}
