package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"routemap/internal/hub"
	"routemap/internal/manifest"
	"routemap/internal/session"
	"routemap/internal/store"
)

type WSHandler struct {
	hub         *hub.Hub
	catalog     *manifest.Catalog
	resolver    store.Resolver
	sendBuffer  int
	sendTimeout time.Duration
	logger      *slog.Logger
}

func NewWSHandler(h *hub.Hub, catalog *manifest.Catalog, resolver store.Resolver, sendBuffer int, sendTimeout time.Duration, logger *slog.Logger) *WSHandler {
	return &WSHandler{
		hub:         h,
		catalog:     catalog,
		resolver:    resolver,
		sendBuffer:  sendBuffer,
		sendTimeout: sendTimeout,
		logger:      logger,
	}
}

type WSMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type TogglePayload struct {
	RelationID string `json:"relationId"`
	Checked    bool   `json:"checked"`
}

type ToggleAllPayload struct {
	Checked bool `json:"checked"`
}

func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		h.logger.Error("websocket accept failed", "error", err)
		return
	}

	client := hub.NewClient(uuid.New().String(), h.sendBuffer, h.sendTimeout)
	sess := session.New(client, h.catalog.Manifest(), h.resolver, h.logger)

	h.hub.Register(client)
	ServerStats.IncWSConnections()
	defer ServerStats.DecWSConnections()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	go h.writeLoop(ctx, conn, client)

	if err := sess.SendSnapshot(); err != nil {
		h.logger.Debug("failed to send snapshot", "client_id", client.ID, "error", err)
	}

	h.readLoop(ctx, conn, client, sess)

	// In-flight fetches are abandoned with the page.
	cancel()
	sess.Wait()
}

func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, client *hub.Client, sess *session.Session) {
	defer func() {
		h.hub.Unregister(client)
		conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		msgType, data, err := conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != websocket.StatusNormalClosure {
				h.logger.Debug("websocket read error", "client_id", client.ID, "error", err)
			}
			return
		}
		ServerStats.IncWSMessagesIn()

		if msgType != websocket.MessageText {
			continue
		}

		var msg WSMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			h.logger.Debug("invalid message format", "client_id", client.ID, "error", err)
			continue
		}

		switch msg.Type {
		case "toggle":
			var payload TogglePayload
			if err := json.Unmarshal(msg.Payload, &payload); err != nil || payload.RelationID == "" {
				continue
			}
			sess.Toggle(ctx, payload.RelationID, payload.Checked)

		case "toggleAll":
			var payload ToggleAllPayload
			if err := json.Unmarshal(msg.Payload, &payload); err != nil {
				continue
			}
			sess.ToggleAll(ctx, payload.Checked)

		case "ping":
			sess.Pong()
		}
	}
}

func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, client *hub.Client) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-client.Done():
			conn.Close(websocket.StatusGoingAway, "session closed")
			return

		case msg := <-client.Send:
			writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err := conn.Write(writeCtx, websocket.MessageText, msg)
			cancel()
			if err != nil {
				return
			}
			ServerStats.IncWSMessagesOut()

		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err := conn.Ping(pingCtx)
			cancel()
			if err != nil {
				return
			}
		}
	}
}
