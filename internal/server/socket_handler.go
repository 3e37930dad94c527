package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	log "github.com/carousell/ct-go/pkg/logger/log_context"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Ahnaf-Tariq/echochat-server/internal/models"
	pkgmdw "github.com/Ahnaf-Tariq/echochat-server/internal/server/middleware"
	"github.com/Ahnaf-Tariq/echochat-server/internal/usecase"
	"github.com/Ahnaf-Tariq/echochat-server/internal/ws"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 45 * time.Second
	maxCommandSize = 4 << 10
)

type SocketHandler struct {
	hub             *ws.Hub
	authUsecase     usecase.AuthUsecase
	chatUsecase     usecase.ChatUsecase
	groupUsecase    usecase.GroupUsecase
	presenceUsecase usecase.PresenceUsecase
	upgrader        websocket.Upgrader
}

func NewSocketHandler(
	hub *ws.Hub,
	authUsecase usecase.AuthUsecase,
	chatUsecase usecase.ChatUsecase,
	groupUsecase usecase.GroupUsecase,
	presenceUsecase usecase.PresenceUsecase,
) *SocketHandler {
	return &SocketHandler{
		hub:             hub,
		authUsecase:     authUsecase,
		chatUsecase:     chatUsecase,
		groupUsecase:    groupUsecase,
		presenceUsecase: presenceUsecase,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// browser clients send the token as a query param, origin
			// enforcement happens at the CORS layer
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// socketCommand is what clients send upstream. Everything the server pushes
// downstream is a models.ChannelEvent envelope.
type socketCommand struct {
	Action  string `json:"action"` // join, leave, typing, stop_typing, heartbeat, mark_seen
	Channel string `json:"channel,omitempty"`
	PeerID  string `json:"peer_id,omitempty"`
}

func (sh *SocketHandler) Handle(c echo.Context) error {
	token := pkgmdw.BearerToken(c.Request().Header)
	if token == "" {
		token = c.QueryParam("token")
	}
	userID, err := sh.authUsecase.ValidateToken(token)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
	}

	conn, err := sh.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	client := ws.NewClient(userID, 0)

	// every connection listens on its own user channel for presence and
	// typing notifications aimed at it
	sh.hub.Join(models.UserChannelID(userID), client)

	log.Infow(ctx, "socket connected", "user_id", userID)

	go sh.writeLoop(conn, client)
	sh.readLoop(c, conn, client)

	sh.hub.Close(client)
	// a dropped connection cannot send further keystrokes; clear its typing
	// state instead of leaving the peer to wait out the idle timer
	if err := sh.presenceUsecase.StopTyping(ctx, userID); err != nil {
		log.Warnw(ctx, "stop typing on disconnect", "error", err, "user_id", userID)
	}
	log.Infow(ctx, "socket disconnected", "user_id", userID)
	return nil
}

func (sh *SocketHandler) readLoop(c echo.Context, conn *websocket.Conn, client *ws.Client) {
	defer conn.Close()

	conn.SetReadLimit(maxCommandSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	ctx := c.Request().Context()
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warnw(ctx, "socket read", "error", err, "user_id", client.UserID)
			}
			return
		}

		var cmd socketCommand
		if err := json.Unmarshal(data, &cmd); err != nil {
			continue
		}
		sh.handleCommand(c, client, cmd)
	}
}

func (sh *SocketHandler) handleCommand(c echo.Context, client *ws.Client, cmd socketCommand) {
	ctx := c.Request().Context()

	switch cmd.Action {
	case "join":
		if !sh.canJoin(ctx, client.UserID, cmd.Channel) {
			return
		}
		sh.hub.Join(cmd.Channel, client)
		// opening a direct conversation reads it
		if peerID, ok := directPeer(client.UserID, cmd.Channel); ok {
			if _, err := sh.chatUsecase.MarkSeen(ctx, client.UserID, peerID); err != nil {
				log.Warnw(ctx, "mark seen on join", "error", err, "user_id", client.UserID)
			}
		}
	case "leave":
		sh.hub.Leave(cmd.Channel, client)
	case "typing":
		if cmd.PeerID == "" {
			return
		}
		if err := sh.presenceUsecase.TypingActivity(ctx, client.UserID, cmd.PeerID); err != nil {
			log.Warnw(ctx, "typing activity", "error", err, "user_id", client.UserID)
		}
	case "stop_typing":
		if err := sh.presenceUsecase.StopTyping(ctx, client.UserID); err != nil {
			log.Warnw(ctx, "stop typing", "error", err, "user_id", client.UserID)
		}
	case "heartbeat":
		if err := sh.presenceUsecase.Heartbeat(ctx, client.UserID); err != nil {
			log.Warnw(ctx, "heartbeat", "error", err, "user_id", client.UserID)
		}
	case "mark_seen":
		if cmd.PeerID == "" {
			return
		}
		if _, err := sh.chatUsecase.MarkSeen(ctx, client.UserID, cmd.PeerID); err != nil {
			log.Warnw(ctx, "mark seen", "error", err, "user_id", client.UserID)
		}
	}
}

func (sh *SocketHandler) writeLoop(conn *websocket.Conn, client *ws.Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case data, ok := <-client.Send():
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// canJoin restricts joins to rooms the user participates in: their direct
// conversations, groups they are a member of, and any user's presence
// channel.
func (sh *SocketHandler) canJoin(ctx context.Context, userID, channel string) bool {
	if channel == "" {
		return false
	}
	if _, ok := directPeer(userID, channel); ok {
		return true
	}
	if id, ok := models.ParseGroupChannelID(channel); ok {
		oid, err := primitive.ObjectIDFromHex(id)
		if err != nil {
			return false
		}
		// same membership gate as the HTTP group endpoints
		if _, err := sh.groupUsecase.GetGroup(ctx, userID, oid); err != nil {
			return false
		}
		return true
	}
	if id, ok := models.ParseUserChannelID(channel); ok {
		_, err := primitive.ObjectIDFromHex(id)
		return err == nil
	}
	return false
}

// directPeer reports the other participant when channel is a direct
// conversation involving userID.
func directPeer(userID, channel string) (string, bool) {
	a, b, ok := models.ParseDirectChannelID(channel)
	if !ok {
		return "", false
	}
	switch userID {
	case a:
		return b, true
	case b:
		return a, true
	}
	return "", false
}
