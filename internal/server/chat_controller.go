package server

import (
	"io"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Ahnaf-Tariq/echochat-server/internal/config"
	pkgmdw "github.com/Ahnaf-Tariq/echochat-server/internal/server/middleware"
	"github.com/Ahnaf-Tariq/echochat-server/internal/usecase"
)

type ChatController interface {
	SendMessage(c echo.Context) error
	UploadMessage(c echo.Context) error
	ListMessages(c echo.Context) error
	DeleteMessage(c echo.Context) error
	SetReaction(c echo.Context) error
	DeleteReaction(c echo.Context) error
	MarkSeen(c echo.Context) error
}

type chatController struct {
	chatUsecase usecase.ChatUsecase
	maxUpload   int64
}

func NewChatController(conf *config.Config, chatUsecase usecase.ChatUsecase) ChatController {
	return &chatController{
		chatUsecase: chatUsecase,
		maxUpload:   conf.Media.MaxUploadSize,
	}
}

type SendMessageRequest struct {
	ReceiverID string `json:"receiver_id" validate:"required,objectid"`
	Text       string `json:"text" validate:"required"`
	Timestamp  int64  `json:"timestamp"`
}

func (cc *chatController) SendMessage(c echo.Context) error {
	var req SendMessageRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx := c.Request().Context()
	message, err := cc.chatUsecase.SendText(ctx, pkgmdw.GetUserID(c), req.ReceiverID, req.Text, req.Timestamp)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, message)
}

// UploadMessage accepts a multipart form with a "file" part and a "kind" of
// image or audio, stores the media, and sends the resulting message.
func (cc *chatController) UploadMessage(c echo.Context) error {
	receiverID := c.FormValue("receiver_id")
	if _, err := primitive.ObjectIDFromHex(receiverID); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid receiver ID")
	}
	kind := c.FormValue("kind")
	if kind != "image" && kind != "audio" {
		return echo.NewHTTPError(http.StatusBadRequest, "kind must be image or audio")
	}

	var timestamp int64
	if ts := c.FormValue("timestamp"); ts != "" {
		parsed, err := strconv.ParseInt(ts, 10, 64)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid timestamp")
		}
		timestamp = parsed
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "missing file")
	}
	if fileHeader.Size > cc.maxUpload {
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, "file too large")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "unreadable file")
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, cc.maxUpload))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "unreadable file")
	}
	contentType := fileHeader.Header.Get("Content-Type")

	ctx := c.Request().Context()
	senderID := pkgmdw.GetUserID(c)

	send := cc.chatUsecase.SendImage
	if kind == "audio" {
		send = cc.chatUsecase.SendAudio
	}
	message, err := send(ctx, senderID, receiverID, contentType, data, timestamp)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, message)
}

func (cc *chatController) ListMessages(c echo.Context) error {
	peerID := c.Param("peer_id")
	if _, err := primitive.ObjectIDFromHex(peerID); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid peer ID")
	}

	limit, beforeTS, err := paginationParams(c)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	messages, err := cc.chatUsecase.ListMessages(ctx, pkgmdw.GetUserID(c), peerID, limit, beforeTS)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, messages)
}

func (cc *chatController) DeleteMessage(c echo.Context) error {
	messageID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid message ID")
	}

	ctx := c.Request().Context()
	if err := cc.chatUsecase.DeleteMessage(ctx, pkgmdw.GetUserID(c), messageID); err != nil {
		return err
	}

	return c.NoContent(http.StatusNoContent)
}

type ReactionRequest struct {
	Emoji string `json:"emoji" validate:"required"`
}

func (cc *chatController) SetReaction(c echo.Context) error {
	messageID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid message ID")
	}

	var req ReactionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx := c.Request().Context()
	message, err := cc.chatUsecase.SetReaction(ctx, pkgmdw.GetUserID(c), messageID, req.Emoji)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, message)
}

func (cc *chatController) DeleteReaction(c echo.Context) error {
	messageID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid message ID")
	}
	emoji := c.QueryParam("emoji")
	if emoji == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing emoji")
	}

	ctx := c.Request().Context()
	message, err := cc.chatUsecase.DeleteReaction(ctx, pkgmdw.GetUserID(c), messageID, emoji)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, message)
}

func (cc *chatController) MarkSeen(c echo.Context) error {
	peerID := c.Param("peer_id")
	if _, err := primitive.ObjectIDFromHex(peerID); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid peer ID")
	}

	ctx := c.Request().Context()
	count, err := cc.chatUsecase.MarkSeen(ctx, pkgmdw.GetUserID(c), peerID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]int64{"seen": count})
}

func paginationParams(c echo.Context) (int64, *int64, error) {
	var limit int64
	if raw := c.QueryParam("limit"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return 0, nil, echo.NewHTTPError(http.StatusBadRequest, "invalid limit")
		}
		limit = parsed
	}

	var beforeTS *int64
	if raw := c.QueryParam("before"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return 0, nil, echo.NewHTTPError(http.StatusBadRequest, "invalid before timestamp")
		}
		beforeTS = &parsed
	}
	return limit, beforeTS, nil
}
