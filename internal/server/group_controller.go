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

type GroupController interface {
	CreateGroup(c echo.Context) error
	GetGroup(c echo.Context) error
	ListGroups(c echo.Context) error
	AddMember(c echo.Context) error
	RemoveMember(c echo.Context) error
	LeaveGroup(c echo.Context) error
	DeleteGroup(c echo.Context) error
	SendMessage(c echo.Context) error
	UploadMessage(c echo.Context) error
	ListMessages(c echo.Context) error
	DeleteMessage(c echo.Context) error
	SetReaction(c echo.Context) error
}

type groupController struct {
	groupUsecase usecase.GroupUsecase
	maxUpload    int64
}

func NewGroupController(conf *config.Config, groupUsecase usecase.GroupUsecase) GroupController {
	return &groupController{
		groupUsecase: groupUsecase,
		maxUpload:    conf.Media.MaxUploadSize,
	}
}

type CreateGroupRequest struct {
	Name    string   `json:"name" validate:"required,min=1,max=64"`
	Members []string `json:"members" validate:"dive,objectid"`
}

func (gc *groupController) CreateGroup(c echo.Context) error {
	var req CreateGroupRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx := c.Request().Context()
	group, err := gc.groupUsecase.CreateGroup(ctx, pkgmdw.GetUserID(c), req.Name, req.Members)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, group)
}

func (gc *groupController) GetGroup(c echo.Context) error {
	groupID, err := groupIDParam(c)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	group, err := gc.groupUsecase.GetGroup(ctx, pkgmdw.GetUserID(c), groupID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, group)
}

func (gc *groupController) ListGroups(c echo.Context) error {
	ctx := c.Request().Context()
	groups, err := gc.groupUsecase.ListGroups(ctx, pkgmdw.GetUserID(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, groups)
}

type MemberRequest struct {
	MemberID string `json:"member_id" validate:"required,objectid"`
}

func (gc *groupController) AddMember(c echo.Context) error {
	groupID, err := groupIDParam(c)
	if err != nil {
		return err
	}

	var req MemberRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx := c.Request().Context()
	if err := gc.groupUsecase.AddMember(ctx, pkgmdw.GetUserID(c), groupID, req.MemberID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (gc *groupController) RemoveMember(c echo.Context) error {
	groupID, err := groupIDParam(c)
	if err != nil {
		return err
	}
	memberID := c.Param("member_id")
	if _, err := primitive.ObjectIDFromHex(memberID); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid member ID")
	}

	ctx := c.Request().Context()
	if err := gc.groupUsecase.RemoveMember(ctx, pkgmdw.GetUserID(c), groupID, memberID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (gc *groupController) LeaveGroup(c echo.Context) error {
	groupID, err := groupIDParam(c)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	if err := gc.groupUsecase.LeaveGroup(ctx, pkgmdw.GetUserID(c), groupID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (gc *groupController) DeleteGroup(c echo.Context) error {
	groupID, err := groupIDParam(c)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	if err := gc.groupUsecase.DeleteGroup(ctx, pkgmdw.GetUserID(c), groupID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

type SendGroupMessageRequest struct {
	Text      string `json:"text" validate:"required"`
	Timestamp int64  `json:"timestamp"`
}

func (gc *groupController) SendMessage(c echo.Context) error {
	groupID, err := groupIDParam(c)
	if err != nil {
		return err
	}

	var req SendGroupMessageRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx := c.Request().Context()
	message, err := gc.groupUsecase.SendText(ctx, pkgmdw.GetUserID(c), groupID, req.Text, req.Timestamp)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, message)
}

func (gc *groupController) UploadMessage(c echo.Context) error {
	groupID, err := groupIDParam(c)
	if err != nil {
		return err
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
	if fileHeader.Size > gc.maxUpload {
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, "file too large")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "unreadable file")
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, gc.maxUpload))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "unreadable file")
	}
	contentType := fileHeader.Header.Get("Content-Type")

	ctx := c.Request().Context()
	senderID := pkgmdw.GetUserID(c)

	send := gc.groupUsecase.SendImage
	if kind == "audio" {
		send = gc.groupUsecase.SendAudio
	}
	message, err := send(ctx, senderID, groupID, contentType, data, timestamp)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, message)
}

func (gc *groupController) ListMessages(c echo.Context) error {
	groupID, err := groupIDParam(c)
	if err != nil {
		return err
	}

	limit, beforeTS, err := paginationParams(c)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	messages, err := gc.groupUsecase.ListMessages(ctx, pkgmdw.GetUserID(c), groupID, limit, beforeTS)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, messages)
}

func (gc *groupController) DeleteMessage(c echo.Context) error {
	messageID, err := primitive.ObjectIDFromHex(c.Param("message_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid message ID")
	}

	ctx := c.Request().Context()
	if err := gc.groupUsecase.DeleteMessage(ctx, pkgmdw.GetUserID(c), messageID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (gc *groupController) SetReaction(c echo.Context) error {
	messageID, err := primitive.ObjectIDFromHex(c.Param("message_id"))
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
	message, err := gc.groupUsecase.SetReaction(ctx, pkgmdw.GetUserID(c), messageID, req.Emoji)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, message)
}

func groupIDParam(c echo.Context) (primitive.ObjectID, error) {
	groupID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return primitive.NilObjectID, echo.NewHTTPError(http.StatusBadRequest, "invalid group ID")
	}
	return groupID, nil
}
