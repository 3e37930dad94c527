package server

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"

	pkgmdw "github.com/Ahnaf-Tariq/echochat-server/internal/server/middleware"
	"github.com/Ahnaf-Tariq/echochat-server/internal/usecase"
)

type PresenceController interface {
	ListContacts(c echo.Context) error
	GetPresence(c echo.Context) error
	Typing(c echo.Context) error
	StopTyping(c echo.Context) error
	Heartbeat(c echo.Context) error
}

type presenceController struct {
	presenceUsecase usecase.PresenceUsecase
}

func NewPresenceController(presenceUsecase usecase.PresenceUsecase) PresenceController {
	return &presenceController{presenceUsecase: presenceUsecase}
}

func (pc *presenceController) ListContacts(c echo.Context) error {
	ctx := c.Request().Context()
	users, err := pc.presenceUsecase.ListContacts(ctx, pkgmdw.GetUserID(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, users)
}

func (pc *presenceController) GetPresence(c echo.Context) error {
	userID := c.Param("id")
	if _, err := primitive.ObjectIDFromHex(userID); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid user ID")
	}

	ctx := c.Request().Context()
	presence, err := pc.presenceUsecase.GetPresence(ctx, userID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, presence)
}

type TypingRequest struct {
	PeerID string `json:"peer_id" validate:"required,objectid"`
}

// Typing records one burst of keystrokes; the idle timer clears the state
// when the client stays silent instead of calling StopTyping.
func (pc *presenceController) Typing(c echo.Context) error {
	var req TypingRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx := c.Request().Context()
	if err := pc.presenceUsecase.TypingActivity(ctx, pkgmdw.GetUserID(c), req.PeerID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// StopTyping clears the typing state immediately, for a cleared input box.
func (pc *presenceController) StopTyping(c echo.Context) error {
	ctx := c.Request().Context()
	if err := pc.presenceUsecase.StopTyping(ctx, pkgmdw.GetUserID(c)); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (pc *presenceController) Heartbeat(c echo.Context) error {
	ctx := c.Request().Context()
	if err := pc.presenceUsecase.Heartbeat(ctx, pkgmdw.GetUserID(c)); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
