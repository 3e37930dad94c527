package server

import (
	"context"
	"errors"
	"net/http"
	"regexp"

	"github.com/carousell/ct-go/pkg/logger"
	log "github.com/carousell/ct-go/pkg/logger/log_context"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/fx"

	"github.com/Ahnaf-Tariq/echochat-server/internal/config"
	pkgmdw "github.com/Ahnaf-Tariq/echochat-server/internal/server/middleware"
	"github.com/Ahnaf-Tariq/echochat-server/internal/usecase"
)

func StartServer(
	lc fx.Lifecycle,
	sd fx.Shutdowner,
	conf *config.Config,
	handler Controller,
	authController AuthController,
	chatController ChatController,
	groupController GroupController,
	presenceController PresenceController,
	socketHandler *SocketHandler,
	authUsecase usecase.AuthUsecase,
) {
	e := echo.New()
	e.Validator = pkgmdw.NewValidator()
	e.HTTPErrorHandler = errorHandler()

	logConfig := pkgmdw.LogRequestConfig{
		Logger: logger.MustNamed("http"),
		Enabled: func(c echo.Context) bool {
			uri := c.Request().RequestURI
			return uri != "/health" && uri != "/metrics"
		},
	}

	e.Use(pkgmdw.Metrics())
	e.Use(pkgmdw.RequestID())
	e.Use(pkgmdw.LogRequest(logConfig))
	e.Use(pkgmdw.CORS(regexp.MustCompile(conf.Server.CORSOriginPattern)))
	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			log.Errorw(c.Request().Context(), "PANIC RECOVER", "error", err, "stack", string(stack))
			return nil
		},
	}))

	e.GET("/health", handler.Health)

	api := e.Group("/api/v1")
	api.POST("/auth/signup", authController.SignUp)
	api.POST("/auth/signin", authController.SignIn)

	auth := api.Group("", pkgmdw.JWTAuth(authUsecase))
	auth.POST("/auth/signout", authController.SignOut)

	auth.GET("/users", presenceController.ListContacts)
	auth.GET("/users/:id/presence", presenceController.GetPresence)
	auth.POST("/presence/typing", presenceController.Typing)
	auth.POST("/presence/typing/stop", presenceController.StopTyping)
	auth.POST("/presence/heartbeat", presenceController.Heartbeat)

	auth.POST("/messages", chatController.SendMessage)
	auth.POST("/messages/upload", chatController.UploadMessage)
	auth.GET("/messages/:peer_id", chatController.ListMessages)
	auth.DELETE("/messages/:id", chatController.DeleteMessage)
	auth.PUT("/messages/:id/reactions", chatController.SetReaction)
	auth.DELETE("/messages/:id/reactions", chatController.DeleteReaction)
	auth.POST("/messages/:peer_id/seen", chatController.MarkSeen)

	auth.POST("/groups", groupController.CreateGroup)
	auth.GET("/groups", groupController.ListGroups)
	auth.GET("/groups/:id", groupController.GetGroup)
	auth.DELETE("/groups/:id", groupController.DeleteGroup)
	auth.POST("/groups/:id/members", groupController.AddMember)
	auth.DELETE("/groups/:id/members/:member_id", groupController.RemoveMember)
	auth.POST("/groups/:id/leave", groupController.LeaveGroup)
	auth.POST("/groups/:id/messages", groupController.SendMessage)
	auth.POST("/groups/:id/messages/upload", groupController.UploadMessage)
	auth.GET("/groups/:id/messages", groupController.ListMessages)
	auth.DELETE("/groups/messages/:message_id", groupController.DeleteMessage)
	auth.PUT("/groups/messages/:message_id/reactions", groupController.SetReaction)

	e.GET("/ws", socketHandler.Handle)

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Infow(ctx, "starting HTTP server", "addr", conf.Server.Addr)
				if err := e.Start(conf.Server.Addr); !errors.Is(err, http.ErrServerClosed) {
					sd.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return e.Shutdown(ctx)
		},
	})
}
