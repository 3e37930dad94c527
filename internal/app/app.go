package app

import (
	"github.com/carousell/ct-go/pkg/logger"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap/zapcore"

	"github.com/Ahnaf-Tariq/echochat-server/internal/config"
	"github.com/Ahnaf-Tariq/echochat-server/internal/repo/mongodb"
	"github.com/Ahnaf-Tariq/echochat-server/internal/server"
	"github.com/Ahnaf-Tariq/echochat-server/internal/usecase"
	"github.com/Ahnaf-Tariq/echochat-server/internal/ws"
)

func Invoke(funcs ...any) *fx.App {
	log := logger.MustNamed("app")
	conf := config.MustLoad()
	log.Debugw("config loaded", log.Reflect("config", conf))
	return fx.New(
		fx.WithLogger(func() fxevent.Logger {
			l := &fxevent.ZapLogger{
				Logger: log.Unwrap().Desugar(),
			}
			l.UseLogLevel(zapcore.DebugLevel)
			return l
		}),
		fx.Provide(
			newMongoDB,
			newRedisClient,
			newPresenceStore,
			newMediaStore,
			newPublisher,

			ws.NewHub,
			func(h *ws.Hub) usecase.Broadcaster { return h },

			mongodb.NewUserRepository,
			mongodb.NewMessageRepository,
			mongodb.NewGroupRepository,
			mongodb.NewGroupMessageRepository,

			usecase.NewAuthUsecase,
			usecase.NewChatUsecase,
			usecase.NewGroupUsecase,
			usecase.NewPresenceUsecase,
			func(p usecase.PresenceUsecase) usecase.TypingStopper { return p },

			server.NewHandler,
			server.NewAuthController,
			server.NewChatController,
			server.NewGroupController,
			server.NewPresenceController,
			server.NewSocketHandler,
		),
		fx.Supply(conf),
		fx.Invoke(funcs...),
	)
}
