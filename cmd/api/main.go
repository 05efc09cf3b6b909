package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	_ "github.com/jhoicas/almacen-api/docs"
	"github.com/jhoicas/almacen-api/internal/application/auth"
	"github.com/jhoicas/almacen-api/internal/application/inventory"
	"github.com/jhoicas/almacen-api/internal/application/ports"
	"github.com/jhoicas/almacen-api/internal/application/report"
	"github.com/jhoicas/almacen-api/internal/application/usecase"
	"github.com/jhoicas/almacen-api/internal/domain/repository"
	"github.com/jhoicas/almacen-api/internal/infrastructure/memory"
	"github.com/jhoicas/almacen-api/internal/infrastructure/messaging"
	"github.com/jhoicas/almacen-api/internal/infrastructure/observability"
	infrapdf "github.com/jhoicas/almacen-api/internal/infrastructure/pdf"
	"github.com/jhoicas/almacen-api/internal/infrastructure/postgres"
	infraredis "github.com/jhoicas/almacen-api/internal/infrastructure/redis"
	"github.com/jhoicas/almacen-api/internal/infrastructure/xmlexport"
	httpRouter "github.com/jhoicas/almacen-api/internal/interfaces/http"
	"github.com/jhoicas/almacen-api/pkg/config"
	"github.com/jhoicas/almacen-api/pkg/logger"
)

const version = "1.0.0"

// storage repositorios y runner del backend elegido por STORAGE_DRIVER.
type storage struct {
	items     repository.ItemRepository
	locations repository.LocationRepository
	users     repository.UserRepository
	ops       repository.OperationRepository
	txRunner  inventory.TxRunner
	close     func()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:     cfg.App.Env,
		Level:   cfg.App.LogLevel,
		Service: cfg.App.Name,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("storage", cfg.Storage.Driver).
		Msg("iniciando aplicación")

	ctx := log.WithContext(context.Background())

	tp, shutdownTracing, err := observability.SetupTracing(ctx, cfg.OTel, cfg.App.Name, version)
	if err != nil {
		log.Fatal().Err(err).Msg("inicializar trazas")
	}

	st, err := openStorage(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("inicializar almacenamiento")
	}
	defer st.close()

	// Idempotencia: Redis si está configurado; si no, en memoria (una sola instancia).
	idemTTL := time.Duration(cfg.Redis.IdempotencyTTLHours) * time.Hour
	var idem ports.IdempotencyStore
	if cfg.Redis.Addr != "" {
		rdb, err := infraredis.NewClient(ctx, cfg.Redis)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a Redis")
		}
		defer rdb.Close()
		idem = infraredis.NewIdempotencyStore(rdb, idemTTL)
	} else {
		idem = memory.NewIdempotencyStore(idemTTL)
	}

	// Eventos operation.recorded: Kafka si hay brokers.
	var publisher ports.OperationEventPublisher = ports.NoopPublisher{}
	if len(cfg.Kafka.Brokers) > 0 {
		pub, err := messaging.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.OperationsTopic, cfg.App.Name, tp)
		if err != nil {
			log.Fatal().Err(err).Msg("publicador Kafka")
		}
		defer func() {
			if err := pub.Close(); err != nil {
				log.Error().Err(err).Msg("cerrar publicador Kafka")
			}
		}()
		publisher = pub
	}

	processOpUC := inventory.NewProcessOperationUseCase(st.txRunner,
		inventory.WithPublisher(publisher),
		inventory.WithNoteMaxLength(cfg.Inventory.NoteMaxLength),
		inventory.WithPublishTimeout(time.Duration(cfg.Kafka.PublishTimeoutMS)*time.Millisecond),
	)
	operationLogUC := inventory.NewOperationLogUseCase(st.ops)
	reportUC := report.NewUseCase(operationLogUC, st.items, st.users, st.locations,
		infrapdf.NewMarotoPDFGenerator(), xmlexport.NewExporter())
	itemUC := usecase.NewItemUseCase(st.items, st.txRunner)
	locationUC := usecase.NewLocationUseCase(st.locations, st.items)
	userUC := usecase.NewUserUseCase(st.users, st.ops, st.items)
	authUC := auth.NewAuthUseCase(st.users, auth.Config{
		JWT: auth.JWTConfig{
			Secret:     cfg.JWT.Secret,
			ExpMinutes: cfg.JWT.Expiration,
			Issuer:     cfg.JWT.Issuer,
		},
		AdminPasswordHash: cfg.Auth.AdminPasswordHash,
		BotSecret:         cfg.Auth.BotSecret,
	})

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())
	app.Use(httpRouter.RequestLogger(log.Zerolog()))

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "Almacén API",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name, "storage": cfg.Storage.Driver})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		AuthUC:       authUC,
		ProcessOp:    processOpUC,
		OperationLog: operationLogUC,
		ReportUC:     reportUC,
		ItemUC:       itemUC,
		LocationUC:   locationUC,
		UserUC:       userUC,
		Idempotency:  idem,
		JWTSecret:    cfg.JWT.Secret,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("vaciar trazas")
	}

	log.Info().Msg("aplicación detenida")
}

func openStorage(ctx context.Context, cfg *config.Config) (*storage, error) {
	if cfg.Storage.Driver == config.StorageDriverMemory {
		store := memory.NewStore()
		return &storage{
			items:     store.Items(),
			locations: store.Locations(),
			users:     store.Users(),
			ops:       store.Operations(),
			txRunner:  memory.NewTxRunner(store),
			close:     func() {},
		}, nil
	}

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		return nil, err
	}
	if cfg.DB.Migrate {
		if err := postgres.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
	}
	return &storage{
		items:     postgres.NewItemRepository(pool),
		locations: postgres.NewLocationRepository(pool),
		users:     postgres.NewUserRepository(pool),
		ops:       postgres.NewOperationRepository(pool),
		txRunner:  postgres.NewTxRunner(pool),
		close:     pool.Close,
	}, nil
}
