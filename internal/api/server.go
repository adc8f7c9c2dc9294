package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/DataDog/datadog-go/statsd"
	"github.com/go-playground/validator/v10"
	"github.com/hibiken/asynq"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/sirupsen/logrus"

	"github.com/buidl-renaissance/appblocks/config"
	"github.com/buidl-renaissance/appblocks/internal/logging"
	"github.com/buidl-renaissance/appblocks/internal/service"
	"github.com/buidl-renaissance/appblocks/internal/storage"
	"github.com/buidl-renaissance/appblocks/internal/storage/postgres"
)

type Server struct {
	cfg         config.ServerConfig
	db          storage.DatabaseStorage
	redis       *storage.RedisStorage
	client      *asynq.Client
	sdClient    *statsd.Client
	catalog     service.Catalog
	appBlocks   service.AppBlocks
	installer   service.Installer
	registry    service.Registry
	authService service.Auth
	logger      *logrus.Logger
}

// NewServer returns a new server.
func NewServer(
	cfg config.ServerConfig,
	db *postgres.PostgresBackend,
	redis *storage.RedisStorage,
	client *asynq.Client,
	sdClient *statsd.Client,
) *Server {
	logger := logrus.WithField("service", "appblocks-server").Logger

	catalogService, err := service.NewCatalogService(db)
	if err != nil {
		logrus.Fatalf("Failed to initialize catalog service: %v", err)
	}

	appBlockService, err := service.NewAppBlockService(db)
	if err != nil {
		logrus.Fatalf("Failed to initialize app block service: %v", err)
	}

	installationService, err := service.NewInstallationService(db, catalogService)
	if err != nil {
		logrus.Fatalf("Failed to initialize installation service: %v", err)
	}

	registryService, err := service.NewRegistryService(db)
	if err != nil {
		logrus.Fatalf("Failed to initialize registry service: %v", err)
	}

	authService, err := service.NewAuthService(db, client, cfg.Server.JWTSecret)
	if err != nil {
		logrus.Fatalf("Failed to initialize auth service: %v", err)
	}

	return &Server{
		cfg:         cfg,
		db:          db,
		redis:       redis,
		client:      client,
		sdClient:    sdClient,
		catalog:     catalogService,
		appBlocks:   appBlockService,
		installer:   installationService,
		registry:    registryService,
		authService: authService,
		logger:      logger,
	}
}

func (s *Server) StartServer() error {
	e := echo.New()
	e.Logger.SetLevel(log.DEBUG)
	e.Use(logging.LoggerMiddleware(s.logger))
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit("2M")) // set maximum allowed size for a request body to 2M
	e.Use(s.statsdMiddleware)
	e.Use(middleware.CORS())
	limiterStore := middleware.NewRateLimiterMemoryStoreWithConfig(
		middleware.RateLimiterMemoryStoreConfig{Rate: 5, Burst: 30, ExpiresIn: 5 * time.Minute},
	)
	e.Use(middleware.RateLimiter(limiterStore))

	e.Validator = &RequestValidator{Validator: validator.New()}

	e.GET("/ping", s.Ping)

	// Auth endpoints - session issuance is gateway-only
	e.POST("/auth/session", s.CreateSession)
	e.POST("/auth/token", s.IssueAccessToken, s.sessionAuthMiddleware)

	tokenGroup := e.Group("/auth/tokens", s.sessionAuthMiddleware)
	tokenGroup.GET("", s.GetActiveTokens)
	tokenGroup.DELETE("/all", s.RevokeAllTokens)
	tokenGroup.DELETE("/:tokenId", s.RevokeToken)

	// Connector catalog - public reads
	connectorsGroup := e.Group("/connectors")
	connectorsGroup.GET("", s.GetConnectors)
	connectorsGroup.GET("/:connectorId", s.GetConnector)
	connectorsGroup.GET("/:connectorId/scopes", s.GetConnectorScopes)
	connectorsGroup.GET("/:connectorId/recipes", s.GetConnectorRecipes)
	connectorsGroup.GET("/:connectorId/consent", s.GetConsentView, s.sessionAuthMiddleware)

	// Registry browsing - optional auth widens visibility to own private entries
	registryGroup := e.Group("/registry/app-blocks", s.optionalSessionMiddleware)
	registryGroup.GET("", s.BrowseRegistry)
	registryGroup.GET("/:slug", s.GetRegistryEntry)

	// App block management
	blocksGroup := e.Group("/app-blocks", s.sessionAuthMiddleware)
	blocksGroup.POST("", s.CreateAppBlock)
	blocksGroup.GET("", s.GetAppBlocks)
	blocksGroup.GET("/:appBlockId", s.GetAppBlock)
	blocksGroup.DELETE("/:appBlockId", s.DeleteAppBlock)

	blocksGroup.POST("/:appBlockId/provider", s.CreateProvider)
	blocksGroup.GET("/:appBlockId/provider", s.GetProvider)
	blocksGroup.PATCH("/:appBlockId/provider", s.UpdateProvider)
	blocksGroup.PUT("/:appBlockId/provider/scopes", s.ReplaceProviderScopes)
	blocksGroup.DELETE("/:appBlockId/provider", s.DeleteProvider)

	blocksGroup.POST("/:appBlockId/registry", s.PublishRegistryEntry)
	blocksGroup.PATCH("/:appBlockId/registry", s.UpdateRegistryEntry)
	blocksGroup.DELETE("/:appBlockId/registry", s.UnpublishRegistryEntry)

	blocksGroup.POST("/:appBlockId/connectors", s.InstallConnector)
	blocksGroup.GET("/:appBlockId/connectors", s.GetConnectorInstallations)
	blocksGroup.POST("/:appBlockId/installations", s.InstallAppBlock)
	blocksGroup.GET("/:appBlockId/installations", s.GetConsumerInstallations)
	blocksGroup.GET("/:appBlockId/installations/incoming", s.GetProviderInstallations)

	// Installation lifecycle
	connInstGroup := e.Group("/connector-installations", s.sessionAuthMiddleware)
	connInstGroup.DELETE("/:installationId", s.RevokeConnectorInstallation)

	blockInstGroup := e.Group("/app-block-installations", s.sessionAuthMiddleware)
	blockInstGroup.POST("/:installationId/approve", s.ApproveInstallation)
	blockInstGroup.POST("/:installationId/reject", s.RejectInstallation)
	blockInstGroup.DELETE("/:installationId", s.RevokeAppBlockInstallation)

	return e.Start(fmt.Sprintf(":%d", s.cfg.Server.Port))
}

func (s *Server) Ping(c echo.Context) error {
	return c.String(http.StatusOK, "AppBlocks server is running")
}
