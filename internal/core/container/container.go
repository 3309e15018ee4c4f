package container

import (
	"database/sql"
	"os"

	auditLogRepo "toolroom/internal/auditlog"
	"toolroom/internal/inventory/kits"
	"toolroom/internal/inventory/tools"
	"toolroom/internal/issuance"
	"toolroom/internal/notifications"
	"toolroom/internal/repairs"
	"toolroom/internal/repository"
	"toolroom/internal/users"
	"toolroom/pkg/auditlog"
	"toolroom/pkg/security"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Container struct {
	Repository         *repository.Repository
	AuditLog           *auditlog.Auditlog
	LoginHandler       *security.LoginHandler
	ToolHandler        *tools.ToolHandler
	KitHandler         *kits.KitHandler
	IssuanceHandler    *issuance.IssuanceHandler
	IssuanceService    *issuance.IssuanceService
	Sweeper            *issuance.Sweeper
	CalibrationSweeper *tools.CalibrationSweeper
	UserHandler        *users.UsersHandler
	RepairsHandler     *repairs.Handler
	Notifier           notifications.Notifier
}

func NewAppContainer(db *sql.DB, log *zap.SugaredLogger) *Container {
	repo := repository.NewRepository(db)
	auditLogRepository := auditLogRepo.NewRepository(repo)
	auditLog := auditlog.NewAuditLog(auditLogRepository)

	toolRepo := tools.NewRepository(repo)
	kitRepo := kits.NewRepository(repo)
	userRepo := users.NewRepository(repo)
	ledgerRepo := issuance.NewIssuanceRepository(repo)
	returnRepo := issuance.NewReturnRepository(repo)

	repairsRepo := repairs.NewRepairsRepository(repo)
	repairsService := repairs.NewService(repairsRepo, log)
	repairsHandler := repairs.NewHandler(repairsService)

	notifier := buildNotifier(log, repairsService)

	issuanceService := issuance.NewIssuanceService(
		ledgerRepo, returnRepo, toolRepo, kitRepo, userRepo, notifier, log,
	)
	sweeper := issuance.NewSweeper(ledgerRepo, userRepo, notifier, log)
	calibrationSweeper := tools.NewCalibrationSweeper(toolRepo, userRepo, notifier, log)

	return &Container{
		Repository:         repo,
		AuditLog:           auditLog,
		LoginHandler:       security.NewLoginHandler(repo),
		ToolHandler:        tools.NewToolHandler(toolRepo, auditLog),
		KitHandler:         kits.NewKitHandler(kitRepo, auditLog),
		IssuanceHandler:    issuance.NewIssuanceHandler(issuanceService, ledgerRepo, returnRepo, auditLog),
		IssuanceService:    issuanceService,
		Sweeper:            sweeper,
		CalibrationSweeper: calibrationSweeper,
		UserHandler:        users.NewHandler(userRepo),
		RepairsHandler:     repairsHandler,
		Notifier:           notifier,
	}
}

// buildNotifier composes the sinks: structured log always, the repairs
// service so damaged-item reports open tickets automatically, and Redis
// pub/sub when REDIS_ADDR is configured.
func buildNotifier(log *zap.SugaredLogger, repairsService *repairs.Service) notifications.Notifier {
	sinks := []notifications.Notifier{
		notifications.NewLogNotifier(log),
		repairsService,
	}

	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: os.Getenv("REDIS_PASSWORD"),
		})
		sinks = append(sinks, notifications.NewRedisNotifier(client, os.Getenv("REDIS_EVENT_CHANNEL")))
	}

	return notifications.NewMultiNotifier(sinks...)
}
