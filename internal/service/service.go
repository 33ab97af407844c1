package service

import (
	"github.com/donkilove/ZYKJ-MES/internal/config"
	"github.com/donkilove/ZYKJ-MES/internal/repository"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Services 服务集合
type Services struct {
	Auth      *AuthService
	User      *UserService
	Equipment *EquipmentService
	Plan      *PlanService
	WorkOrder *WorkOrderService
	Upload    *UploadService
	Presence  *PresenceService
	Scheduler *SchedulerService
}

// NewServices 创建服务集合
func NewServices(repos *repository.Repositories, db *gorm.DB, rdb *redis.Client, cfg *config.Config, logger *zap.Logger) *Services {
	// 初始化MinIO客户端
	var minioClient *minio.Client
	if cfg.MinIO.Endpoint != "" {
		var err error
		minioClient, err = minio.New(cfg.MinIO.Endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(cfg.MinIO.AccessKey, cfg.MinIO.SecretKey, ""),
			Secure: cfg.MinIO.UseSSL,
		})
		if err != nil {
			logger.Warn("minio init failed, attachment upload disabled", zap.Error(err))
			minioClient = nil
		}
	}

	presence := NewPresenceService(rdb, cfg.Redis.OnlineTTL)
	workOrderSvc := NewWorkOrderService(repos.WorkOrder, repos.Plan, repos.Record, repos.User, db, logger)

	return &Services{
		Auth:      NewAuthService(repos.User, presence, cfg),
		User:      NewUserService(repos.User, presence),
		Equipment: NewEquipmentService(repos.Equipment, repos.Item, repos.Plan, repos.WorkOrder, db),
		Plan:      NewPlanService(repos.Plan, repos.Equipment, repos.Item, repos.WorkOrder, repos.User),
		WorkOrder: workOrderSvc,
		Upload:    NewUploadService(minioClient, cfg.MinIO.Bucket),
		Presence:  presence,
		Scheduler: NewSchedulerService(workOrderSvc, cfg.Maintenance.AutoGenerateTime, cfg.Maintenance.AutoGenerateTimezone, logger),
	}
}
