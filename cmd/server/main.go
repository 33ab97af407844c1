package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/donkilove/ZYKJ-MES/internal/config"
	"github.com/donkilove/ZYKJ-MES/internal/handler"
	"github.com/donkilove/ZYKJ-MES/internal/middleware"
	"github.com/donkilove/ZYKJ-MES/internal/model/entity"
	"github.com/donkilove/ZYKJ-MES/internal/repository"
	"github.com/donkilove/ZYKJ-MES/internal/service"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// 加载 .env 文件
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables")
	}

	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化日志
	zapLogger, err := initLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer zapLogger.Sync()

	zapLogger.Info("Starting zykj-mes service",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
	)

	// 初始化数据库
	db, err := initDatabase(cfg.Database)
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}

	// 迁移表结构
	if err := autoMigrate(db); err != nil {
		zapLogger.Fatal("Failed to migrate database", zap.Error(err))
	}

	// 初始化基础数据：角色、工序、初始管理员
	if err := seedBaseData(db, zapLogger); err != nil {
		zapLogger.Fatal("Failed to seed base data", zap.Error(err))
	}

	// 初始化Redis
	rdb := initRedis(cfg.Redis)

	// 初始化依赖
	repos := repository.NewRepositories(db)
	services := service.NewServices(repos, db, rdb, cfg, zapLogger)
	handlers := handler.NewHandlers(services)

	// 设置Gin模式
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 创建路由
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(zapLogger))
	router.Use(middleware.CORS())
	router.Use(middleware.RequestID())
	router.Use(gzip.Gzip(gzip.DefaultCompression))

	// 注册路由
	registerRoutes(router, handlers, cfg)

	// 自动生成调度器
	schedCtx, schedCancel := context.WithCancel(context.Background())
	defer schedCancel()
	if cfg.Maintenance.AutoGenerateEnabled {
		go services.Scheduler.Run(schedCtx)
	} else {
		zapLogger.Info("Work order auto generation disabled")
	}

	// 创建HTTP服务器
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// 启动服务器
	go func() {
		zapLogger.Info("Server starting", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("Shutting down server...")
	schedCancel()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Error("Server forced to shutdown", zap.Error(err))
	}

	zapLogger.Info("Server exited")
}

func initLogger(cfg config.LogConfig) (*zap.Logger, error) {
	var zapCfg zap.Config

	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	switch cfg.Level {
	case "debug":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	}

	return zapCfg.Build()
}

func initDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode,
	)

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Info),
		// 把唯一约束冲突翻译成 gorm.ErrDuplicatedKey，
		// 工单生成的并发兜底依赖这一点
		TranslateError: true,
	}

	db, err := gorm.Open(postgres.Open(dsn), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	return db, nil
}

func autoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&entity.Role{},
		&entity.Process{},
		&entity.User{},
		&entity.Equipment{},
		&entity.MaintenanceItem{},
		&entity.MaintenancePlan{},
		&entity.MaintenanceWorkOrder{},
		&entity.MaintenanceRecord{},
	)
}

// seedBaseData 初始化角色、工序和管理员账号，幂等
func seedBaseData(db *gorm.DB, zapLogger *zap.Logger) error {
	roles := []entity.Role{
		{Code: entity.RoleSystemAdmin, Name: "系统管理员"},
		{Code: entity.RoleProductionAdmin, Name: "生产管理员"},
		{Code: entity.RoleQualityAdmin, Name: "品质管理员"},
		{Code: entity.RoleOperator, Name: "操作员"},
	}
	for i := range roles {
		if err := db.Where("code = ?", roles[i].Code).FirstOrCreate(&roles[i]).Error; err != nil {
			return fmt.Errorf("seed role %s: %w", roles[i].Code, err)
		}
	}

	for _, opt := range entity.ProcessOptions {
		proc := entity.Process{Code: opt.Code, Name: opt.Name}
		if err := db.Where("code = ?", opt.Code).FirstOrCreate(&proc).Error; err != nil {
			return fmt.Errorf("seed process %s: %w", opt.Code, err)
		}
	}

	var count int64
	if err := db.Model(&entity.User{}).Where("username = ?", "admin").Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	password := config.GetEnvOrDefault("ADMIN_INITIAL_PASSWORD", "admin123")
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	admin := entity.User{
		Username:     "admin",
		FullName:     "系统管理员",
		PasswordHash: string(hash),
		IsActive:     true,
		IsSuperuser:  true,
		Roles:        roles[:1],
	}
	if err := db.Create(&admin).Error; err != nil {
		return fmt.Errorf("seed admin user: %w", err)
	}
	zapLogger.Info("Initial admin user created", zap.String("username", admin.Username))
	return nil
}

func initRedis(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

func registerRoutes(r *gin.Engine, h *handler.Handlers, cfg *config.Config) {
	// 健康检查
	r.GET("/health/live", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/health/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// 版本信息
	r.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":    Version,
			"build_time": BuildTime,
		})
	})

	// API v1
	v1 := r.Group("/api/v1")
	{
		// 认证 (无需登录)
		v1.POST("/auth/login", h.Auth.Login)

		// 需要认证的接口
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(cfg.JWT.Secret))
		{
			// 当前用户
			authorized.GET("/auth/me", h.Auth.Me)
			authorized.POST("/auth/logout", h.Auth.Logout)

			// 工序选项
			authorized.GET("/process-options", h.Equipment.ProcessOptions)

			// 用户管理
			users := authorized.Group("/users")
			users.Use(middleware.RequireRole(entity.RoleProductionAdmin, entity.RoleQualityAdmin))
			{
				users.GET("", h.User.List)
				users.GET("/:id", h.User.Get)
			}

			// 设备管理：查询对所有登录用户开放，变更仅限生产管理员
			equipment := authorized.Group("/equipment")
			{
				equipment.GET("", h.Equipment.List)
				equipment.GET("/:id", h.Equipment.Get)

				write := equipment.Group("")
				write.Use(middleware.RequireRole(entity.RoleProductionAdmin))
				{
					write.POST("", h.Equipment.Create)
					write.PUT("/:id", h.Equipment.Update)
					write.PATCH("/:id/toggle", h.Equipment.Toggle)
					write.DELETE("/:id", h.Equipment.Delete)
				}
			}

			// 保养项目
			items := authorized.Group("/maintenance-items")
			{
				items.GET("", h.Equipment.ListItems)
				items.GET("/:id", h.Equipment.GetItem)

				write := items.Group("")
				write.Use(middleware.RequireRole(entity.RoleProductionAdmin))
				{
					write.POST("", h.Equipment.CreateItem)
					write.PUT("/:id", h.Equipment.UpdateItem)
					write.PATCH("/:id/toggle", h.Equipment.ToggleItem)
					write.DELETE("/:id", h.Equipment.DeleteItem)
				}
			}

			// 保养计划
			plans := authorized.Group("/maintenance-plans")
			{
				plans.GET("", h.Plan.List)
				plans.GET("/:id", h.Plan.Get)

				write := plans.Group("")
				write.Use(middleware.RequireRole(entity.RoleProductionAdmin))
				{
					write.POST("", h.Plan.Create)
					write.PUT("/:id", h.Plan.Update)
					write.PATCH("/:id/toggle", h.Plan.Toggle)
					write.DELETE("/:id", h.Plan.Delete)
					write.POST("/:id/generate", h.Plan.Generate)
					write.POST("/generate-due", h.Plan.GenerateDue)
				}
			}

			// 保养工单
			orders := authorized.Group("/work-orders")
			{
				orders.GET("", h.WorkOrder.List)
				orders.GET("/:id", h.WorkOrder.Get)
				orders.POST("/:id/start", h.WorkOrder.Start)
				orders.POST("/:id/complete", h.WorkOrder.Complete)
			}

			// 保养记录
			authorized.GET("/maintenance-records", h.WorkOrder.ListRecords)
			authorized.GET("/maintenance-records/export", h.WorkOrder.ExportRecords)

			// 保养附件
			attachments := authorized.Group("/attachments")
			{
				attachments.POST("", h.Upload.Upload)
				attachments.GET("/*object", h.Upload.Download)
			}
		}
	}
}
