package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/donkilove/ZYKJ-MES/internal/middleware"
	"github.com/donkilove/ZYKJ-MES/internal/model/entity"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	TestSchema = "test_mes"
	JWTSecret  = "zykj-mes-jwt-secret-key-2026"
)

// TestEnv holds test environment resources
type TestEnv struct {
	DB     *gorm.DB
	Router *gin.Engine
	T      *testing.T
}

// projectRoot returns the project root directory by looking for go.mod
func projectRoot() string {
	_, filename, _, _ := runtime.Caller(0)
	dir := filepath.Dir(filename)
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

// loadEnv loads .env from the project root
func loadEnv() {
	root := projectRoot()
	if root != "" {
		godotenv.Load(filepath.Join(root, ".env"))
	}
}

// SetupTestDB creates a test database connection using a dedicated test schema.
// Each test gets an isolated schema that is cleaned up after the test.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	loadEnv()

	host := getEnv("DB_HOST", "127.0.0.1")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "mes")
	password := getEnv("DB_PASSWORD", "mes123")
	dbname := getEnv("DB_NAME", "zykj_mes")

	baseDSN := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	// Create a unique test schema for isolation
	schemaName := fmt.Sprintf("%s_%d", TestSchema, time.Now().UnixNano()%1000000)

	// First: create schema using a temporary connection
	setupDB, err := gorm.Open(postgres.Open(baseDSN), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to connect to database for schema setup: %v", err)
	}
	setupDB.Exec(fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", schemaName))
	sqlSetup, _ := setupDB.DB()
	sqlSetup.Close()

	// Second: open connection with search_path in DSN so ALL pooled connections use test schema
	testDSN := fmt.Sprintf("%s search_path=%s", baseDSN, schemaName)
	db, err := gorm.Open(postgres.Open(testDSN), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
		// 工单生成依赖唯一约束冲突翻译
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	// Migrate test tables
	err = db.AutoMigrate(
		&entity.Role{},
		&entity.Process{},
		&entity.User{},
		&entity.Equipment{},
		&entity.MaintenanceItem{},
		&entity.MaintenancePlan{},
		&entity.MaintenanceWorkOrder{},
		&entity.MaintenanceRecord{},
	)
	if err != nil {
		t.Fatalf("Failed to migrate test tables: %v", err)
	}

	// Cleanup on test completion
	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		if sqlDB != nil {
			sqlDB.Close()
		}
		// Reconnect to drop the schema
		cleanDB, cleanErr := gorm.Open(postgres.Open(baseDSN), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		if cleanErr == nil {
			cleanDB.Exec(fmt.Sprintf("DROP SCHEMA IF EXISTS %s CASCADE", schemaName))
			sqlClean, _ := cleanDB.DB()
			if sqlClean != nil {
				sqlClean.Close()
			}
		}
	})

	return db
}

// SetupRouter creates a gin test router
func SetupRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(gin.Recovery())
	return r
}

// AuthGroup creates an API group with JWT auth middleware for testing
func AuthGroup(r *gin.Engine, path string) *gin.RouterGroup {
	return r.Group(path, middleware.JWTAuth(JWTSecret))
}

// GenerateTestToken creates a valid JWT token for testing
func GenerateTestToken(userID uint, username string, roles, procs []string) string {
	if roles == nil {
		roles = []string{}
	}
	if procs == nil {
		procs = []string{}
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"sub":      fmt.Sprintf("%d", userID),
		"uid":      userID,
		"username": username,
		"name":     username,
		"roles":    roles,
		"procs":    procs,
		"iss":      "zykj-mes",
		"iat":      now.Unix(),
		"exp":      now.Add(24 * time.Hour).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, _ := token.SignedString([]byte(JWTSecret))
	return tokenString
}

// AdminTestToken returns a token for a system admin test user
func AdminTestToken(userID uint) string {
	return GenerateTestToken(userID, "test_admin", []string{entity.RoleSystemAdmin}, nil)
}

// DoRequest executes an HTTP request against the test router
func DoRequest(r *gin.Engine, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer
	if body != nil {
		jsonBytes, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(jsonBytes)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req, _ := http.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// ParseResponse parses the JSON response body into a handler.Response-like map
func ParseResponse(w *httptest.ResponseRecorder) map[string]interface{} {
	var result map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &result)
	return result
}

// SeedTestUser creates a test user with the given roles and processes
func SeedTestUser(t *testing.T, db *gorm.DB, username, password string, roleCodes, processCodes []string) *entity.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("Failed to hash test password: %v", err)
	}

	user := &entity.User{
		Username:     username,
		FullName:     username,
		PasswordHash: string(hash),
		IsActive:     true,
	}
	for _, code := range roleCodes {
		role := entity.Role{Code: code, Name: "role_" + code}
		if err := db.Where("code = ?", code).FirstOrCreate(&role).Error; err != nil {
			t.Fatalf("Failed to seed role %s: %v", code, err)
		}
		user.Roles = append(user.Roles, role)
	}
	for _, code := range processCodes {
		proc := entity.Process{Code: code, Name: "proc_" + code}
		if err := db.Where("code = ?", code).FirstOrCreate(&proc).Error; err != nil {
			t.Fatalf("Failed to seed process %s: %v", code, err)
		}
		user.Processes = append(user.Processes, proc)
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("Failed to seed test user: %v", err)
	}
	return user
}

// SeedEquipment creates an enabled piece of equipment
func SeedEquipment(t *testing.T, db *gorm.DB, code, name, location string) *entity.Equipment {
	t.Helper()
	row := &entity.Equipment{
		Code:      code,
		Name:      name,
		Location:  location,
		IsEnabled: true,
	}
	if err := db.Create(row).Error; err != nil {
		t.Fatalf("Failed to seed equipment: %v", err)
	}
	return row
}

// SeedItem creates an enabled maintenance item
func SeedItem(t *testing.T, db *gorm.DB, name string, cycleDays int) *entity.MaintenanceItem {
	t.Helper()
	row := &entity.MaintenanceItem{
		Name:             name,
		DefaultCycleDays: cycleDays,
		IsEnabled:        true,
	}
	if err := db.Create(row).Error; err != nil {
		t.Fatalf("Failed to seed maintenance item: %v", err)
	}
	return row
}

// SeedPlan creates an enabled maintenance plan
func SeedPlan(t *testing.T, db *gorm.DB, equipmentID, itemID uint, cycleDays int, processCode string, startDate, nextDueDate time.Time) *entity.MaintenancePlan {
	t.Helper()
	row := &entity.MaintenancePlan{
		EquipmentID:          equipmentID,
		ItemID:               itemID,
		CycleDays:            cycleDays,
		ExecutionProcessCode: processCode,
		StartDate:            startDate,
		NextDueDate:          nextDueDate,
		IsEnabled:            true,
	}
	if err := db.Create(row).Error; err != nil {
		t.Fatalf("Failed to seed maintenance plan: %v", err)
	}
	return row
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
