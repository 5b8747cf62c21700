package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	APIPort     string
	FrontendURL string

	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// JWT (RS256 key pair, PEM encoded; inline PEM wins over file path)
	JWTPrivateKeyFile string
	JWTPublicKeyFile  string
	JWTPrivateKeyPEM  string
	JWTPublicKeyPEM   string
	JWTExpireHours    string

	// Super Admin bootstrap
	SuperAdminEmail    string
	SuperAdminPassword string
	SuperAdminOrgName  string

	// Redis (login / register rate limiting)
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       string

	// Login Rate Limiting
	LoginRateLimitMaxAttempts   string
	LoginRateLimitWindowSeconds string

	// Register Rate Limiting
	RegisterRateLimitMaxAttempts   string
	RegisterRateLimitWindowSeconds string

	// MinIO (task attachments)
	MinIOServerURL    string
	MinIORootUser     string
	MinIORootPassword string
	MinIOUseSSL       bool
	MinIOBucketName   string

	// Attachment limits
	AttachmentMaxFileSize int64
}

var cfg *Config

// LoadConfig loads configuration from environment variables
func LoadConfig() {
	envPaths := []string{
		".env",
		"../.env",
		"../../.env",
	}

	envLoaded := false
	for _, path := range envPaths {
		if err := godotenv.Load(path); err == nil {
			log.Printf("✅ Environment loaded from: %s", path)
			envLoaded = true
			break
		}
	}

	if !envLoaded {
		log.Println("Warning: .env file not found, using system environment variables")
	}

	cfg = &Config{
		// Server
		APIPort:     getEnv("API_PORT", "8080"),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:4200"),

		// Database
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "taskmaster"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		// JWT
		JWTPrivateKeyFile: getEnv("JWT_PRIVATE_KEY_FILE", "keys/private.pem"),
		JWTPublicKeyFile:  getEnv("JWT_PUBLIC_KEY_FILE", "keys/public.pem"),
		JWTPrivateKeyPEM:  getEnv("JWT_PRIVATE_KEY", ""),
		JWTPublicKeyPEM:   getEnv("JWT_PUBLIC_KEY", ""),
		JWTExpireHours:    getEnv("JWT_EXPIRE_HOURS", "24"),

		// Super Admin
		SuperAdminEmail:    getEnv("SUPER_ADMIN_EMAIL", "admin@taskmaster.local"),
		SuperAdminPassword: getEnv("SUPER_ADMIN_PASSWORD", "admin123"),
		SuperAdminOrgName:  getEnv("SUPER_ADMIN_ORG_NAME", "TaskMaster HQ"),

		// Redis
		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnv("REDIS_DB", "0"),

		// Login Rate Limiting
		LoginRateLimitMaxAttempts:   getEnv("LOGIN_RATE_LIMIT_MAX_ATTEMPTS", "5"),
		LoginRateLimitWindowSeconds: getEnv("LOGIN_RATE_LIMIT_WINDOW_SECONDS", "300"),

		// Register Rate Limiting
		RegisterRateLimitMaxAttempts:   getEnv("REGISTER_RATE_LIMIT_MAX_ATTEMPTS", "3"),
		RegisterRateLimitWindowSeconds: getEnv("REGISTER_RATE_LIMIT_WINDOW_SECONDS", "3600"),

		// MinIO
		MinIOServerURL:    getEnv("MINIO_SERVER_URL", "localhost:9000"),
		MinIORootUser:     getEnv("MINIO_ROOT_USER", "minioadmin"),
		MinIORootPassword: getEnv("MINIO_ROOT_PASSWORD", "minioadmin"),
		MinIOUseSSL:       getEnvAsBool("MINIO_USE_SSL", false),
		MinIOBucketName:   getEnv("MINIO_BUCKET_NAME", "taskmaster-attachments"),

		// Attachments
		AttachmentMaxFileSize: getEnvAsInt64("ATTACHMENT_MAX_FILE_SIZE", 25*1024*1024),
	}

	log.Println("✅ Configuration loaded successfully")
}

// GetConfig returns the current configuration
func GetConfig() *Config {
	if cfg == nil {
		LoadConfig()
	}
	return cfg
}

// GetJWTExpireHours returns the token lifetime in hours
func (c *Config) GetJWTExpireHours() int {
	if value, err := strconv.Atoi(c.JWTExpireHours); err == nil && value > 0 {
		return value
	}
	return 24
}

// GetLoginRateLimitMaxAttempts returns the login attempt ceiling per window
func (c *Config) GetLoginRateLimitMaxAttempts() int {
	if value, err := strconv.Atoi(c.LoginRateLimitMaxAttempts); err == nil {
		return value
	}
	return 5
}

// GetLoginRateLimitWindowSeconds returns the login rate limit window
func (c *Config) GetLoginRateLimitWindowSeconds() int {
	if value, err := strconv.Atoi(c.LoginRateLimitWindowSeconds); err == nil {
		return value
	}
	return 300
}

// GetRegisterRateLimitMaxAttempts returns the registration attempt ceiling per window
func (c *Config) GetRegisterRateLimitMaxAttempts() int {
	if value, err := strconv.Atoi(c.RegisterRateLimitMaxAttempts); err == nil {
		return value
	}
	return 3
}

// GetRegisterRateLimitWindowSeconds returns the registration rate limit window
func (c *Config) GetRegisterRateLimitWindowSeconds() int {
	if value, err := strconv.Atoi(c.RegisterRateLimitWindowSeconds); err == nil {
		return value
	}
	return 3600
}

// getEnv gets environment variable with default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}
