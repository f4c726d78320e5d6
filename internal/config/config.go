package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

type AppConfig struct {
	Port          string
	DevserverPort string
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
	IdleTimeout   time.Duration
}

type BackendConfig struct {
	// TransversalURL hosts Authentication and GetAccessibleModulesAndMenus;
	// ApplicationURL hosts the Users/Tasks API. The original app read both
	// from config.json.
	TransversalURL string
	ApplicationURL string
	RequestTimeout time.Duration
	MaxRetries     int
}

type SessionConfig struct {
	// WatchInterval is the token polling cadence of the session watcher.
	WatchInterval time.Duration
	ApplicationID int64
}

type StorageConfig struct {
	// Driver selects the key-value store backing the session: "file",
	// "redis" or "memory".
	Driver        string
	FilePath      string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

type DbConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	MaxConnLifetime time.Duration
}

type JWTConfig struct {
	AccessTTL time.Duration
	Issuer    string
	Audience  string
	Secret    string
	KID       string
}

type Config struct {
	AppConfig     *AppConfig
	BackendConfig *BackendConfig
	SessionConfig *SessionConfig
	StorageConfig *StorageConfig
	DbConfig      *DbConfig
	JWTConfig     *JWTConfig
}

func LoadConfig(logger *zap.Logger) (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		logger.Warn("failed to load .env file", zap.Error(err))
	}

	/** app config */
	appConfig := &AppConfig{
		Port:          getenv("APP_PORT", "4300"),
		DevserverPort: getenv("DEVSERVER_PORT", "8080"),
	}
	var err error
	if appConfig.ReadTimeout, err = durationEnv("APP_READ_TIMEOUT", 5*time.Second); err != nil {
		return nil, err
	}
	if appConfig.WriteTimeout, err = durationEnv("APP_WRITE_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if appConfig.IdleTimeout, err = durationEnv("APP_IDLE_TIMEOUT", 60*time.Second); err != nil {
		return nil, err
	}

	/** backend config */
	backendConfig := &BackendConfig{
		TransversalURL: getenv("BACKEND_TRANSVERSAL_URL", "http://localhost:8080"),
		ApplicationURL: getenv("BACKEND_APPLICATION_URL", "http://localhost:8080"),
	}
	if backendConfig.RequestTimeout, err = durationEnv("BACKEND_REQUEST_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if backendConfig.MaxRetries, err = intEnv("BACKEND_MAX_RETRIES", 2); err != nil {
		return nil, err
	}

	/** session config */
	sessionConfig := &SessionConfig{}
	if sessionConfig.WatchInterval, err = durationEnv("SESSION_WATCH_INTERVAL", 2*time.Second); err != nil {
		return nil, err
	}
	appID, err := intEnv("APPLICATION_ID", 1)
	if err != nil {
		return nil, err
	}
	sessionConfig.ApplicationID = int64(appID)

	/** storage config */
	storageConfig := &StorageConfig{
		Driver:        getenv("STORAGE_DRIVER", "file"),
		FilePath:      getenv("STORAGE_FILE_PATH", "console-storage.json"),
		RedisAddr:     getenv("STORAGE_REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("STORAGE_REDIS_PASSWORD"),
	}
	if storageConfig.RedisDB, err = intEnv("STORAGE_REDIS_DB", 0); err != nil {
		return nil, err
	}

	/** devserver db config */
	dbConfig := &DbConfig{DSN: os.Getenv("POSTGRES_DSN")}
	if dbConfig.MaxOpenConns, err = intEnv("DB_MAX_OPEN_CONNS", 10); err != nil {
		return nil, err
	}
	if dbConfig.MaxIdleConns, err = intEnv("DB_MAX_IDLE_CONNS", 5); err != nil {
		return nil, err
	}
	if dbConfig.MaxConnLifetime, err = durationEnv("DB_CONN_MAX_LIFETIME", 30*time.Minute); err != nil {
		return nil, err
	}

	/** devserver jwt config */
	jwtConfig := &JWTConfig{
		Issuer:   getenv("JWT_ISSUER", "taskconsole-devserver"),
		Audience: getenv("JWT_AUDIENCE", "taskconsole"),
		Secret:   os.Getenv("JWT_SECRET"),
		KID:      getenv("JWT_KID", "dev"),
	}
	if jwtConfig.AccessTTL, err = durationEnv("ACCESS_TTL", time.Hour); err != nil {
		return nil, err
	}

	return &Config{
		AppConfig:     appConfig,
		BackendConfig: backendConfig,
		SessionConfig: sessionConfig,
		StorageConfig: storageConfig,
		DbConfig:      dbConfig,
		JWTConfig:     jwtConfig,
	}, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return time.ParseDuration(v)
}

func intEnv(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.Atoi(v)
}
