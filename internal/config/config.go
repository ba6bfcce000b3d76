// internal/config/config.go
package config

import (
	"log"
	"os"
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	App      AppConfig
	Pipeline PipelineConfig
	Cache    CacheConfig
	Drive    DriveConfig
	Sevalla  SevallaConfig
	MinIO    MinIOConfig
}

type ServerConfig struct {
	Port           string
	Mode           string
	LogLevel       string
	ReadTimeout    int
	WriteTimeout   int
	AllowedOrigins []string
}

type DatabaseConfig struct {
	Driver   string // postgres, pgx or sqlite
	URL      string // used by the pgx driver
	Path     string // sqlite file
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type AppConfig struct {
	UploadDir string
	DataDir   string
}

type PipelineConfig struct {
	Workers               int
	SupplierPolicy        string
	PrioritySupplierStore string
	LocaleNumbers         bool
	StrictColumns         bool
	SpecialSKUs           []string
	ExemptStores          []string
}

type CacheConfig struct {
	Enabled          bool
	RedisURL         string
	RedisHost        string
	RedisPort        string
	RedisPassword    string
	RedisDB          int
	ResultTTLSeconds int
}

type DriveConfig struct {
	CredentialsJSON string
	FolderID        string
	UploadFolderID  string
}

type SevallaConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
	PublicURL string
}

type MinIOConfig struct {
	Endpoint      string
	AccessKey     string
	SecretKey     string
	Bucket        string
	UseSSL        bool
	PresignExpiry int // seconds
}

var (
	once     sync.Once
	instance *Config
)

func Load() *Config {
	once.Do(func() {
		// Load .env file if it exists
		_ = godotenv.Load()

		setDefaults()

		// Read from environment variables
		viper.AutomaticEnv()

		// Ensure upload and data directories exist
		ensureDir(viper.GetString("APP_UPLOAD_DIR"))
		ensureDir(viper.GetString("APP_DATA_DIR"))

		instance = fromViper()
	})

	return instance
}

func setDefaults() {
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SERVER_MODE", "debug")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("SERVER_READ_TIMEOUT", 60)
	viper.SetDefault("SERVER_WRITE_TIMEOUT", 300)
	viper.SetDefault("DB_DRIVER", "sqlite")
	viper.SetDefault("DATABASE_URL", "")
	viper.SetDefault("DB_PATH", "./data/autopo.db")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_USER", "postgres")
	viper.SetDefault("DB_PASSWORD", "postgres")
	viper.SetDefault("DB_NAME", "autopo")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("SERVER_ALLOWED_ORIGINS", []string{"*"})
	viper.SetDefault("APP_UPLOAD_DIR", "./data/uploads")
	viper.SetDefault("APP_DATA_DIR", "./data/output")
	viper.SetDefault("PIPELINE_WORKERS", 0)
	viper.SetDefault("SUPPLIER_POLICY", "brand_store")
	viper.SetDefault("PRIORITY_SUPPLIER_STORE", "Miss Glam Padang")
	viper.SetDefault("INGEST_LOCALE_NUMBERS", true)
	viper.SetDefault("INGEST_STRICT_COLUMNS", false)
	viper.SetDefault("SPECIAL_SKUS", []string{})
	viper.SetDefault("EXEMPT_STORES", []string{})
	viper.SetDefault("CACHE_ENABLED", false)
	viper.SetDefault("REDIS_URL", "")
	viper.SetDefault("REDIS_HOST", "127.0.0.1")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("CACHE_RESULT_TTL_SECONDS", 300)
	viper.SetDefault("GOOGLE_DRIVE_CREDENTIALS_JSON", "")
	viper.SetDefault("GOOGLE_DRIVE_FOLDER_ID", "")
	viper.SetDefault("GOOGLE_DRIVE_UPLOAD_FOLDER_ID", "")
	viper.SetDefault("SEVALLA_REGION", "us-east-1")
	viper.SetDefault("SEVALLA_USE_SSL", true)
	viper.SetDefault("MINIO_USE_SSL", true)
	viper.SetDefault("MINIO_PRESIGN_EXPIRY_SECONDS", 7*24*3600)
}

func fromViper() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           viper.GetString("SERVER_PORT"),
			Mode:           viper.GetString("SERVER_MODE"),
			LogLevel:       viper.GetString("LOG_LEVEL"),
			ReadTimeout:    viper.GetInt("SERVER_READ_TIMEOUT"),
			WriteTimeout:   viper.GetInt("SERVER_WRITE_TIMEOUT"),
			AllowedOrigins: viper.GetStringSlice("SERVER_ALLOWED_ORIGINS"),
		},
		Database: DatabaseConfig{
			Driver:   viper.GetString("DB_DRIVER"),
			URL:      viper.GetString("DATABASE_URL"),
			Path:     viper.GetString("DB_PATH"),
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetString("DB_PORT"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASSWORD"),
			DBName:   viper.GetString("DB_NAME"),
			SSLMode:  viper.GetString("DB_SSLMODE"),
		},
		App: AppConfig{
			UploadDir: viper.GetString("APP_UPLOAD_DIR"),
			DataDir:   viper.GetString("APP_DATA_DIR"),
		},
		Pipeline: PipelineConfig{
			Workers:               viper.GetInt("PIPELINE_WORKERS"),
			SupplierPolicy:        viper.GetString("SUPPLIER_POLICY"),
			PrioritySupplierStore: viper.GetString("PRIORITY_SUPPLIER_STORE"),
			LocaleNumbers:         viper.GetBool("INGEST_LOCALE_NUMBERS"),
			StrictColumns:         viper.GetBool("INGEST_STRICT_COLUMNS"),
			SpecialSKUs:           viper.GetStringSlice("SPECIAL_SKUS"),
			ExemptStores:          viper.GetStringSlice("EXEMPT_STORES"),
		},
		Cache: CacheConfig{
			Enabled:          viper.GetBool("CACHE_ENABLED"),
			RedisURL:         viper.GetString("REDIS_URL"),
			RedisHost:        viper.GetString("REDIS_HOST"),
			RedisPort:        viper.GetString("REDIS_PORT"),
			RedisPassword:    viper.GetString("REDIS_PASSWORD"),
			RedisDB:          viper.GetInt("REDIS_DB"),
			ResultTTLSeconds: viper.GetInt("CACHE_RESULT_TTL_SECONDS"),
		},
		Drive: DriveConfig{
			CredentialsJSON: viper.GetString("GOOGLE_DRIVE_CREDENTIALS_JSON"),
			FolderID:        viper.GetString("GOOGLE_DRIVE_FOLDER_ID"),
			UploadFolderID:  viper.GetString("GOOGLE_DRIVE_UPLOAD_FOLDER_ID"),
		},
		Sevalla: SevallaConfig{
			Endpoint:  viper.GetString("SEVALLA_ENDPOINT"),
			AccessKey: viper.GetString("SEVALLA_ACCESS_KEY"),
			SecretKey: viper.GetString("SEVALLA_SECRET_KEY"),
			Bucket:    viper.GetString("SEVALLA_BUCKET"),
			Region:    viper.GetString("SEVALLA_REGION"),
			UseSSL:    viper.GetBool("SEVALLA_USE_SSL"),
			PublicURL: viper.GetString("SEVALLA_PUBLIC_URL"),
		},
		MinIO: MinIOConfig{
			Endpoint:      viper.GetString("MINIO_ENDPOINT"),
			AccessKey:     viper.GetString("MINIO_ACCESS_KEY"),
			SecretKey:     viper.GetString("MINIO_SECRET_KEY"),
			Bucket:        viper.GetString("MINIO_BUCKET"),
			UseSSL:        viper.GetBool("MINIO_USE_SSL"),
			PresignExpiry: viper.GetInt("MINIO_PRESIGN_EXPIRY_SECONDS"),
		},
	}
}

func ensureDir(dir string) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Fatalf("Failed to create directory %s: %v", dir, err)
		}
	}
}
