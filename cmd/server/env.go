package main

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// MemoryDatabase as DATABASE_URL runs the server on the in-memory store.
const MemoryDatabase = "memory"

type Environment struct {
	Environment    string
	ServerAddress  string
	SecretKey      string
	DatabaseURL    string
	MigrationsPath string
	LogLevel       string
	Timezone       *time.Location
	SuperAdmins    []string

	RedisAddress  string
	RedisUsername string
	RedisPassword string

	StorageBackend string // b2, minio or local
	UploadDir      string
	PublicURL      string

	B2Endpoint string
	B2Region   string
	B2Bucket   string
	B2KeyID    string
	B2AppKey   string

	CDNEnabled bool
	CDNURL     string

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioPublicURL string
	MinioUseSSL    bool

	MQTTHost     string
	MQTTPort     int
	MQTTUsername string
	MQTTPassword string
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getbool(key string) bool {
	b, _ := strconv.ParseBool(os.Getenv(key))
	return b
}

// LoadEnvironment reads and validates env vars
func LoadEnvironment() Environment {
	env := Environment{
		Environment:    getenv("APP_ENV", "development"),
		ServerAddress:  getenv("SERVER_ADDRESS", ":3000"),
		SecretKey:      os.Getenv("JWT_SECRET"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		MigrationsPath: getenv("MIGRATIONS_PATH", "./migrations"),
		LogLevel:       getenv("LOG_LEVEL", "info"),

		RedisAddress:  os.Getenv("REDIS_ADDRESS"),
		RedisUsername: os.Getenv("REDIS_USERNAME"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),

		StorageBackend: strings.ToLower(getenv("STORAGE_BACKEND", "local")),
		UploadDir:      getenv("UPLOAD_DIR", "./uploads"),
		PublicURL:      getenv("PUBLIC_URL", "http://localhost:3000"),

		B2Endpoint: os.Getenv("B2_ENDPOINT"),
		B2Region:   getenv("B2_REGION", "us-west-004"),
		B2Bucket:   os.Getenv("B2_BUCKET_NAME"),
		B2KeyID:    os.Getenv("B2_KEY_ID"),
		B2AppKey:   os.Getenv("B2_APPLICATION_KEY"),

		CDNEnabled: getbool("USE_BUNNY_CDN"),
		CDNURL:     os.Getenv("BUNNY_CDN_URL"),

		MinioEndpoint:  os.Getenv("MINIO_ENDPOINT"),
		MinioAccessKey: os.Getenv("MINIO_ACCESS_KEY"),
		MinioSecretKey: os.Getenv("MINIO_SECRET_KEY"),
		MinioBucket:    getenv("MINIO_BUCKET", "prontotv"),
		MinioPublicURL: os.Getenv("MINIO_PUBLIC_URL"),
		MinioUseSSL:    getbool("MINIO_USE_SSL"),

		MQTTHost:     os.Getenv("MQTT_HOST"),
		MQTTUsername: os.Getenv("MQTT_USERNAME"),
		MQTTPassword: os.Getenv("MQTT_PASSWORD"),
	}

	env.MQTTPort, _ = strconv.Atoi(getenv("MQTT_PORT", "1883"))

	for _, email := range strings.Split(os.Getenv("SUPER_ADMIN_EMAILS"), ",") {
		if email = strings.ToLower(strings.TrimSpace(email)); email != "" {
			env.SuperAdmins = append(env.SuperAdmins, email)
		}
	}

	env.Timezone = time.Local
	if tz := os.Getenv("TIMEZONE"); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			log.Fatal().Err(err).Str("timezone", tz).Msg("invalid TIMEZONE")
		}
		env.Timezone = loc
	}

	// Basic validation
	if env.DatabaseURL == "" || env.SecretKey == "" {
		log.Fatal().Msg("DATABASE_URL and JWT_SECRET are required")
	}
	switch env.StorageBackend {
	case "local":
	case "b2":
		if env.B2Endpoint == "" || env.B2Bucket == "" || env.B2KeyID == "" || env.B2AppKey == "" {
			log.Fatal().Msg("B2_ENDPOINT, B2_BUCKET_NAME, B2_KEY_ID and B2_APPLICATION_KEY are required for b2 storage")
		}
	case "minio":
		if env.MinioEndpoint == "" || env.MinioAccessKey == "" || env.MinioSecretKey == "" {
			log.Fatal().Msg("MINIO_ENDPOINT, MINIO_ACCESS_KEY and MINIO_SECRET_KEY are required for minio storage")
		}
	default:
		log.Fatal().Str("backend", env.StorageBackend).Msg("STORAGE_BACKEND must be b2, minio or local")
	}

	return env
}

func (e Environment) Production() bool {
	return e.Environment == "production"
}
