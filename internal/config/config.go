package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerAddress string

	// StoreBackend selects the store implementations: "mongo" or "memory".
	StoreBackend string
	MongoURI     string
	MongoDB      string
	SeedFile     string

	// AuthMode selects the API auth middleware: "firebase" (ID tokens) or
	// "jwt" (self-issued tokens with register/login endpoints).
	AuthMode      string
	JWTSecret     string
	JWTExpiration time.Duration

	FirebaseProjectID       string
	FirebaseCredentialsJSON string

	// LinkScheme is the app scheme used to build invitation deep links,
	// e.g. "regalo" -> regalo://invite/<id>.
	LinkScheme    string
	InvitationTTL time.Duration

	MaxDailyChanges int

	// Timezone the scheduled jobs compute "today" in.
	Timezone string
}

func Load() *Config {
	// Optional; real deployments use plain env vars.
	_ = godotenv.Load()

	return &Config{
		ServerAddress:           getEnv("SERVER_ADDRESS", ":8080"),
		StoreBackend:            getEnv("STORE_BACKEND", "mongo"),
		MongoURI:                getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:                 getEnv("MONGO_DB", "regalo"),
		SeedFile:                getEnv("SEED_FILE", ""),
		AuthMode:                getEnv("AUTH_MODE", "firebase"),
		JWTSecret:               getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
		JWTExpiration:           24 * time.Hour,
		FirebaseProjectID:       getEnv("FIREBASE_PROJECT_ID", ""),
		FirebaseCredentialsJSON: getEnv("FIREBASE_CREDENTIALS_JSON", ""),
		LinkScheme:              getEnv("APP_LINK_SCHEME", "regalo"),
		InvitationTTL:           time.Duration(getEnvInt("INVITATION_TTL_DAYS", 14)) * 24 * time.Hour,
		MaxDailyChanges:         getEnvInt("MAX_DAILY_CHANGES", 3),
		Timezone:                getEnv("TIMEZONE", "Europe/Berlin"),
	}
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
