// pkg/config/config.go
package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Storage backends.
const (
	BackendMongo    = "mongo"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

type Config struct {
	Env      string
	HTTPAddr string

	// Storage: mongo | postgres | memory. Inferred from the URLs when unset.
	Backend     string
	MongoURI    string
	MasterDB    string
	DatabaseURL string
	RedisURL    string // per-tenant leases; in-process when empty

	// Bearer tokens
	JWTSecret string
	JWTIssuer string
	TokenTTL  time.Duration

	BcryptCost       int
	CollectionPrefix string
	LockTTL          time.Duration

	SeedFile         string
	ReconcileOnStart bool
	CORSOrigins      []string
}

func Load() Config {
	_ = godotenv.Load()
	cfg := Config{
		Env:              env("ORG_ENV", "dev"),
		HTTPAddr:         env("ORG_HTTP_ADDR", ":8000"),
		Backend:          strings.ToLower(env("ORG_BACKEND", "")),
		MongoURI:         env("MONGO_URI", ""),
		MasterDB:         env("MASTER_DB", "master_org_db"),
		DatabaseURL:      env("DATABASE_URL", ""),
		RedisURL:         env("REDIS_URL", ""),
		JWTSecret:        env("JWT_SECRET", ""),
		JWTIssuer:        env("JWT_ISSUER", "orgmgr"),
		TokenTTL:         envDur("JWT_TTL_MINUTES", 1440) * time.Minute,
		BcryptCost:       envInt("BCRYPT_COST", 0),
		CollectionPrefix: env("ORG_COLLECTION_PREFIX", "org_"),
		LockTTL:          envDur("ORG_LOCK_TTL_SEC", 300) * time.Second,
		SeedFile:         env("ORG_SEED_FILE", ""),
		ReconcileOnStart: envBool("ORG_RECONCILE_ON_START", true),
		CORSOrigins:      envList("ORG_CORS_ORIGINS"),
	}
	if cfg.Backend == "" {
		switch {
		case cfg.MongoURI != "":
			cfg.Backend = BackendMongo
		case cfg.DatabaseURL != "":
			cfg.Backend = BackendPostgres
		default:
			cfg.Backend = BackendMemory
			log.Println("[WARN] neither MONGO_URI nor DATABASE_URL set, using in-memory storage for dev")
		}
	}
	if cfg.JWTSecret == "" && cfg.Env != "prod" {
		cfg.JWTSecret = "dev-insecure-secret"
		log.Println("[WARN] JWT_SECRET not set, using an insecure dev secret")
	}
	return cfg
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
func envBool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return def
		}
		return b
	}
	return def
}
func envInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		i, err := strconv.Atoi(v)
		if err != nil {
			return def
		}
		return i
	}
	return def
}
func envDur(k string, def int) time.Duration {
	return time.Duration(envInt(k, def))
}
func envList(k string) []string {
	var out []string
	for _, p := range strings.Split(os.Getenv(k), ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
