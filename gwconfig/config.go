// Package gwconfig loads gatewayd's runtime configuration from environment
// variables (with .env file support for local development) and its initial
// deployment manifest from a TOML file.
package gwconfig

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"

	"github.com/wmgateway/gateway/gwerrors"
)

// Config holds the environment-derived settings gatewayd needs to boot.
type Config struct {
	// ChainID is the numeric chain id this deployment accepts batches for.
	ChainID int64

	// Owner is the address allowed to use the owner-gated direct entry
	// points (bootstrapping operator sets, emergency approvals).
	Owner common.Address

	// StoreBackend selects the domain.KVStore implementation: "memory" or
	// "redis".
	StoreBackend string

	// RedisAddr is used when StoreBackend is "redis".
	RedisAddr string

	// PostgresDSN, when set, enables the Postgres-backed audit sink
	// alongside whichever KVStore backend is selected.
	PostgresDSN string

	// JWTSecret signs and verifies owner bearer tokens issued by httpapi.
	JWTSecret []byte

	// TokenExpiry is how long an issued owner token remains valid.
	TokenExpiry time.Duration

	// HTTPAddr is the listen address for cmd/gatewayd's HTTP front door.
	HTTPAddr string

	// ManifestPath points at the TOML deployment manifest describing the
	// genesis operator set. Empty means no manifest is loaded at boot.
	ManifestPath string
}

// Load reads configuration from environment variables. A .env file in the
// working directory is loaded first if present; real environment variables
// always take precedence since godotenv.Load never overwrites an existing
// variable.
func Load() (*Config, error) {
	_ = godotenv.Load()

	chainIDStr := getEnv("GATEWAY_CHAIN_ID", "")
	if chainIDStr == "" {
		return nil, gwerrors.InvalidCommands("GATEWAY_CHAIN_ID is required")
	}
	chainID, err := strconv.ParseInt(chainIDStr, 10, 64)
	if err != nil {
		return nil, gwerrors.DecodeError(fmt.Errorf("GATEWAY_CHAIN_ID: %w", err))
	}

	ownerStr := getEnv("GATEWAY_OWNER", "")
	if ownerStr == "" {
		return nil, gwerrors.InvalidCommands("GATEWAY_OWNER is required")
	}
	if !common.IsHexAddress(ownerStr) {
		return nil, gwerrors.InvalidCommands("GATEWAY_OWNER must be a hex address")
	}

	backend := getEnv("GATEWAY_STORE_BACKEND", "memory")
	switch backend {
	case "memory", "redis":
	default:
		return nil, gwerrors.InvalidCommands("GATEWAY_STORE_BACKEND must be memory or redis")
	}

	jwtSecret := getEnv("GATEWAY_JWT_SECRET", "")
	if backend != "memory" && jwtSecret == "" {
		return nil, gwerrors.InvalidCommands("GATEWAY_JWT_SECRET is required for non-memory deployments")
	}

	return &Config{
		ChainID:      chainID,
		Owner:        common.HexToAddress(ownerStr),
		StoreBackend: backend,
		RedisAddr:    getEnv("GATEWAY_REDIS_ADDR", "localhost:6379"),
		PostgresDSN:  getEnv("GATEWAY_POSTGRES_DSN", ""),
		JWTSecret:    []byte(jwtSecret),
		TokenExpiry:  time.Duration(getEnvInt("GATEWAY_TOKEN_EXPIRY_HOURS", 24)) * time.Hour,
		HTTPAddr:     getEnv("GATEWAY_HTTP_ADDR", ":8080"),
		ManifestPath: getEnv("GATEWAY_MANIFEST_PATH", ""),
	}, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := getEnv(key, "")
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
