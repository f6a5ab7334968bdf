package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is centralized process configuration.
// Keep infra values here and pass typed config into builders.
type Config struct {
	ServiceName  string
	HTTPPort     string
	PostgresDSN  string
	KafkaBrokers []string

	UnitAsset        string
	FeeAsset         string
	RegistrarAddress string
	IssuerAddress    string
	FeeMode          string
	FeeFlatAmount    uint64
	FeeRateBps       uint64

	GatewaySelfAddress string
	GatewayMembers     []string
	GatewayThreshold   int

	HighValueThreshold uint64
	HoldDuration       time.Duration
	FreshnessWindow    time.Duration
}

func Load() (Config, error) {
	service := os.Getenv("SERVICE_NAME")
	if service == "" {
		service = "quill"
	}

	port := os.Getenv("HTTP_PORT")
	if port == "" {
		port = "8080"
	}

	var brokers []string
	for _, value := range strings.Split(os.Getenv("KAFKA_BROKERS"), ",") {
		value = strings.TrimSpace(value)
		if value != "" {
			brokers = append(brokers, value)
		}
	}
	if len(brokers) == 0 {
		brokers = []string{"localhost:9092"}
	}

	var members []string
	for _, value := range strings.Split(os.Getenv("GATEWAY_MEMBERS"), ",") {
		value = strings.TrimSpace(value)
		if value != "" {
			members = append(members, value)
		}
	}

	return Config{
		ServiceName:  service,
		HTTPPort:     port,
		PostgresDSN:  os.Getenv("POSTGRES_DSN"),
		KafkaBrokers: brokers,

		UnitAsset:        envString("UNIT_ASSET", "restricted-security"),
		FeeAsset:         envString("FEE_ASSET", "fee-credit"),
		RegistrarAddress: envString("REGISTRAR_ADDRESS", "registrar"),
		IssuerAddress:    envString("ISSUER_ADDRESS", "issuer"),
		FeeMode:          envString("FEE_MODE", "flat"),
		FeeFlatAmount:    envUint("FEE_FLAT_AMOUNT", 0),
		FeeRateBps:       envUint("FEE_RATE_BPS", 0),

		GatewaySelfAddress: envString("GATEWAY_SELF_ADDRESS", "gateway"),
		GatewayMembers:     members,
		GatewayThreshold:   int(envUint("GATEWAY_THRESHOLD", 1)),

		HighValueThreshold: envUint("HIGH_VALUE_THRESHOLD", 100000),
		HoldDuration:       envDuration("HOLD_DURATION", 24*time.Hour),
		FreshnessWindow:    envDuration("FRESHNESS_WINDOW", 7*24*time.Hour),
	}, nil
}

func envString(name string, fallback string) string {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return fallback
	}
	return value
}

func envUint(name string, fallback uint64) uint64 {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return fallback
	}
	return value
}

func envDuration(name string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	value, err := time.ParseDuration(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}
