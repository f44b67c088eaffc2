package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds the feed engine settings read from the environment.
type Config struct {
	// DataQueueHandler selects the upstream adapter:
	// "simulated", "alpaca" or "websocket".
	DataQueueHandler string
	// Symbols is the initial equity universe.
	Symbols []string
	// WSFeedURL is the endpoint for the websocket adapter.
	WSFeedURL string

	BridgeCapacity int
	MaxLogSizeMB   int64
	MaxLogBackups  int
	Version        string
}

// Load reads a .env file into the process environment, validates the
// variables the selected adapter requires, and parses the optional
// numeric settings.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: No .env file found, using system environment variables")
	}

	cfg := &Config{
		DataQueueHandler: "simulated",
		Symbols:          []string{"SPY", "QQQ", "AAPL"},
		BridgeCapacity:   1000,
		MaxLogSizeMB:     10,
		MaxLogBackups:    3,
	}

	if raw := os.Getenv("DATA_QUEUE_HANDLER"); raw != "" {
		cfg.DataQueueHandler = strings.ToLower(strings.TrimSpace(raw))
	}
	if raw := os.Getenv("FEED_SYMBOLS"); raw != "" {
		cfg.Symbols = cfg.Symbols[:0]
		for _, p := range strings.Split(raw, ",") {
			if s := strings.TrimSpace(p); s != "" {
				cfg.Symbols = append(cfg.Symbols, strings.ToUpper(s))
			}
		}
	}
	cfg.WSFeedURL = os.Getenv("WS_FEED_URL")

	if n, ok := intEnv("BRIDGE_CAPACITY"); ok {
		cfg.BridgeCapacity = n
	}
	if n, ok := intEnv("MAX_LOG_SIZE_MB"); ok {
		cfg.MaxLogSizeMB = int64(n)
	}
	if n, ok := intEnv("MAX_LOG_BACKUPS"); ok {
		cfg.MaxLogBackups = n
	}

	// Only the selected adapter's secrets are required.
	var required []string
	switch cfg.DataQueueHandler {
	case "alpaca":
		required = []string{"APCA_API_KEY_ID", "APCA_API_SECRET_KEY"}
	case "websocket":
		required = []string{"WS_FEED_URL"}
	}

	var missing []string
	for _, key := range required {
		if os.Getenv(key) == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		log.Fatalf("CRITICAL: Missing required environment variables: %v", missing)
	}

	dumpEnvFile()
	return cfg
}

func intEnv(key string) (int, bool) {
	raw := os.Getenv(key)
	if raw == "" {
		return 0, false
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		log.Printf("Warning: ignoring invalid %s=%q", key, raw)
		return 0, false
	}
	return n, true
}

// secretVars are masked when the .env contents are echoed at startup.
var secretVars = map[string]bool{
	"APCA_API_KEY_ID":     true,
	"APCA_API_SECRET_KEY": true,
}

func dumpEnvFile() {
	envMap, err := godotenv.Read()
	if err != nil {
		return
	}
	log.Println("--- .env File Variables ---")
	for key, val := range envMap {
		if secretVars[key] {
			masked := "***"
			if len(val) > 4 {
				masked = "***" + val[len(val)-4:]
			}
			log.Printf("%s=%s", key, masked)
		} else {
			log.Printf("%s=%s", key, val)
		}
	}
	log.Println("---------------------------")
}
