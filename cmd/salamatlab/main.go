package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/mohammadamiw/salamatlab-sub001/internal/api"
	"github.com/mohammadamiw/salamatlab-sub001/internal/genai"
	"github.com/mohammadamiw/salamatlab-sub001/internal/sms"
	"github.com/mohammadamiw/salamatlab-sub001/internal/store"
	"github.com/mohammadamiw/salamatlab-sub001/internal/util"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for service state data
	DefaultStateDir = "/var/lib/salamatlab"
	// DefaultDBFileName is the default SQLite database filename
	DefaultDBFileName = "salamatlab.db"
	// DefaultUploadDirName is the uploads directory inside the state directory
	DefaultUploadDirName = "uploads"
)

func main() {
	initializeLogger()

	config := loadEnvironmentConfig()
	flags := parseCommandLineFlags(config)

	if err := ensureDirectoriesExist(flags); err != nil {
		slog.Error("Failed to create required directories", "error", err)
		os.Exit(1)
	}

	st, err := buildStore(flags)
	if err != nil {
		slog.Error("Failed to initialize store", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	sender := buildSender(flags)
	apiOpts := buildAPIOptions(flags)

	server := api.NewServer(st, sender, apiOpts...)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("Bootstrapping SalamatLab backend",
		"api_addr", *flags.apiAddr,
		"db_dsn_set", *flags.dbDSN != "",
		"twilio", *flags.useTwilio,
		"assistant_configured", *flags.openaiKey != "")
	if err := server.Run(ctx); err != nil {
		slog.Error("SalamatLab backend failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("SalamatLab backend exited successfully")
}

// Config holds environment configuration
type Config struct {
	DatabaseURL string
	StateDir    string
	APIAddr     string
	APIKey      string
	SMSURL      string
	SMSAPIKey   string
	UseTwilio   bool
	OpenAIKey   string
	OpenAIBase  string
	OpenAIModel string
}

// Flags holds command line flag values
type Flags struct {
	stateDir    *string
	dbDSN       *string
	apiAddr     *string
	apiKey      *string
	smsURL      *string
	smsAPIKey   *string
	useTwilio   *bool
	openaiKey   *string
	openaiBase  *string
	openaiModel *string
}

// initializeLogger sets up structured logging with debug level
func initializeLogger() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	slog.SetDefault(logger)
}

// loadEnvironmentConfig loads configuration from environment variables and .env file
func loadEnvironmentConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	} else {
		slog.Debug("successfully loaded .env file")
	}

	config := Config{
		DatabaseURL: os.Getenv("DATABASE_URL"),
		StateDir:    os.Getenv("SALAMATLAB_STATE_DIR"),
		APIAddr:     os.Getenv("API_ADDR"),
		APIKey:      os.Getenv("BOOKING_API_KEY"),
		SMSURL:      os.Getenv("SMS_API_URL"),
		SMSAPIKey:   os.Getenv("SMS_API_KEY"),
		UseTwilio:   util.ParseBoolEnv("USE_TWILIO", false),
		OpenAIKey:   os.Getenv("OPENAI_API_KEY"),
		OpenAIBase:  os.Getenv("OPENAI_BASE_URL"),
		OpenAIModel: os.Getenv("OPENAI_MODEL"),
	}

	if config.StateDir == "" {
		config.StateDir = DefaultStateDir
		slog.Debug("No SALAMATLAB_STATE_DIR set, using default", "default_state_dir", config.StateDir)
	}

	// If no database URL is provided, default to SQLite in the state directory
	if config.DatabaseURL == "" {
		config.DatabaseURL = filepath.Join(config.StateDir, DefaultDBFileName)
		slog.Debug("No database DSN provided, defaulting to SQLite", "sqlite_path", config.DatabaseURL)
	}

	slog.Debug("environment variables loaded",
		"DATABASE_URL_SET", config.DatabaseURL != "",
		"SALAMATLAB_STATE_DIR", config.StateDir,
		"API_ADDR", config.APIAddr,
		"BOOKING_API_KEY_SET", config.APIKey != "",
		"SMS_API_URL_SET", config.SMSURL != "",
		"USE_TWILIO", config.UseTwilio,
		"OPENAI_API_KEY_SET", config.OpenAIKey != "")

	return config
}

// parseCommandLineFlags parses command line arguments with environment defaults
func parseCommandLineFlags(config Config) Flags {
	flags := Flags{
		stateDir:    flag.String("state-dir", config.StateDir, "state directory for service data (overrides $SALAMATLAB_STATE_DIR)"),
		dbDSN:       flag.String("db-dsn", config.DatabaseURL, "database DSN: SQLite file path or Postgres URL (overrides $DATABASE_URL)"),
		apiAddr:     flag.String("api-addr", config.APIAddr, "API server address (overrides $API_ADDR)"),
		apiKey:      flag.String("api-key", config.APIKey, "API key guarding the SMS relay endpoint (overrides $BOOKING_API_KEY)"),
		smsURL:      flag.String("sms-url", config.SMSURL, "external SMS relay URL (overrides $SMS_API_URL)"),
		smsAPIKey:   flag.String("sms-api-key", config.SMSAPIKey, "external SMS relay key (overrides $SMS_API_KEY)"),
		useTwilio:   flag.Bool("use-twilio", config.UseTwilio, "deliver SMS through Twilio (overrides $USE_TWILIO)"),
		openaiKey:   flag.String("openai-api-key", config.OpenAIKey, "OpenAI API key for the lab assistant (overrides $OPENAI_API_KEY)"),
		openaiBase:  flag.String("openai-base-url", config.OpenAIBase, "OpenAI-compatible base URL (overrides $OPENAI_BASE_URL)"),
		openaiModel: flag.String("openai-model", config.OpenAIModel, "assistant chat model (overrides $OPENAI_MODEL)"),
	}

	flag.Parse()

	// The default DSN tracks the state directory when only the latter is overridden.
	if *flags.dbDSN == config.DatabaseURL && config.DatabaseURL == filepath.Join(config.StateDir, DefaultDBFileName) && *flags.stateDir != config.StateDir {
		*flags.dbDSN = filepath.Join(*flags.stateDir, DefaultDBFileName)
		slog.Debug("Updated dbDSN based on state directory", "new_state_dir", *flags.stateDir)
	}

	slog.Debug("flags parsed",
		"stateDir", *flags.stateDir,
		"dbDSN_set", *flags.dbDSN != "",
		"apiAddr", *flags.apiAddr,
		"useTwilio", *flags.useTwilio,
		"openaiKeySet", *flags.openaiKey != "")

	return flags
}

// ensureDirectoriesExist creates necessary directories for file-based storage
func ensureDirectoriesExist(flags Flags) error {
	if store.DetectDSNType(*flags.dbDSN) == "sqlite" {
		stateDir := filepath.Dir(*flags.dbDSN)
		slog.Debug("Creating state directory for file-based database", "state_dir", stateDir)
		if err := os.MkdirAll(stateDir, 0755); err != nil {
			return err
		}
	}
	return os.MkdirAll(uploadDir(flags), 0755)
}

func uploadDir(flags Flags) string {
	return filepath.Join(*flags.stateDir, DefaultUploadDirName)
}

// buildStore picks the storage backend from the DSN.
func buildStore(flags Flags) (store.Store, error) {
	dsn := *flags.dbDSN
	if dsn == "" {
		slog.Debug("No database DSN provided, using in-memory store")
		return store.NewInMemoryStore(), nil
	}
	if store.DetectDSNType(dsn) == "postgres" {
		slog.Debug("Detected PostgreSQL DSN, configuring PostgreSQL store")
		return store.NewPostgresStore(store.WithPostgresDSN(dsn))
	}
	slog.Debug("Detected SQLite DSN, configuring SQLite store", "db_path", dsn)
	return store.NewSQLiteStore(store.WithSQLiteDSN(dsn))
}

// buildSender picks the SMS transport: Twilio, the external relay, or a
// recording mock for local development.
func buildSender(flags Flags) sms.Sender {
	if *flags.useTwilio {
		sender, err := sms.NewTwilioSender()
		if err != nil {
			slog.Error("Twilio configuration incomplete, falling back to mock sender", "error", err)
			return sms.NewMockSender()
		}
		slog.Info("SMS delivery through Twilio")
		return sender
	}
	if *flags.smsURL != "" {
		slog.Info("SMS delivery through external relay", "url", *flags.smsURL)
		return sms.NewHTTPSender(*flags.smsURL, *flags.smsAPIKey)
	}
	slog.Warn("No SMS transport configured, messages will only be recorded in memory")
	return sms.NewMockSender()
}

// buildAPIOptions constructs API server configuration options
func buildAPIOptions(flags Flags) []api.Option {
	apiOpts := []api.Option{api.WithUploadDir(uploadDir(flags))}
	if *flags.apiAddr != "" {
		apiOpts = append(apiOpts, api.WithAddr(*flags.apiAddr))
	}
	if *flags.apiKey != "" {
		apiOpts = append(apiOpts, api.WithAPIKey(*flags.apiKey))
	}
	if *flags.openaiKey != "" {
		var genaiOpts []genai.Option
		genaiOpts = append(genaiOpts, genai.WithAPIKey(*flags.openaiKey))
		if *flags.openaiBase != "" {
			genaiOpts = append(genaiOpts, genai.WithBaseURL(*flags.openaiBase))
		}
		if *flags.openaiModel != "" {
			genaiOpts = append(genaiOpts, genai.WithModel(*flags.openaiModel))
		}
		assistant, err := genai.NewClient(genaiOpts...)
		if err != nil {
			slog.Error("Failed to initialize assistant, chat will serve the fallback reply", "error", err)
		} else {
			apiOpts = append(apiOpts, api.WithAssistant(assistant))
		}
	}
	return apiOpts
}
