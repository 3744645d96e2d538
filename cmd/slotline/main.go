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
	"github.com/slotline/slotline/internal/api"
	"github.com/slotline/slotline/internal/flow"
	"github.com/slotline/slotline/internal/httpx"
	"github.com/slotline/slotline/internal/messaging"
	"github.com/slotline/slotline/internal/payments"
	"github.com/slotline/slotline/internal/schedule"
	"github.com/slotline/slotline/internal/session"
	"github.com/slotline/slotline/internal/store"
	"github.com/slotline/slotline/internal/tickets"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for Slotline state data
	DefaultStateDir = "/var/lib/slotline"
	// DefaultDBFileName is the default SQLite database filename
	DefaultDBFileName = "slotline.db"
)

func main() {
	// Initialize structured logger
	initializeLogger()

	// Load environment configuration
	config := loadEnvironmentConfig()

	// Parse command line flags
	flags := parseCommandLineFlags(config)

	// Ensure required directories exist
	if err := ensureDirectoriesExist(flags); err != nil {
		slog.Error("Failed to create required directories", "error", err)
		os.Exit(1)
	}

	st, err := buildStore(flags)
	if err != nil {
		slog.Error("Failed to initialize session store", "error", err)
		os.Exit(1)
	}

	channel, err := buildChannel(flags)
	if err != nil {
		slog.Error("Failed to initialize delivery channel", "error", err)
		os.Exit(1)
	}

	provider := buildSchedulingClient(flags)
	paymentsSvc := buildPayments(flags)
	ticketSink := buildTickets(flags)

	sessions := session.NewManager(st)
	engine := flow.NewEngine(sessions, provider, paymentsSvc, ticketSink)
	server := api.NewServer(engine, channel, st, buildAPIOptions(flags)...)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	slog.Info("Bootstrapping Slotline with configured modules",
		"backend", *flags.storeBackend, "channel", *flags.channel,
		"payments", paymentsSvc != nil, "tickets", ticketSink != nil)
	if err := server.Run(ctx); err != nil {
		slog.Error("Slotline failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("Slotline exited successfully")
}

// Config holds environment configuration
type Config struct {
	StateDir     string
	StoreBackend string
	DatabaseURL  string
	RedisURL     string
	Channel      string

	CloudPhoneNumberID string
	CloudAccessToken   string
	CloudVerifyToken   string

	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFromWhats  string

	ScheduleBase         string
	ScheduleClientID     string
	ScheduleClientSecret string
	ScheduleTokenURL     string
	ScheduleRefreshToken string

	StripeKey        string
	StripeSuccessURL string

	TicketsEndpoint string
	TicketsAPIKey   string

	APIAddr string
}

// Flags holds command line flag values
type Flags struct {
	config Config

	stateDir     *string
	storeBackend *string
	dbDSN        *string
	redisURL     *string
	channel      *string
	apiAddr      *string
	debug        *bool
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
		StateDir:     os.Getenv("SLOTLINE_STATE_DIR"),
		StoreBackend: os.Getenv("STORE_BACKEND"),
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		RedisURL:     os.Getenv("REDIS_URL"),
		Channel:      os.Getenv("CHANNEL"),

		CloudPhoneNumberID: os.Getenv("WHATSAPP_PHONE_NUMBER_ID"),
		CloudAccessToken:   os.Getenv("WHATSAPP_ACCESS_TOKEN"),
		CloudVerifyToken:   os.Getenv("WHATSAPP_VERIFY_TOKEN"),

		TwilioAccountSID: os.Getenv("TWILIO_ACCOUNT_SID"),
		TwilioAuthToken:  os.Getenv("TWILIO_AUTH_TOKEN"),
		TwilioFromWhats:  os.Getenv("TWILIO_WHATSAPP_FROM"),

		ScheduleBase:         os.Getenv("SCHEDULE_API_BASE"),
		ScheduleClientID:     os.Getenv("SCHEDULE_CLIENT_ID"),
		ScheduleClientSecret: os.Getenv("SCHEDULE_CLIENT_SECRET"),
		ScheduleTokenURL:     os.Getenv("SCHEDULE_TOKEN_URL"),
		ScheduleRefreshToken: os.Getenv("SCHEDULE_REFRESH_TOKEN"),

		StripeKey:        os.Getenv("STRIPE_API_KEY"),
		StripeSuccessURL: os.Getenv("STRIPE_SUCCESS_URL"),

		TicketsEndpoint: os.Getenv("TICKETS_ENDPOINT"),
		TicketsAPIKey:   os.Getenv("TICKETS_API_KEY"),

		APIAddr: os.Getenv("API_ADDR"),
	}

	if config.StateDir == "" {
		config.StateDir = DefaultStateDir
		slog.Debug("No SLOTLINE_STATE_DIR set, using default", "default_state_dir", config.StateDir)
	}
	if config.StoreBackend == "" {
		config.StoreBackend = "memory"
	}
	if config.Channel == "" {
		config.Channel = "cloud"
	}

	slog.Debug("environment variables loaded",
		"STORE_BACKEND", config.StoreBackend,
		"DATABASE_URL_SET", config.DatabaseURL != "",
		"REDIS_URL_SET", config.RedisURL != "",
		"CHANNEL", config.Channel,
		"WHATSAPP_ACCESS_TOKEN_SET", config.CloudAccessToken != "",
		"SCHEDULE_API_BASE", config.ScheduleBase,
		"STRIPE_API_KEY_SET", config.StripeKey != "",
		"TICKETS_ENDPOINT_SET", config.TicketsEndpoint != "",
		"API_ADDR", config.APIAddr)

	return config
}

// parseCommandLineFlags parses command line arguments with environment defaults
func parseCommandLineFlags(config Config) Flags {
	flags := Flags{
		config:       config,
		stateDir:     flag.String("state-dir", config.StateDir, "state directory for Slotline data (overrides $SLOTLINE_STATE_DIR)"),
		storeBackend: flag.String("store", config.StoreBackend, "session store backend: memory, sqlite, postgres or redis (overrides $STORE_BACKEND)"),
		dbDSN:        flag.String("db-dsn", config.DatabaseURL, "database DSN for the sqlite or postgres store (overrides $DATABASE_URL)"),
		redisURL:     flag.String("redis-url", config.RedisURL, "Redis URL for the redis store (overrides $REDIS_URL)"),
		channel:      flag.String("channel", config.Channel, "delivery channel: cloud or twilio (overrides $CHANNEL)"),
		apiAddr:      flag.String("api-addr", config.APIAddr, "API server address (overrides $API_ADDR)"),
		debug:        flag.Bool("debug-endpoints", false, "expose the /debug/sessions/ endpoint"),
	}

	flag.Parse()

	if *flags.storeBackend == "sqlite" && *flags.dbDSN == "" {
		*flags.dbDSN = filepath.Join(*flags.stateDir, DefaultDBFileName)
		slog.Debug("No database DSN provided, defaulting to SQLite in state dir", "sqlite_path", *flags.dbDSN)
	}

	slog.Debug("flags parsed",
		"stateDir", *flags.stateDir,
		"store", *flags.storeBackend,
		"dbDSN_set", *flags.dbDSN != "",
		"redisURL_set", *flags.redisURL != "",
		"channel", *flags.channel,
		"apiAddr", *flags.apiAddr,
		"debug", *flags.debug)

	return flags
}

// ensureDirectoriesExist creates necessary directories for file-based storage
func ensureDirectoriesExist(flags Flags) error {
	if *flags.storeBackend != "sqlite" {
		return nil
	}
	stateDir := filepath.Dir(*flags.dbDSN)
	slog.Debug("Creating state directory for file-based database", "state_dir", stateDir)
	return os.MkdirAll(stateDir, 0755)
}

// buildStore constructs the configured session store backend.
func buildStore(flags Flags) (store.Store, error) {
	switch *flags.storeBackend {
	case "postgres":
		return store.NewPostgresStore(store.WithDSN(*flags.dbDSN))
	case "sqlite":
		return store.NewSQLiteStore(store.WithDSN(*flags.dbDSN))
	case "redis":
		return store.NewRedisStore(store.WithDSN(*flags.redisURL))
	default:
		slog.Debug("Using in-memory session store")
		return store.NewInMemoryStore(), nil
	}
}

// buildChannel constructs the configured delivery channel.
func buildChannel(flags Flags) (messaging.Service, error) {
	cfg := flags.config
	if *flags.channel == "twilio" {
		return messaging.NewTwilioService(messaging.TwilioOpts{
			AccountSID: cfg.TwilioAccountSID,
			AuthToken:  cfg.TwilioAuthToken,
			FromWhats:  cfg.TwilioFromWhats,
		})
	}
	caller := httpx.New("whatsapp-cloud")
	return messaging.NewCloudAPIService(cfg.CloudPhoneNumberID, cfg.CloudAccessToken, cfg.CloudVerifyToken, caller), nil
}

// buildSchedulingClient constructs the scheduling-service client.
func buildSchedulingClient(flags Flags) *schedule.Client {
	cfg := flags.config
	tokens := schedule.NewTokenSource(cfg.ScheduleClientID, cfg.ScheduleClientSecret, cfg.ScheduleTokenURL, cfg.ScheduleRefreshToken)
	caller := httpx.New("schedule")
	return schedule.NewClient(cfg.ScheduleBase, caller, tokens)
}

// buildPayments constructs the payment service when Stripe is configured.
func buildPayments(flags Flags) flow.PaymentService {
	cfg := flags.config
	if cfg.StripeKey == "" {
		slog.Debug("No Stripe key configured, paid services will book without payment")
		return nil
	}
	return payments.NewStripeService(cfg.StripeKey, cfg.StripeSuccessURL)
}

// buildTickets constructs the support-ticket sink when configured.
func buildTickets(flags Flags) flow.TicketSink {
	cfg := flags.config
	if cfg.TicketsEndpoint == "" {
		slog.Debug("No ticket endpoint configured, help requests will be rejected")
		return nil
	}
	return tickets.NewClient(cfg.TicketsEndpoint, cfg.TicketsAPIKey, httpx.New("tickets"))
}

// buildAPIOptions constructs API server configuration options
func buildAPIOptions(flags Flags) []api.Option {
	var apiOpts []api.Option
	if *flags.apiAddr != "" {
		apiOpts = append(apiOpts, api.WithAddr(*flags.apiAddr))
	}
	if *flags.debug {
		apiOpts = append(apiOpts, api.WithDebugEndpoints())
	}
	return apiOpts
}
