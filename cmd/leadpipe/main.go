package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/imobia/leadpipe/internal/api"
	"github.com/imobia/leadpipe/internal/genai"
	"github.com/imobia/leadpipe/internal/lockfile"
	"github.com/imobia/leadpipe/internal/messaging"
	"github.com/imobia/leadpipe/internal/scheduler"
	"github.com/imobia/leadpipe/internal/store"
	"github.com/imobia/leadpipe/internal/twiliowhatsapp"
	"github.com/imobia/leadpipe/internal/util"
	"github.com/imobia/leadpipe/internal/whatsapp"
	"github.com/joho/godotenv"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for leadpipe state data
	DefaultStateDir = "/var/lib/leadpipe"
	// DefaultDBFileName is the default SQLite database filename
	DefaultDBFileName = "leadpipe.db"
	// DefaultCompanyID is the tenant used when none is configured
	DefaultCompanyID = "default"
)

func main() {
	initializeLogger()

	config := loadEnvironmentConfig()
	flags := parseCommandLineFlags(config)

	// Hold the state directory lock for the lifetime of the process.
	lock, err := lockfile.AcquireLock(*flags.stateDir)
	if err != nil {
		slog.Error("Failed to acquire state directory lock", "error", err)
		os.Exit(1)
	}
	defer lock.Release()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := buildStore(flags)
	if err != nil {
		slog.Error("Failed to initialize store", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	msgService, err := buildMessagingService(flags)
	if err != nil {
		slog.Error("Failed to initialize messaging service", "error", err)
		os.Exit(1)
	}
	if err := msgService.Start(ctx); err != nil {
		slog.Error("Failed to start messaging service", "error", err)
		os.Exit(1)
	}
	defer msgService.Stop()

	ai := buildGenAIClient(flags)

	handler := messaging.NewLeadHandler(st, msgService, ai, *flags.companyID)
	handler.Start(ctx)

	sched := scheduler.NewScheduler()
	defer sched.Stop()
	if err := sched.AddJob(*flags.followUpCron, scheduler.FollowUpStaleLeads(st, msgService, *flags.companyID)); err != nil {
		slog.Error("Failed to schedule stale-lead follow-up", "error", err, "cron", *flags.followUpCron)
		os.Exit(1)
	}

	slog.Info("Bootstrapping leadpipe", "company_id", *flags.companyID, "transport", transportName(*flags.useTwilio))
	srv := api.NewServer(msgService, sched, st, handler, *flags.companyID)
	if err := srv.Run(ctx, api.WithAddr(*flags.apiAddr)); err != nil {
		slog.Error("leadpipe failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("leadpipe exited successfully")
}

// Config holds environment configuration
type Config struct {
	DatabaseDSN  string
	StateDir     string
	CompanyID    string
	OpenAIKey    string
	APIAddr      string
	FollowUpCron string
	UseTwilio    bool
}

// Flags holds command line flag values
type Flags struct {
	qrOutput     *string
	numeric      *bool
	stateDir     *string
	dbDSN        *string
	companyID    *string
	openaiKey    *string
	apiAddr      *string
	followUpCron *string
	useTwilio    *bool
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
		DatabaseDSN:  os.Getenv("DATABASE_URL"),
		StateDir:     util.GetEnvWithDefault("LEADPIPE_STATE_DIR", DefaultStateDir),
		CompanyID:    util.GetEnvWithDefault("LEADPIPE_COMPANY_ID", DefaultCompanyID),
		OpenAIKey:    os.Getenv("OPENAI_API_KEY"),
		APIAddr:      util.GetEnvWithDefault("API_ADDR", api.DefaultAddr),
		FollowUpCron: util.GetEnvWithDefault("FOLLOW_UP_SCHEDULE", scheduler.DefaultFollowUpExpr),
		UseTwilio:    util.ParseBoolEnv("LEADPIPE_USE_TWILIO", false),
	}

	// If no database URL is provided, default to SQLite in the state directory.
	if config.DatabaseDSN == "" {
		config.DatabaseDSN = filepath.Join(config.StateDir, DefaultDBFileName)
		slog.Debug("No database DSN provided, defaulting to SQLite", "sqlite_path", config.DatabaseDSN)
	}

	slog.Debug("environment variables loaded",
		"DATABASE_URL_SET", os.Getenv("DATABASE_URL") != "",
		"LEADPIPE_STATE_DIR", config.StateDir,
		"LEADPIPE_COMPANY_ID", config.CompanyID,
		"OPENAI_API_KEY_SET", config.OpenAIKey != "",
		"API_ADDR", config.APIAddr,
		"FOLLOW_UP_SCHEDULE", config.FollowUpCron,
		"LEADPIPE_USE_TWILIO", config.UseTwilio)

	return config
}

// parseCommandLineFlags parses command line arguments with environment defaults
func parseCommandLineFlags(config Config) Flags {
	flags := Flags{
		qrOutput:     flag.String("qr-output", "", "path to write WhatsApp login QR code"),
		numeric:      flag.Bool("numeric-code", false, "use numeric WhatsApp login code instead of QR code"),
		stateDir:     flag.String("state-dir", config.StateDir, "state directory for leadpipe data (overrides $LEADPIPE_STATE_DIR)"),
		dbDSN:        flag.String("db-dsn", config.DatabaseDSN, "database DSN for the lead store (overrides $DATABASE_URL)"),
		companyID:    flag.String("company-id", config.CompanyID, "tenant identifier served by this instance (overrides $LEADPIPE_COMPANY_ID)"),
		openaiKey:    flag.String("openai-api-key", config.OpenAIKey, "OpenAI API key (overrides $OPENAI_API_KEY)"),
		apiAddr:      flag.String("api-addr", config.APIAddr, "API server address (overrides $API_ADDR)"),
		followUpCron: flag.String("follow-up-cron", config.FollowUpCron, "cron schedule for stale-lead follow-ups (overrides $FOLLOW_UP_SCHEDULE)"),
		useTwilio:    flag.Bool("twilio", config.UseTwilio, "deliver messages through Twilio instead of a linked WhatsApp device (overrides $LEADPIPE_USE_TWILIO)"),
	}

	flag.Parse()

	// Keep a file-based DSN inside the chosen state directory when only the
	// directory was overridden.
	if *flags.dbDSN == config.DatabaseDSN &&
		config.DatabaseDSN == filepath.Join(config.StateDir, DefaultDBFileName) &&
		*flags.stateDir != config.StateDir {
		*flags.dbDSN = filepath.Join(*flags.stateDir, DefaultDBFileName)
		slog.Debug("Updated db-dsn based on state directory", "state_dir", *flags.stateDir)
	}

	slog.Debug("flags parsed",
		"stateDir", *flags.stateDir,
		"dbDSN_set", *flags.dbDSN != "",
		"companyID", *flags.companyID,
		"openaiKeySet", *flags.openaiKey != "",
		"apiAddr", *flags.apiAddr,
		"followUpCron", *flags.followUpCron,
		"useTwilio", *flags.useTwilio)

	return flags
}

// buildStore selects the SQL backend based on the DSN shape.
func buildStore(flags Flags) (store.Store, error) {
	if store.DetectDSNType(*flags.dbDSN) == "postgres" {
		slog.Debug("Detected PostgreSQL DSN, configuring PostgreSQL store")
		return store.NewPostgresStore(store.WithDSN(*flags.dbDSN))
	}
	slog.Debug("Detected SQLite DSN, configuring SQLite store", "db_path", *flags.dbDSN)
	return store.NewSQLiteStore(store.WithDSN(*flags.dbDSN))
}

// buildMessagingService constructs the outbound transport: Twilio when
// requested, otherwise a linked WhatsApp device.
func buildMessagingService(flags Flags) (messaging.Service, error) {
	if *flags.useTwilio {
		client, err := twiliowhatsapp.NewClient()
		if err != nil {
			return nil, err
		}
		return messaging.NewTwilioService(client), nil
	}

	waOpts := []whatsapp.Option{
		whatsapp.WithDBDSN(filepath.Join(*flags.stateDir, "whatsmeow.db")),
	}
	if *flags.qrOutput != "" {
		waOpts = append(waOpts, whatsapp.WithQRCodeOutput(*flags.qrOutput))
	}
	if *flags.numeric {
		waOpts = append(waOpts, whatsapp.WithNumericCode())
	}
	client, err := whatsapp.NewClient(waOpts...)
	if err != nil {
		return nil, err
	}
	return messaging.NewWhatsAppService(client), nil
}

// buildGenAIClient returns nil when no API key is configured; the pipeline
// then falls back to template replies and skips audio transcription.
func buildGenAIClient(flags Flags) genai.ClientInterface {
	var opts []genai.Option
	if *flags.openaiKey != "" {
		opts = append(opts, genai.WithAPIKey(*flags.openaiKey))
	}
	client, err := genai.NewClient(opts...)
	if err != nil {
		slog.Warn("GenAI client unavailable, continuing with template replies", "error", err)
		return nil
	}
	return client
}

func transportName(useTwilio bool) string {
	if useTwilio {
		return "twilio"
	}
	return "whatsapp"
}
