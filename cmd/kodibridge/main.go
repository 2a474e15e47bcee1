// kodibridge - webhook to Kodi JSON-RPC remote control bridge
//
// kodibridge turns authenticated HTTP requests from voice assistants and
// automation webhooks into JSON-RPC calls on one or more Kodi media
// centers. Every dispatched action can optionally be published to MQTT and
// recorded in InfluxDB.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/nerrad567/kodibridge/internal/api"
	"github.com/nerrad567/kodibridge/internal/infrastructure/config"
	"github.com/nerrad567/kodibridge/internal/infrastructure/influxdb"
	"github.com/nerrad567/kodibridge/internal/infrastructure/logging"
	"github.com/nerrad567/kodibridge/internal/infrastructure/mqtt"
	"github.com/nerrad567/kodibridge/internal/kodi"
	"github.com/nerrad567/kodibridge/internal/youtube"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Cancel on Ctrl+C and SIGTERM for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//   - args: Command-line arguments without the program name
//   - stdout: Destination for --version and --help output
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context, args []string, stdout io.Writer) error {
	flags := pflag.NewFlagSet("kodibridge", pflag.ContinueOnError)
	flags.SetOutput(stdout)
	configPath := flags.StringP("config", "c", getConfigPath(), "path to the YAML configuration file (env KODIBRIDGE_CONFIG)")
	showVersion := flags.Bool("version", false, "print version information and exit")

	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if flags.NArg() > 0 {
		return fmt.Errorf("unexpected argument: %s", flags.Arg(0))
	}

	if *showVersion {
		fmt.Fprintf(stdout, "kodibridge %s (commit %s, built %s)\n", version, commit, date)
		return nil
	}

	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting kodibridge",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", *configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Kodi targets
	targets, err := kodi.FromConfig(cfg.Kodi, log)
	if err != nil {
		return fmt.Errorf("creating kodi clients: %w", err)
	}
	defer func() {
		log.Info("closing kodi clients")
		if closeErr := targets.Close(); closeErr != nil {
			log.Error("error closing kodi clients", "error", closeErr)
		}
	}()
	log.Info("kodi targets configured",
		"instances", targets.IDs(),
		"default", targets.Default().ID,
		"call_timeout", cfg.GetCallTimeout(),
	)

	yt := youtube.New(cfg.YouTube.APIKey)
	if yt.Enabled() {
		log.Info("YouTube search enabled")
	} else {
		log.Info("YouTube search disabled, falling back to the Kodi add-on search")
	}

	var recorders []api.ActionRecorder

	// Connect to MQTT broker (optional)
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT, log)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		log.Info("MQTT connected",
			"broker", cfg.MQTT.Broker.Host,
			"port", cfg.MQTT.Broker.Port,
			"client_id", cfg.MQTT.Broker.ClientID,
		)
		recorders = append(recorders, &mqttRecorder{client: mqttClient, log: log})
	} else {
		log.Info("MQTT disabled")
	}

	// Connect to InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(ctx, cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		recorders = append(recorders, &influxRecorder{client: influxClient})
	} else {
		log.Info("InfluxDB disabled")
	}

	if err := healthCheck(ctx, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	server, err := api.New(api.Deps{
		Listener:    cfg.Listener,
		Token:       cfg.Auth.Token,
		Security:    cfg.Security,
		Landing:     cfg.Landing,
		Targets:     targets,
		YouTube:     yt,
		Recorders:   recorders,
		Logger:      log,
		Version:     version,
		CallTimeout: cfg.GetCallTimeout(),
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	// Closed before the recorders so detached actions can still record.
	defer func() {
		log.Info("stopping API server")
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error stopping API server", "error", closeErr)
		}
	}()
	log.Info("API server listening",
		"address", server.Addr(),
		"tls", cfg.Listener.TLS.Enabled,
		"read_timeout", cfg.GetReadTimeout(),
		"write_timeout", cfg.GetWriteTimeout(),
		"idle_timeout", cfg.GetIdleTimeout(),
		"rate_limit", cfg.Security.RateLimit.Enabled,
	)

	log.Info("initialisation complete, waiting for shutdown signal")

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// 1. API server (drains in-flight and detached actions)
	// 2. InfluxDB (if enabled)
	// 3. MQTT (if enabled)
	// 4. Kodi clients

	log.Info("kodibridge stopped")
	return nil
}

// getConfigPath returns the default configuration file path.
// Uses KODIBRIDGE_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("KODIBRIDGE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies the optional infrastructure connections.
// Nil clients are disabled and skipped.
func healthCheck(ctx context.Context, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}
