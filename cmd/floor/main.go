// Floor runs a GANDALF turn-taking controller against a perception source
// and serves a live dashboard.
//
// Press Enter to queue an action, type "end" to end the running one.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/teslashibe/go-floor/internal/config"
	flog "github.com/teslashibe/go-floor/internal/log"
	"github.com/teslashibe/go-floor/pkg/gandalf"
	"github.com/teslashibe/go-floor/pkg/perception"
	"github.com/teslashibe/go-floor/pkg/turn"
	"github.com/teslashibe/go-floor/pkg/web"
)

func main() {
	_ = godotenv.Load()

	cfg := loadConfig()
	flog.Init(cfg.LogLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, flog.L()); err != nil {
		log.Fatalf("❌ Runtime error: %v", err)
	}
}

// loadConfig merges the config file, environment and command line flags.
func loadConfig() config.Config {
	configPath := flag.String("config", "", "YAML config file")
	variant := flag.String("variant", "", "Rule set: single or multi")
	scenario := flag.String("scenario", "", "YAML perception scenario to replay")
	partner := flag.Int("partner", -1, "Partner index for the single-party variant")
	tickMS := flag.Int("tick-ms", 0, "Tick period in milliseconds")
	port := flag.Int("port", 0, "Dashboard port")
	noWeb := flag.Bool("no-web", false, "Disable the dashboard")
	debug := flag.Bool("debug", false, "Enable verbose debug logging")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ Configuration error: %v", err)
	}

	if *variant != "" {
		v, err := gandalf.ParseVariant(*variant)
		if err != nil {
			log.Fatalf("❌ Configuration error: %v", err)
		}
		cfg.Variant = v
	}
	if *scenario != "" {
		cfg.Scenario = *scenario
	}
	if *partner >= 0 {
		cfg.Partner = *partner
	}
	if *tickMS > 0 {
		cfg.Tick = time.Duration(*tickMS) * time.Millisecond
	}
	if *port > 0 {
		cfg.Web.Port = *port
	}
	if *noWeb {
		cfg.Web.Enabled = false
	}
	if *debug {
		cfg.LogLevel = "debug"
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("❌ Configuration error: %v", err)
	}
	return cfg
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	ctl, err := turn.New(cfg.Variant,
		turn.WithLogger(logger),
		turn.WithMetrics(turn.NewMetrics(prometheus.DefaultRegisterer)),
		turn.WithTransformer(turn.TransformerFor(cfg.Variant == gandalf.MultiParty, cfg.Partner)),
		turn.WithActionCeiling(cfg.ActionCeiling),
	)
	if err != nil {
		return fmt.Errorf("build controller: %w", err)
	}

	source, err := newSource(cfg.Scenario, ctl, logger)
	if err != nil {
		return err
	}

	var sinks []turn.Sink
	if cfg.Web.Enabled {
		dash := web.NewServer(ctl, web.Config{
			Port:     cfg.Web.Port,
			Gatherer: prometheus.DefaultGatherer,
			Logger:   logger,
		})
		sinks = append(sinks, dash)
		go func() {
			if err := dash.Start(ctx); err != nil {
				logger.Error("web dashboard stopped", "error", err)
			}
		}()
		fmt.Printf("🌐 Web dashboard: http://localhost:%d\n", cfg.Web.Port)
	}

	go readKeys(ctx, ctl, logger)

	logger.Info("floor controller ready",
		"variant", cfg.Variant.String(),
		"state", ctl.State(),
		"scenario", cfg.Scenario,
	)
	runner := turn.NewRunner(ctl, source, turn.RunnerConfig{Period: cfg.Tick, Logger: logger}, sinks...)
	return runner.Run(ctx)
}

// newSource replays a scenario, or reports an empty room when none is set.
func newSource(path string, ctl *turn.Controller, logger *slog.Logger) (perception.Source, error) {
	if path == "" {
		return perception.SourceFunc(func(ctx context.Context) (perception.Frame, error) {
			return perception.Frame{WhoSpeaking: perception.SpeakerNobody}, ctx.Err()
		}), nil
	}

	script, err := perception.LoadScript(path)
	if err != nil {
		return nil, err
	}
	logger.Info("replaying scenario", "name", script.Name, "steps", len(script.Steps), "loop", script.Loop)
	return perception.NewPlayer(script, func(st perception.Step) {
		logger.Debug("scenario step", "step", st.Name)
		if st.Queue {
			ctl.QueueAction()
		}
	}), nil
}

// readKeys maps stdin lines to controller requests.
func readKeys(ctx context.Context, ctl *turn.Controller, logger *slog.Logger) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		switch strings.ToLower(strings.TrimSpace(scanner.Text())) {
		case "end", "e":
			ctl.EndAction()
			logger.Info("action end requested", "via", "stdin")
		default:
			ctl.QueueAction()
			logger.Info("action queued", "via", "stdin")
		}
	}
}
