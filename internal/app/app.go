package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/five82/pulse/internal/config"
	"github.com/five82/pulse/internal/coordinator"
	"github.com/five82/pulse/internal/dashboard"
	"github.com/five82/pulse/internal/live"
	"github.com/five82/pulse/internal/logging"
	"github.com/five82/pulse/internal/metrics"
	"github.com/five82/pulse/internal/notify"
	"github.com/five82/pulse/internal/poll"
	"github.com/five82/pulse/internal/prefs"
	"github.com/five82/pulse/internal/state"
	"github.com/five82/pulse/internal/status"
	"github.com/five82/pulse/internal/ui"
)

// Options configure the pulse application.
type Options struct {
	ConfigPath string
	PrefsPath  string // empty uses default ~/.config/pulse/prefs.toml
	PollEvery  int    // seconds; zero uses the configured interval
	Headless   bool   // log updates instead of running the TUI
	LogLevel   string // overrides log_level when set

	// Output receives headless logs. Nil means os.Stderr.
	Output io.Writer
}

const shutdownTimeout = 5 * time.Second

// runtime is the wired object graph for one session.
type runtime struct {
	client      *dashboard.Client
	poller      *poll.Poller
	gate        *notify.Gate
	store       *state.Store
	metrics     *metrics.Sync
	coordinator *coordinator.Coordinator
}

// Run loads configuration, wires the sync core and blocks until ctx ends or
// the user quits the TUI.
func Run(ctx context.Context, opts Options) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if opts.PollEvery > 0 {
		cfg.PollInterval = time.Duration(opts.PollEvery) * time.Second
	}
	if opts.LogLevel != "" {
		cfg.LogLevel = opts.LogLevel
	}

	logCfg := logging.Config{Level: cfg.LogLevel, File: cfg.LogFile}
	if opts.Headless {
		logCfg = logging.Config{
			Level:   cfg.LogLevel,
			Format:  logging.FormatConsole,
			Output:  opts.Output,
			NoColor: opts.Output != nil,
		}
	}
	logger, closer, err := logging.New(logCfg)
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer closer.Close()

	rt, err := build(cfg, logger)
	if err != nil {
		return err
	}
	if opts.Headless {
		rt.coordinator.AddListener(newHeadlessListener(logger))
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return ignoreCanceled(rt.coordinator.Run(ctx))
	})

	if cfg.MetricsAddr != "" {
		srv := &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           metricsMux(rt.metrics),
			ReadHeaderTimeout: 5 * time.Second,
			BaseContext:       func(net.Listener) context.Context { return ctx },
		}
		g.Go(func() error {
			logger.Info().Str("addr", cfg.MetricsAddr).Msg("metrics listening")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancelShutdown()
			return srv.Shutdown(shutdownCtx)
		})
	}

	if !opts.Headless {
		userPrefs, err := prefs.Load(opts.PrefsPath)
		if err != nil {
			logger.Warn().Err(err).Msg("prefs unreadable, using defaults")
		}
		g.Go(func() error {
			defer cancel()
			err := ui.Run(ui.Options{
				Context:    ctx,
				Store:      rt.store,
				Refresh:    rt.coordinator.Refresh,
				AuthStatus: rt.client.FetchAuthStatus,
				AuthURL:    rt.client.AuthURL(),
				LogPath:    cfg.LogFile,
				ThemeName:  userPrefs.Theme,
				ShowLogs:   userPrefs.ShowLogs,
				PrefsPath:  opts.PrefsPath,
				Logger:     logger,
			})
			if errors.Is(err, tea.ErrProgramKilled) {
				return nil
			}
			return err
		})
	}

	logger.Info().
		Str("server", cfg.ServerURL).
		Str("session", rt.client.SessionID()).
		Dur("poll_interval", rt.poller.Interval()).
		Dur("prompt_cooldown", rt.gate.Cooldown()).
		Bool("headless", opts.Headless).
		Msg("pulse started")

	err = g.Wait()
	rt.poller.Wait()
	logger.Info().Msg("pulse stopped")
	return err
}

// build wires the sync core for cfg.
func build(cfg config.Config, logger zerolog.Logger) (*runtime, error) {
	client, err := dashboard.NewClient(cfg.ServerURL)
	if err != nil {
		return nil, fmt.Errorf("init dashboard client: %w", err)
	}

	socket := live.NewSocket(client.LiveURL(cfg.LivePath),
		live.WithHeader(client.Headers()),
		live.WithHandshakeTimeout(cfg.HandshakeTimeout),
		live.WithLogger(logger),
	)
	poller := poll.New(client, cfg.PollInterval, poll.WithLogger(logger))
	gate := notify.NewGate(cfg.PromptCooldown)
	store := &state.Store{}
	m := metrics.New()

	coord := coordinator.New(socket, poller, gate,
		coordinator.WithStore(store),
		coordinator.WithMetrics(m),
		coordinator.WithRefresher(client),
		coordinator.WithLogger(logger),
	)

	return &runtime{
		client:      client,
		poller:      poller,
		gate:        gate,
		store:       store,
		metrics:     m,
		coordinator: coord,
	}, nil
}

func metricsMux(m *metrics.Sync) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	return mux
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// newHeadlessListener logs every update in place of rendering.
func newHeadlessListener(logger zerolog.Logger) coordinator.Listener {
	l := logger.With().Str("component", "headless").Logger()
	return coordinator.ListenerFuncs{
		SnapshotChanged: func(u coordinator.Update) {
			ev := l.Info()
			if u.Status.Banner == status.BannerError {
				ev = l.Warn()
			}
			ev = ev.Uint64("seq", u.Seq).
				Str("origin", string(u.Origin)).
				Str("category", string(u.Status.Category)).
				Int("records", len(u.Records)).
				Bool("needs_action", u.Status.NeedsAction).
				Str("status_message", u.Status.Message)
			if !u.ServerTime.IsZero() {
				ev = ev.Time("server_time", u.ServerTime)
			}
			ev.Msg("update")
			if u.Prompt {
				l.Warn().Str("action", string(u.Status.Action)).Msg("authorization required, open the dashboard /auth page")
			}
		},
		ConnectionStatusChanged: func(connected bool) {
			if connected {
				l.Info().Msg("push channel connected, polling paused")
			} else {
				l.Warn().Msg("push channel lost, polling resumed")
			}
		},
	}
}
