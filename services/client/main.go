package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/urfave/cli/v2"
	"golang.org/x/time/rate"

	"github.com/moses-Dera/TaskFlow-sub000/internal/config"
	"github.com/moses-Dera/TaskFlow-sub000/internal/gateway"
	"github.com/moses-Dera/TaskFlow-sub000/internal/live"
	"github.com/moses-Dera/TaskFlow-sub000/internal/logger"
	"github.com/moses-Dera/TaskFlow-sub000/internal/session"
	"github.com/moses-Dera/TaskFlow-sub000/internal/startup"
	"github.com/moses-Dera/TaskFlow-sub000/internal/storage"
)

const version = "0.3.0"

func main() {
	logger.SetPrefix("client")
	cfg := config.Load()

	app := &cli.App{
		Name:    "taskflow",
		Usage:   "TaskFlow team chat and notifications from the terminal",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "profile",
				Aliases: []string{"p"},
				Usage:   "Credential profile `NAME`",
				Value:   cfg.Profile,
			},
			&cli.StringFlag{
				Name:  "api",
				Usage: "Backend base `URL`",
				Value: cfg.APIBaseURL,
			},
			&cli.StringFlag{
				Name:  "transport",
				Usage: "Live events transport: auto, websocket or polling",
				Value: cfg.Transport,
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "debug, info or error",
				Value: cfg.LogLevel,
			},
		},
		Before: func(c *cli.Context) error {
			cfg.Profile = c.String("profile")
			if api := c.String("api"); api != cfg.APIBaseURL {
				cfg.APIBaseURL = api
				if os.Getenv("EVENTS_URL") == "" {
					cfg.EventsURL = ""
				}
			}
			cfg.Transport = c.String("transport")
			logger.SetLevel(c.String("log-level"))
			cfg.Normalize()
			return cfg.Validate()
		},
		Commands: []*cli.Command{
			loginCommand(cfg),
			logoutCommand(cfg),
			whoamiCommand(cfg),
			watchCommand(cfg),
			sendCommand(cfg),
			searchCommand(cfg),
			notificationsCommand(cfg),
			tasksCommand(cfg),
			performanceCommand(cfg),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

// env is what every command needs: the restored session and a gateway that
// authenticates with it.
type env struct {
	cfg     *config.Config
	store   storage.CredentialStore
	session *session.Session
	gw      *gateway.Client
}

func openEnv(ctx context.Context, cfg *config.Config) (*env, error) {
	store, err := startup.OpenCredentialStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("credential store: %w", err)
	}
	sess := session.New(store, cfg.Profile)
	if err := sess.Restore(ctx); err != nil {
		store.Close()
		return nil, err
	}
	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.RequestBurst)
	}
	gw := gateway.New(gateway.Options{
		BaseURL:       cfg.APIBaseURL,
		HTTPClient:    &http.Client{Timeout: cfg.RequestTimeout},
		Credentials:   sess,
		Limiter:       limiter,
		MaxUploadSize: cfg.MaxUploadSize,
	})
	return &env{cfg: cfg, store: store, session: sess, gw: gw}, nil
}

func (e *env) Close() {
	if err := e.store.Close(); err != nil {
		logger.Errorf("credential store close: %v", err)
	}
}

// identity returns the signed-in user or a friendly error.
func (e *env) identity() (session.Identity, error) {
	ident, ok := e.session.Identity()
	if !ok {
		return session.Identity{}, cli.Exit("not signed in; run `taskflow login`", 2)
	}
	return ident, nil
}

// transport builds the live transport named by cfg.Transport.
func transport(cfg *config.Config, gw *gateway.Client) live.Transport {
	ws := &live.WebSocket{
		URL:            cfg.EventsURL,
		WriteWait:      cfg.WSWriteTimeout,
		PongWait:       cfg.WSPongTimeout,
		MaxMessageSize: cfg.WSMaxMessageSize,
	}
	poll := &live.Polling{Gateway: gw, Interval: cfg.PollInterval}
	switch cfg.Transport {
	case config.TransportWebSocket:
		return ws
	case config.TransportPolling:
		return poll
	default:
		return &live.Fallback{Primary: ws, Secondary: poll}
	}
}
