package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"

	"github.com/moses-Dera/TaskFlow-sub000/internal/chat"
	"github.com/moses-Dera/TaskFlow-sub000/internal/config"
	"github.com/moses-Dera/TaskFlow-sub000/internal/gateway"
	"github.com/moses-Dera/TaskFlow-sub000/internal/live"
	"github.com/moses-Dera/TaskFlow-sub000/internal/logger"
	"github.com/moses-Dera/TaskFlow-sub000/internal/model"
	"github.com/moses-Dera/TaskFlow-sub000/internal/reconcile"
	"github.com/moses-Dera/TaskFlow-sub000/internal/session"
)

const watchHelp = `commands:
  TEXT                 send to the open conversation
  /group               open the group conversation
  /dm USER             open the direct conversation with USER
  /reply ID TEXT       answer message ID
  /edit ID TEXT        change your message
  /delete ID           delete your message
  /react ID EMOJI      toggle a reaction
  /attach PATH [TEXT]  send a file
  /search TEXT         search messages
  /read ID|all         mark notifications read
  /typing              show that you are typing
  /quit`

func watchCommand(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "Follow a conversation live and chat from stdin",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "with", Usage: "open the direct conversation with user `ID` instead of the group"},
		},
		Action: func(c *cli.Context) error {
			logger.SetPrefix("watch")
			e, err := openEnv(c.Context, cfg)
			if err != nil {
				return err
			}
			defer e.Close()
			ident, err := e.identity()
			if err != nil {
				return err
			}
			scope := model.Group()
			if peer := c.String("with"); peer != "" {
				scope = model.Direct(peer)
			}
			return watch(c.Context, e, ident, scope, os.Stdin)
		},
	}
}

func watch(ctx context.Context, e *env, ident session.Identity, scope model.Scope, in io.Reader) error {
	lc := live.New(live.Options{
		Transport:  transport(e.cfg, e.gw),
		RetryDelay: e.cfg.ReconnectDelay,
		MaxRetries: e.cfg.ReconnectAttempts,
	})
	engine := chat.New(chat.Options{
		Gateway:    e.gw,
		Self:       ident.Ref(),
		Publisher:  lc,
		TypingIdle: e.cfg.TypingIdle,
		TypingTTL:  e.cfg.TypingTTL,
	})

	engineCtx, engineCancel := context.WithCancel(ctx)
	var engineWg sync.WaitGroup
	engineWg.Add(1)
	go func() {
		defer engineWg.Done()
		engine.Run(engineCtx)
	}()

	r := &renderer{printed: make(map[string]string)}
	unsubscribe, err := engine.Subscribe(ctx, r.render)
	if err != nil {
		engineCancel()
		engineWg.Wait()
		return err
	}
	detach := engine.Attach(lc)
	unbind := live.Bind(e.session, lc)

	var srv *http.Server
	if e.cfg.MetricsAddr != "" {
		srv = serveMetrics(e.cfg.MetricsAddr)
	}

	if err := engine.SwitchScope(ctx, scope); err != nil {
		logger.Errorf("open %s: %v", scope, err)
	}
	if err := engine.LoadNotifications(ctx); err != nil {
		logger.Errorf("load notifications: %v", err)
	}
	fmt.Println(watchHelp)

	lines := readLines(in)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

loop:
	for {
		select {
		case <-quit:
			logger.Info("shutdown signal received")
			break loop
		case <-ctx.Done():
			break loop
		case line, ok := <-lines:
			if !ok {
				break loop
			}
			if !handleLine(ctx, engine, line) {
				break loop
			}
		}
	}

	unbind()
	logger.Info("live events stopped")
	detach()
	unsubscribe()
	engineCancel()
	engineWg.Wait()
	logger.Info("engine stopped")
	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Errorf("metrics shutdown: %v", err)
		}
	}
	return nil
}

func serveMetrics(addr string) *http.Server {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		logger.Infof("metrics listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("metrics server: %v", err)
		}
	}()
	return srv
}

func readLines(in io.Reader) <-chan string {
	out := make(chan string)
	go func() {
		defer close(out)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			out <- sc.Text()
		}
	}()
	return out
}

// handleLine runs one input line and reports whether to keep going.
func handleLine(ctx context.Context, engine *chat.Engine, line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return true
	}
	if !strings.HasPrefix(line, "/") {
		report(engine.Send(ctx, chat.Draft{Content: line}))
		return true
	}

	cmd, rest, _ := strings.Cut(line, " ")
	arg, text, _ := strings.Cut(strings.TrimSpace(rest), " ")
	switch cmd {
	case "/quit", "/exit":
		return false
	case "/group":
		reportErr(engine.SwitchScope(ctx, model.Group()))
	case "/dm":
		if arg == "" {
			fmt.Println("usage: /dm USER")
			return true
		}
		reportErr(engine.SwitchScope(ctx, model.Direct(arg)))
	case "/reply":
		report(engine.Send(ctx, chat.Draft{Content: text, ReplyToID: arg}))
	case "/edit":
		reportErr(engine.Edit(ctx, arg, text))
	case "/delete":
		reportErr(engine.Delete(ctx, arg))
	case "/react":
		added, err := engine.React(ctx, arg, strings.TrimSpace(text))
		if err == nil && !added {
			fmt.Printf("reaction removed from %s\n", arg)
		}
		reportErr(err)
	case "/attach":
		f, err := os.Open(arg)
		if err != nil {
			reportErr(err)
			return true
		}
		report(engine.Send(ctx, chat.Draft{Content: text, Files: []gateway.Upload{{FileName: filepath.Base(arg), Body: f}}}))
		f.Close()
	case "/search":
		msgs, err := engine.Search(ctx, strings.TrimSpace(rest))
		if err != nil {
			reportErr(err)
			return true
		}
		for i := range msgs {
			printMessage(&msgs[i], "? ")
		}
		fmt.Printf("%s found\n", plural(len(msgs), "message"))
	case "/read":
		if arg == "all" {
			reportErr(engine.MarkAllNotificationsRead(ctx))
		} else {
			reportErr(engine.MarkNotificationRead(ctx, arg))
		}
	case "/typing":
		engine.Keystroke()
	case "/help":
		fmt.Println(watchHelp)
	default:
		fmt.Printf("unknown command %s, try /help\n", cmd)
	}
	return true
}

func report(_ model.Message, err error) {
	reportErr(err)
}

func reportErr(err error) {
	switch {
	case err == nil:
	case errors.Is(err, chat.ErrSuperseded):
	case gateway.Retryable(err):
		fmt.Printf("! %v (try again)\n", err)
	default:
		fmt.Printf("! %v\n", err)
	}
}

// renderer prints what changed between consecutive views. It runs on the engine
// goroutine, so it keeps no locks.
type renderer struct {
	scope       model.Scope
	started     bool
	connection  live.State
	printed     map[string]string
	unread      string
	typing      string
	unreadNotes int
	notes       map[string]bool
}

func (r *renderer) render(v chat.View) {
	if !r.started || v.Connection != r.connection {
		fmt.Printf("-- %s\n", v.Connection)
		r.connection = v.Connection
	}
	if !r.started || v.Scope != r.scope {
		fmt.Printf("== %s\n", v.Scope)
		r.scope = v.Scope
		clear(r.printed)
	}
	r.started = true

	if !v.Loading {
		r.renderEntries(v.Entries)
	}
	if u := formatUnread(v.Unread); u != r.unread {
		if u != "" {
			fmt.Printf("-- unread: %s\n", u)
		}
		r.unread = u
	}
	if t := strings.Join(v.Typing, ", "); t != r.typing {
		if t != "" {
			fmt.Printf("-- %s typing...\n", t)
		}
		r.typing = t
	}
	r.renderNotifications(v.Notifications, v.UnreadNotifications)
}

func (r *renderer) renderEntries(entries []reconcile.Entry) {
	for i := range entries {
		e := &entries[i]
		sig := signature(e)
		prev, seen := r.printed[e.Key()]
		switch {
		case e.State == reconcile.Pending:
			if !seen {
				printMessage(&e.Message, "… ")
			}
		case !seen && r.printed[e.Message.ClientID] != "":
			fmt.Printf("✓ sent as %s\n", e.Message.ID)
			delete(r.printed, e.Message.ClientID)
		case !seen:
			printMessage(&e.Message, "")
		case prev != sig:
			printMessage(&e.Message, "~ ")
		}
		r.printed[e.Key()] = sig
	}
}

func (r *renderer) renderNotifications(items []model.Notification, unread int) {
	if r.notes == nil {
		r.notes = make(map[string]bool, len(items))
		for _, n := range items {
			r.notes[n.ID] = true
		}
	}
	for _, n := range items {
		if !r.notes[n.ID] {
			printNotification(n)
			r.notes[n.ID] = true
		}
	}
	if unread != r.unreadNotes {
		fmt.Printf("-- %s unread\n", plural(unread, "notification"))
		r.unreadNotes = unread
	}
}

func signature(e *reconcile.Entry) string {
	var b strings.Builder
	b.WriteString(e.Message.Content)
	if e.Message.Pinned {
		b.WriteString("|pinned")
	}
	for _, rc := range e.Message.Reactions {
		users := slices.Clone(rc.Users)
		slices.Sort(users)
		fmt.Fprintf(&b, "|%s:%s", rc.Emoji, strings.Join(users, ","))
	}
	return b.String()
}

func formatUnread(m map[string]int) string {
	keys := make([]string, 0, len(m))
	for k, n := range m {
		if n > 0 {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s %d", k, m[k])
	}
	return strings.Join(parts, ", ")
}
