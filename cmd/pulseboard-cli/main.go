// Command pulseboard-cli renders a pulseboard server's dashboard in the
// terminal and updates it as crypto pushes arrive.
//
// Type "r" + Enter to refresh, "q" + Enter to quit.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/pulseboard/internal/client"
)

const clearScreen = "\033[H\033[2J"

func main() {
	serverURL := flag.String("server", "http://localhost:3000", "pulseboard server base URL")
	wsURL := flag.String("ws", "", "push channel URL (default: derived from -server)")
	timeout := flag.Duration("timeout", 10*time.Second, "dashboard request timeout")
	logLevel := flag.String("log-level", "warn", "log level (debug|info|warn|error)")
	flag.Parse()

	// Logs go to stderr so they never interleave with the rendered view.
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLevel(*logLevel),
	}))
	slog.SetDefault(logger)

	if *wsURL == "" {
		*wsURL = pushURL(*serverURL)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	store := client.NewStore(client.NewAPIClient(*serverURL, *timeout), logger)
	push := client.NewPushClient(*wsURL, logger)

	render := newRenderer(os.Stdout)
	unsubscribe := store.Subscribe(render.draw)
	defer unsubscribe()
	render.draw(store.State())

	go readCommands(ctx, os.Stdin, store, cancel, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return push.Run(gctx)
	})
	g.Go(func() error {
		return client.Mount(gctx, store, push)
	})

	if err := g.Wait(); err != nil {
		logger.Error("client exited with error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// renderer redraws the whole view on every state change.
type renderer struct {
	mu    sync.Mutex
	out   io.Writer
	clear bool
}

func newRenderer(f *os.File) *renderer {
	return &renderer{
		out:   f,
		clear: isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()),
	}
}

func (r *renderer) draw(s client.State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.clear {
		fmt.Fprint(r.out, clearScreen)
	} else {
		fmt.Fprintln(r.out, strings.Repeat("-", 40))
	}
	if err := client.Render(r.out, s); err != nil {
		slog.Error("render failed", slog.String("error", err.Error()))
	}
}

func readCommands(ctx context.Context, in io.Reader, store *client.Store, quit context.CancelFunc, logger *slog.Logger) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		switch strings.TrimSpace(scanner.Text()) {
		case "r":
			go func() {
				// failures are logged by the store
				_ = store.Refresh(ctx)
			}()
		case "q":
			quit()
			return
		case "":
		default:
			logger.Warn("unknown command, use r or q", slog.String("input", scanner.Text()))
		}
	}
}

// pushURL maps http(s)://host to ws(s)://host/ws.
func pushURL(server string) string {
	u := strings.TrimRight(server, "/")
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}
	return u + "/ws"
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}
