package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/tomyan/playtab/internal/dispatch"
	"github.com/tomyan/playtab/internal/logging"
	"github.com/tomyan/playtab/internal/popup"
	"github.com/tomyan/playtab/internal/router"
)

// timeoutHandler bounds every request to the popup's handler.
type timeoutHandler struct {
	next    popup.Handler
	timeout time.Duration
}

func (h timeoutHandler) Handle(ctx context.Context, req router.Request) (*dispatch.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()
	return h.next.Handle(ctx, req)
}

// cmdPopup opens the interactive popup over a single browser connection.
func cmdPopup(cfg *Config) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logging.AddToContext(ctx, cfg.logger())

	connectCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	client, err := connect(connectCtx, cfg)
	cancel()
	if err != nil {
		return exitForConnect(cfg, err)
	}
	defer client.Close()

	r, err := newRouter(cfg, client)
	if err != nil {
		fmt.Fprintf(cfg.Stderr, "error: %v\n", err)
		return ExitError
	}

	h := timeoutHandler{next: r, timeout: cfg.Timeout}
	if err := popup.Run(ctx, h, cfg.SiteName, cfg.Stdin, cfg.Stdout); err != nil {
		fmt.Fprintf(cfg.Stderr, "error: %v\n", err)
		return ExitError
	}
	return ExitSuccess
}
