package main

import (
	"context"

	"github.com/tomyan/playtab/internal/logging"
	"github.com/tomyan/playtab/internal/router"
)

func cmdAction(cfg *Config, a router.Action) int {
	noTab := false
	code := withRouter(cfg, func(ctx context.Context, r *router.Router) (interface{}, error) {
		res, err := r.Do(ctx, a)
		if err != nil {
			return nil, err
		}
		noTab = !res.Success
		return actionReply{res: res, action: a, siteName: cfg.SiteName}, nil
	})
	if code == ExitSuccess && noTab {
		return ExitNoTab
	}
	return code
}

// cmdShortcut fires a shortcut and waits for it before the connection
// closes. Shortcuts have no reply, so nothing is printed.
func cmdShortcut(cfg *Config, id string) int {
	return withRouterQuiet(cfg, func(ctx context.Context, r *router.Router) error {
		logging.FromContext(ctx).Debug("shortcut", "command", id)
		r.Shortcut(ctx, id)
		r.Wait()
		return nil
	})
}

// withRouterQuiet is withRouter for commands that print nothing.
func withRouterQuiet(cfg *Config, fn func(ctx context.Context, r *router.Router) error) int {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()
	ctx = logging.AddToContext(ctx, cfg.logger())

	client, err := connect(ctx, cfg)
	if err != nil {
		return exitForConnect(cfg, err)
	}
	defer client.Close()

	r, err := newRouter(cfg, client)
	if err != nil {
		return exitForError(cfg, ctx, err)
	}
	return exitForError(cfg, ctx, fn(ctx, r))
}
