// Package router maps action names and keyboard shortcut ids onto the
// controller scripts and hands them to the dispatcher.
package router

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/tomyan/playtab/internal/dispatch"
	"github.com/tomyan/playtab/internal/logging"
	"github.com/tomyan/playtab/internal/player"
)

// Action is one of the fixed playback actions.
type Action int

const (
	Toggle Action = iota + 1
	Next
	Prev
	Status
)

var actionNames = map[Action]string{
	Toggle: "toggle",
	Next:   "next",
	Prev:   "prev",
	Status: "status",
}

func (a Action) String() string {
	if name, ok := actionNames[a]; ok {
		return name
	}
	return fmt.Sprintf("Action(%d)", int(a))
}

// Actions returns every action in declaration order.
func Actions() []Action {
	return []Action{Toggle, Next, Prev, Status}
}

// ParseAction maps a wire name to its Action.
func ParseAction(name string) (Action, bool) {
	for a, n := range actionNames {
		if n == name {
			return a, true
		}
	}
	return 0, false
}

var shortcuts = map[string]Action{
	"toggle-play": Toggle,
	"next-track":  Next,
	"prev-track":  Prev,
}

// ShortcutIDs returns the known shortcut ids, sorted.
func ShortcutIDs() []string {
	ids := make([]string, 0, len(shortcuts))
	for id := range shortcuts {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Request is a UI-originated action request, {"action": "..."} on the wire.
type Request struct {
	Action string `json:"action"`
}

// Runner dispatches a script to the controlled tabs.
type Runner interface {
	Run(ctx context.Context, s player.Script) (*dispatch.Result, error)
}

// Option configures a Router.
type Option func(*Router)

// WithShortcutTimeout bounds each shortcut dispatch.
func WithShortcutTimeout(d time.Duration) Option {
	return func(r *Router) { r.shortcutTimeout = d }
}

// Router routes actions to scripts.
type Router struct {
	runner          Runner
	scripts         map[Action]player.Script
	shortcutTimeout time.Duration
	wg              sync.WaitGroup
}

// New compiles chains and returns a Router dispatching through runner.
func New(runner Runner, chains player.Chains, opts ...Option) (*Router, error) {
	table := map[Action]player.Chain{
		Toggle: chains.Toggle,
		Next:   chains.Next,
		Prev:   chains.Prev,
		Status: chains.Status,
	}

	r := &Router{
		runner:          runner,
		scripts:         make(map[Action]player.Script, len(table)),
		shortcutTimeout: 10 * time.Second,
	}
	for a, c := range table {
		s, err := player.Compile(a.String(), c)
		if err != nil {
			return nil, err
		}
		r.scripts[a] = s
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Do dispatches the script for a.
func (r *Router) Do(ctx context.Context, a Action) (*dispatch.Result, error) {
	s, ok := r.scripts[a]
	if !ok {
		return nil, fmt.Errorf("no script for %s", a)
	}
	return r.runner.Run(ctx, s)
}

// Handle serves a UI request and returns its eventual Result. Unknown
// action names are ignored: the Result and error are both nil.
func (r *Router) Handle(ctx context.Context, req Request) (*dispatch.Result, error) {
	a, ok := ParseAction(req.Action)
	if !ok {
		logging.FromContext(ctx).Debug("ignoring unknown action", "action", req.Action)
		return nil, nil
	}
	return r.Do(ctx, a)
}

// Shortcut dispatches the action bound to a keyboard shortcut id in the
// background and returns at once. Unknown ids are ignored. The dispatch
// outlives ctx's cancellation but keeps its values; Wait blocks until it
// finishes.
func (r *Router) Shortcut(ctx context.Context, command string) {
	log := logging.FromContext(ctx)
	a, ok := shortcuts[command]
	if !ok {
		log.Debug("ignoring unknown shortcut", "command", command)
		return
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.shortcutTimeout)
		defer cancel()

		if _, err := r.Do(ctx, a); err != nil {
			log.Warn("shortcut failed", "command", command, "err", err)
		}
	}()
}

// Wait blocks until every shortcut dispatch has finished.
func (r *Router) Wait() {
	r.wg.Wait()
}
