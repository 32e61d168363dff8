package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/tomyan/playtab/internal/dispatch"
	"github.com/tomyan/playtab/internal/router"
)

type deadlineHandler struct {
	deadline time.Time
	ok       bool
}

func (h *deadlineHandler) Handle(ctx context.Context, req router.Request) (*dispatch.Result, error) {
	h.deadline, h.ok = ctx.Deadline()
	return dispatch.NoTab(), nil
}

func TestTimeoutHandler(t *testing.T) {
	next := &deadlineHandler{}
	h := timeoutHandler{next: next, timeout: time.Minute}

	start := time.Now()
	res, err := h.Handle(context.Background(), router.Request{Action: "toggle"})

	assert.NoError(t, err)
	assert.False(t, res.Success)
	assert.True(t, next.ok)
	assert.WithinDuration(t, start.Add(time.Minute), next.deadline, 5*time.Second)
}
