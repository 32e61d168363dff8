package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomyan/playtab/internal/chrome"
	"github.com/tomyan/playtab/internal/logging"
	"github.com/tomyan/playtab/internal/player"
)

type fixedLocator struct {
	tabs []chrome.TargetInfo
	err  error
}

func (f fixedLocator) Find(ctx context.Context) ([]chrome.TargetInfo, error) {
	return f.tabs, f.err
}

type scriptedInjector struct {
	fail     map[string]bool
	injected []string
	cancel   func()
}

func (s *scriptedInjector) Inject(ctx context.Context, targetID string, script player.Script) (*player.Outcome, error) {
	s.injected = append(s.injected, targetID)
	if s.cancel != nil {
		s.cancel()
	}
	if s.fail[targetID] {
		return nil, errors.New("target crashed")
	}
	return &player.Outcome{Method: "button"}, nil
}

var nextScript = player.MustCompile("next", player.DefaultChains().Next)

func tabList(ids ...string) []chrome.TargetInfo {
	tabs := make([]chrome.TargetInfo, len(ids))
	for i, id := range ids {
		tabs[i] = chrome.TargetInfo{ID: id, Type: "page", URL: "https://open.spotify.com/" + id}
	}
	return tabs
}

func TestRun_NoTab(t *testing.T) {
	t.Parallel()

	inj := &scriptedInjector{}
	d := New(fixedLocator{}, inj)

	res, err := d.Run(context.Background(), nextScript)

	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "No tab open", res.Message)
	assert.Empty(t, inj.injected, "no injection without a tab")
}

func TestRun_PartialFailure(t *testing.T) {
	t.Parallel()

	var logs bytes.Buffer
	ctx := logging.AddToContext(context.Background(), logging.New(&logs, slog.LevelWarn))
	inj := &scriptedInjector{fail: map[string]bool{"B": true, "D": true}}
	d := New(fixedLocator{tabs: tabList("A", "B", "C", "D", "E")}, inj)

	res, err := d.Run(ctx, nextScript)

	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, []string{"A", "B", "C", "D", "E"}, inj.injected, "every tab attempted in order")
	require.Len(t, res.Results, 3)
	assert.Equal(t, "A", res.Results[0].TabID)
	assert.Equal(t, "C", res.Results[1].TabID)
	assert.Equal(t, "E", res.Results[2].TabID)
	assert.Equal(t, "https://open.spotify.com/C", res.Results[1].URL)
	assert.Contains(t, logs.String(), "inject failed")
	assert.Contains(t, logs.String(), "tab=B")
}

func TestRun_AllFail(t *testing.T) {
	t.Parallel()

	inj := &scriptedInjector{fail: map[string]bool{"A": true}}
	d := New(fixedLocator{tabs: tabList("A")}, inj)

	res, err := d.Run(context.Background(), nextScript)

	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Empty(t, res.Results)
}

func TestRun_LocatorError(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	d := New(fixedLocator{err: boom}, &scriptedInjector{})

	res, err := d.Run(context.Background(), nextScript)

	assert.Nil(t, res)
	assert.ErrorIs(t, err, boom)
}

func TestRun_StopsWhenContextEnds(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	inj := &scriptedInjector{cancel: cancel}
	d := New(fixedLocator{tabs: tabList("A", "B")}, inj)

	res, err := d.Run(ctx, nextScript)

	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, res)
	assert.Len(t, res.Results, 1)
	assert.Equal(t, []string{"A"}, inj.injected)
}

func TestResult_JSON(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(NoTab())
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":false,"message":"No tab open"}`, string(data))

	data, err = json.Marshal(&Result{Success: true})
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":true,"results":[]}`, string(data))

	data, err = json.Marshal(&Result{Success: true, Results: []TabResult{
		{TabID: "A", Res: &player.Outcome{Method: "aria", Action: "play"}},
	}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":true,"results":[{"tabId":"A","res":{"method":"aria","action":"play"}}]}`, string(data))
}

func TestResult_UnmarshalJSON(t *testing.T) {
	t.Parallel()

	var res Result
	require.NoError(t, json.Unmarshal([]byte(`{"success":true,"results":[{"tabId":"A","res":{"paused":null,"title":null}}]}`), &res))

	assert.True(t, res.Success)
	require.Len(t, res.Results, 1)
	assert.Nil(t, res.Results[0].Res.Title)

	data, err := json.Marshal(res)
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":true,"results":[{"tabId":"A","res":{"paused":null,"title":null}}]}`, string(data))
}
