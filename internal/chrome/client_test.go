package chrome_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomyan/playtab/internal/chrome"
	"github.com/tomyan/playtab/internal/testutil"
)

func connect(t *testing.T, fb *testutil.FakeBrowser) *chrome.Client {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := chrome.Connect(ctx, fb.Host(), fb.Port())
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client
}

func newFake(t *testing.T) *testutil.FakeBrowser {
	t.Helper()
	fb := testutil.NewFakeBrowser()
	t.Cleanup(fb.Close)
	return fb
}

func TestClient_Version(t *testing.T) {
	fb := newFake(t)
	client := connect(t, fb)

	version, err := client.Version(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "FakeChrome/1.0", version.Browser)
	assert.Equal(t, "1.3", version.ProtocolVersion)
	assert.Contains(t, client.WebSocketURL(), "/devtools/browser/")
}

func TestClient_Pages(t *testing.T) {
	fb := newFake(t)
	fb.SetTargets(
		testutil.Page("A", "https://open.spotify.com/"),
		testutil.Target{ID: "W", Type: "service_worker", URL: "https://open.spotify.com/sw.js"},
		testutil.Page("B", "about:blank"),
	)
	client := connect(t, fb)

	targets, err := client.Targets(context.Background())
	require.NoError(t, err)
	assert.Len(t, targets, 3)

	pages, err := client.Pages(context.Background())
	require.NoError(t, err)
	require.Len(t, pages, 2)
	assert.Equal(t, "A", pages[0].ID)
	assert.Equal(t, "https://open.spotify.com/", pages[0].URL)
	assert.Equal(t, "B", pages[1].ID)
}

func TestClient_EvalIsolated(t *testing.T) {
	fb := newFake(t)
	fb.SetTargets(testutil.Page("A", "https://open.spotify.com/"))
	fb.SetEval(func(targetID, expression string) (interface{}, error) {
		return map[string]interface{}{"target": targetID, "expr": expression}, nil
	})
	client := connect(t, fb)
	ctx := context.Background()

	res, err := client.EvalIsolated(ctx, "A", "1 + 1")
	require.NoError(t, err)
	assert.Equal(t, "object", res.Type)

	var got struct {
		Target string `json:"target"`
		Expr   string `json:"expr"`
	}
	require.NoError(t, res.Decode(&got))
	assert.Equal(t, "A", got.Target)
	assert.Equal(t, "1 + 1", got.Expr)

	_, err = client.EvalIsolated(ctx, "A", "2 + 2")
	require.NoError(t, err)

	assert.Equal(t, 1, fb.CallCount("Target.attachToTarget"), "session is reused")
	assert.Equal(t, 2, fb.CallCount("Page.createIsolatedWorld"))

	evals := fb.Evaluations()
	require.Len(t, evals, 2)
	assert.NotZero(t, evals[0].ContextID)
	assert.NotEqual(t, evals[0].ContextID, evals[1].ContextID)
}

func TestClient_EvalIsolated_Primitive(t *testing.T) {
	fb := newFake(t)
	fb.SetTargets(testutil.Page("A", "about:blank"))
	fb.SetEval(func(targetID, expression string) (interface{}, error) {
		return "complete", nil
	})
	client := connect(t, fb)

	res, err := client.EvalIsolated(context.Background(), "A", "document.readyState")
	require.NoError(t, err)
	assert.Equal(t, "string", res.Type)
	assert.Equal(t, "complete", res.Value)
}

func TestClient_EvalIsolated_Undefined(t *testing.T) {
	fb := newFake(t)
	fb.SetTargets(testutil.Page("A", "about:blank"))
	client := connect(t, fb)

	res, err := client.EvalIsolated(context.Background(), "A", "void 0")
	require.NoError(t, err)
	assert.Equal(t, "undefined", res.Type)
	assert.Nil(t, res.Value)
	assert.Error(t, res.Decode(&struct{}{}))
}

func TestClient_EvalIsolated_Exception(t *testing.T) {
	fb := newFake(t)
	fb.SetTargets(testutil.Page("A", "about:blank"))
	fb.SetEval(func(targetID, expression string) (interface{}, error) {
		return nil, &testutil.Exception{Description: "ReferenceError: player is not defined"}
	})
	client := connect(t, fb)

	_, err := client.EvalIsolated(context.Background(), "A", "player.play()")

	var se *chrome.ScriptError
	require.True(t, errors.As(err, &se), "got %v", err)
	assert.Equal(t, "ReferenceError: player is not defined", se.Text)
}

func TestClient_EvalIsolated_AttachFails(t *testing.T) {
	fb := newFake(t)
	fb.SetTargets(testutil.Page("A", "about:blank"))
	fb.FailAttach("A")
	client := connect(t, fb)

	_, err := client.EvalIsolated(context.Background(), "A", "1")
	require.Error(t, err)
	assert.ErrorIs(t, err, chrome.ErrProtocolError)
	assert.Contains(t, err.Error(), "attaching to target")
	assert.Zero(t, fb.CallCount("Runtime.evaluate"))
}

func TestClient_ProtocolError(t *testing.T) {
	fb := newFake(t)
	client := connect(t, fb)

	_, err := client.Call(context.Background(), "Media.enable", nil)

	var pe *chrome.ProtocolError
	require.True(t, errors.As(err, &pe), "got %v", err)
	assert.Equal(t, -32000, pe.Code)
	assert.ErrorIs(t, err, chrome.ErrProtocolError)
}

func TestClient_NewTabAndClose(t *testing.T) {
	fb := newFake(t)
	client := connect(t, fb)
	ctx := context.Background()

	id, err := client.NewTab(ctx, "")
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	pages, err := client.Pages(ctx)
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, "about:blank", pages[0].URL)

	require.NoError(t, client.CloseTab(ctx, id))
	pages, err = client.Pages(ctx)
	require.NoError(t, err)
	assert.Empty(t, pages)
}

func TestClient_CloseDetachesSessions(t *testing.T) {
	fb := newFake(t)
	fb.SetTargets(testutil.Page("A", "about:blank"), testutil.Page("B", "about:blank"))
	client := connect(t, fb)
	ctx := context.Background()

	_, err := client.EvalIsolated(ctx, "A", "1")
	require.NoError(t, err)
	_, err = client.EvalIsolated(ctx, "B", "1")
	require.NoError(t, err)

	require.NoError(t, client.Close())
	assert.Equal(t, 2, fb.CallCount("Target.detachFromTarget"))

	_, err = client.Version(ctx)
	assert.ErrorIs(t, err, chrome.ErrConnectionClosed)
}

func TestClient_BrowserGoesAway(t *testing.T) {
	fb := testutil.NewFakeBrowser()
	client := connect(t, fb)
	fb.Close()

	require.Eventually(t, func() bool {
		_, err := client.Version(context.Background())
		return errors.Is(err, chrome.ErrConnectionClosed)
	}, 5*time.Second, 20*time.Millisecond)
}

func TestClient_ContextCancelled(t *testing.T) {
	fb := newFake(t)
	client := connect(t, fb)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Version(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestConnect_NoBrowser(t *testing.T) {
	fb := testutil.NewFakeBrowser()
	host, port := fb.Host(), fb.Port()
	fb.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := chrome.Connect(ctx, host, port)
	assert.Error(t, err)

	start := time.Now()
	_, err = chrome.ConnectWithRetry(ctx, host, port, 3, 50*time.Millisecond)
	assert.Error(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)
}
