package testutil

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
)

// Target is a browser target served by FakeBrowser.
type Target struct {
	ID    string
	Type  string
	Title string
	URL   string
}

// Page returns a page target.
func Page(id, url string) Target {
	return Target{ID: id, Type: "page", Title: id, URL: url}
}

// EvalFunc answers Runtime.evaluate for a target. A returned *Exception is
// reported as a thrown script exception; any other error becomes a protocol
// error.
type EvalFunc func(targetID, expression string) (interface{}, error)

// Exception is a JavaScript exception thrown by an evaluated script.
type Exception struct {
	Description string
}

func (e *Exception) Error() string {
	return e.Description
}

// Call is one protocol request received by FakeBrowser.
type Call struct {
	Method    string
	SessionID string
	Params    json.RawMessage
}

// Evaluation is one Runtime.evaluate request received by FakeBrowser.
type Evaluation struct {
	TargetID   string
	Expression string
	ContextID  int64
}

// FakeBrowser is an in-process stand-in for Chrome's remote debugging
// endpoint. It serves /json/version and the protocol methods playtab uses.
type FakeBrowser struct {
	server   *httptest.Server
	upgrader websocket.Upgrader

	mu          sync.Mutex
	conns       map[*websocket.Conn]struct{}
	targets     []Target
	eval        EvalFunc
	failAttach  map[string]bool
	calls       []Call
	evaluations []Evaluation
	nextID      int
	contextID   int64
}

// NewFakeBrowser starts a fake browser with no targets.
func NewFakeBrowser() *FakeBrowser {
	fb := &FakeBrowser{
		conns:      make(map[*websocket.Conn]struct{}),
		failAttach: make(map[string]bool),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/json/version", fb.handleVersion)
	mux.HandleFunc("/devtools/browser/fake", fb.handleSocket)
	fb.server = httptest.NewServer(mux)
	return fb
}

// Close drops every protocol connection and shuts the server down.
func (fb *FakeBrowser) Close() {
	fb.mu.Lock()
	for conn := range fb.conns {
		conn.Close()
	}
	fb.mu.Unlock()
	fb.server.CloseClientConnections()
	fb.server.Close()
}

// Host returns the host the fake browser listens on.
func (fb *FakeBrowser) Host() string {
	host, _, _ := net.SplitHostPort(fb.server.Listener.Addr().String())
	return host
}

// Port returns the port the fake browser listens on.
func (fb *FakeBrowser) Port() int {
	_, port, _ := net.SplitHostPort(fb.server.Listener.Addr().String())
	n, _ := strconv.Atoi(port)
	return n
}

// SetTargets replaces the browser's target list.
func (fb *FakeBrowser) SetTargets(targets ...Target) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.targets = append([]Target(nil), targets...)
}

// SetEval installs the Runtime.evaluate handler.
func (fb *FakeBrowser) SetEval(fn EvalFunc) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.eval = fn
}

// FailAttach makes Target.attachToTarget fail for the given target.
func (fb *FakeBrowser) FailAttach(targetID string) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.failAttach[targetID] = true
}

// Calls returns every protocol request received so far.
func (fb *FakeBrowser) Calls() []Call {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return append([]Call(nil), fb.calls...)
}

// CallCount returns how many requests for method were received.
func (fb *FakeBrowser) CallCount(method string) int {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	n := 0
	for _, c := range fb.calls {
		if c.Method == method {
			n++
		}
	}
	return n
}

// Evaluations returns every Runtime.evaluate request received so far.
func (fb *FakeBrowser) Evaluations() []Evaluation {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return append([]Evaluation(nil), fb.evaluations...)
}

func (fb *FakeBrowser) wsURL() string {
	return "ws://" + fb.server.Listener.Addr().String() + "/devtools/browser/fake"
}

func (fb *FakeBrowser) handleVersion(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"Browser":              "FakeChrome/1.0",
		"Protocol-Version":     "1.3",
		"webSocketDebuggerUrl": fb.wsURL(),
	})
}

type fakeRequest struct {
	ID        int64           `json:"id"`
	SessionID string          `json:"sessionId,omitempty"`
	Method    string          `json:"method"`
	Params    json.RawMessage `json:"params,omitempty"`
}

type fakeError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type fakeResponse struct {
	ID        int64       `json:"id"`
	SessionID string      `json:"sessionId,omitempty"`
	Result    interface{} `json:"result,omitempty"`
	Error     *fakeError  `json:"error,omitempty"`
}

func (fb *FakeBrowser) handleSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := fb.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	fb.mu.Lock()
	fb.conns[conn] = struct{}{}
	fb.mu.Unlock()
	defer func() {
		fb.mu.Lock()
		delete(fb.conns, conn)
		fb.mu.Unlock()
		conn.Close()
	}()

	for {
		var req fakeRequest
		if err := conn.ReadJSON(&req); err != nil {
			return
		}

		fb.mu.Lock()
		fb.calls = append(fb.calls, Call{Method: req.Method, SessionID: req.SessionID, Params: req.Params})
		fb.mu.Unlock()

		resp := fakeResponse{ID: req.ID, SessionID: req.SessionID}
		result, err := fb.dispatch(req)
		if err != nil {
			resp.Error = &fakeError{Code: -32000, Message: err.Error()}
		} else {
			resp.Result = result
		}
		if err := conn.WriteJSON(resp); err != nil {
			return
		}
	}
}

var errMethodNotFound = errors.New("method not found")

func (fb *FakeBrowser) dispatch(req fakeRequest) (interface{}, error) {
	var params map[string]interface{}
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return nil, fmt.Errorf("invalid params: %w", err)
		}
	}
	str := func(key string) string {
		s, _ := params[key].(string)
		return s
	}

	switch req.Method {
	case "Browser.getVersion":
		return map[string]string{
			"product":         "FakeChrome/1.0",
			"protocolVersion": "1.3",
			"userAgent":       "FakeChrome",
			"jsVersion":       "0.0",
		}, nil

	case "Target.getTargets":
		fb.mu.Lock()
		defer fb.mu.Unlock()
		infos := make([]map[string]string, 0, len(fb.targets))
		for _, t := range fb.targets {
			infos = append(infos, map[string]string{
				"targetId": t.ID,
				"type":     t.Type,
				"title":    t.Title,
				"url":      t.URL,
			})
		}
		return map[string]interface{}{"targetInfos": infos}, nil

	case "Target.attachToTarget":
		id := str("targetId")
		fb.mu.Lock()
		defer fb.mu.Unlock()
		if fb.failAttach[id] {
			return nil, fmt.Errorf("cannot attach to target %s", id)
		}
		if _, ok := fb.find(id); !ok {
			return nil, fmt.Errorf("no target with given id found")
		}
		return map[string]string{"sessionId": "S-" + id}, nil

	case "Target.detachFromTarget":
		return map[string]string{}, nil

	case "Target.createTarget":
		fb.mu.Lock()
		defer fb.mu.Unlock()
		fb.nextID++
		id := fmt.Sprintf("NEW-%d", fb.nextID)
		fb.targets = append(fb.targets, Target{ID: id, Type: "page", URL: str("url")})
		return map[string]string{"targetId": id}, nil

	case "Target.closeTarget":
		id := str("targetId")
		fb.mu.Lock()
		defer fb.mu.Unlock()
		for i, t := range fb.targets {
			if t.ID == id {
				fb.targets = append(fb.targets[:i], fb.targets[i+1:]...)
				return map[string]bool{"success": true}, nil
			}
		}
		return nil, fmt.Errorf("no target with given id found")

	case "Page.getFrameTree":
		targetID := strings.TrimPrefix(req.SessionID, "S-")
		fb.mu.Lock()
		t, ok := fb.find(targetID)
		fb.mu.Unlock()
		if !ok {
			return nil, fmt.Errorf("session not found")
		}
		return map[string]interface{}{
			"frameTree": map[string]interface{}{
				"frame": map[string]string{"id": t.ID, "url": t.URL},
			},
		}, nil

	case "Page.createIsolatedWorld":
		fb.mu.Lock()
		defer fb.mu.Unlock()
		fb.contextID++
		return map[string]int64{"executionContextId": fb.contextID}, nil

	case "Runtime.evaluate":
		return fb.evaluate(req, params)
	}

	return nil, fmt.Errorf("'%s' wasn't found: %w", req.Method, errMethodNotFound)
}

func (fb *FakeBrowser) evaluate(req fakeRequest, params map[string]interface{}) (interface{}, error) {
	targetID := strings.TrimPrefix(req.SessionID, "S-")
	expression, _ := params["expression"].(string)
	contextID, _ := params["contextId"].(float64)

	fb.mu.Lock()
	fb.evaluations = append(fb.evaluations, Evaluation{
		TargetID:   targetID,
		Expression: expression,
		ContextID:  int64(contextID),
	})
	fn := fb.eval
	fb.mu.Unlock()

	if fn == nil {
		return map[string]interface{}{"result": map[string]string{"type": "undefined"}}, nil
	}

	value, err := fn(targetID, expression)
	var exc *Exception
	if errors.As(err, &exc) {
		return map[string]interface{}{
			"result": map[string]string{"type": "object", "subtype": "error"},
			"exceptionDetails": map[string]interface{}{
				"text":      "Uncaught",
				"exception": map[string]string{"description": exc.Description},
			},
		}, nil
	}
	if err != nil {
		return nil, err
	}
	if value == nil {
		return map[string]interface{}{
			"result": map[string]interface{}{"type": "object", "subtype": "null", "value": nil},
		}, nil
	}
	return map[string]interface{}{
		"result": map[string]interface{}{"type": jsType(value), "value": value},
	}, nil
}

// find must be called with fb.mu held.
func (fb *FakeBrowser) find(id string) (Target, bool) {
	for _, t := range fb.targets {
		if t.ID == id {
			return t, true
		}
	}
	return Target{}, false
}

func jsType(v interface{}) string {
	switch v.(type) {
	case string:
		return "string"
	case bool:
		return "boolean"
	case int, int64, float64:
		return "number"
	}
	return "object"
}
