package chrome

import (
	"context"
	"encoding/json"
	"fmt"
)

// IsolatedWorldName names the execution context EvalIsolated creates in a page.
const IsolatedWorldName = "playtab"

// EvalIsolated evaluates a JavaScript expression in an isolated world of the
// target's main frame. The page's DOM is shared but its globals are not, so
// page scripts cannot observe or tamper with the evaluated code.
func (c *Client) EvalIsolated(ctx context.Context, targetID string, expression string) (*EvalResult, error) {
	sessionID, err := c.attachToTarget(ctx, targetID)
	if err != nil {
		return nil, err
	}

	frameID, err := c.mainFrameID(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	result, err := c.CallSession(ctx, sessionID, "Page.createIsolatedWorld", map[string]interface{}{
		"frameId":   frameID,
		"worldName": IsolatedWorldName,
	})
	if err != nil {
		return nil, fmt.Errorf("creating isolated world: %w", err)
	}

	var worldResp struct {
		ExecutionContextID int64 `json:"executionContextId"`
	}
	if err := json.Unmarshal(result, &worldResp); err != nil {
		return nil, fmt.Errorf("parsing world response: %w", err)
	}

	return c.evaluate(ctx, sessionID, map[string]interface{}{
		"expression":    expression,
		"contextId":     worldResp.ExecutionContextID,
		"returnByValue": true,
		"awaitPromise":  true,
		"userGesture":   true,
	})
}

func (c *Client) mainFrameID(ctx context.Context, sessionID string) (string, error) {
	result, err := c.CallSession(ctx, sessionID, "Page.getFrameTree", nil)
	if err != nil {
		return "", fmt.Errorf("getting frame tree: %w", err)
	}

	var resp struct {
		FrameTree struct {
			Frame struct {
				ID string `json:"id"`
			} `json:"frame"`
		} `json:"frameTree"`
	}
	if err := json.Unmarshal(result, &resp); err != nil {
		return "", fmt.Errorf("parsing frame tree: %w", err)
	}
	if resp.FrameTree.Frame.ID == "" {
		return "", ErrNoMainFrame
	}
	return resp.FrameTree.Frame.ID, nil
}

func (c *Client) evaluate(ctx context.Context, sessionID string, params map[string]interface{}) (*EvalResult, error) {
	result, err := c.CallSession(ctx, sessionID, "Runtime.evaluate", params)
	if err != nil {
		return nil, fmt.Errorf("evaluating expression: %w", err)
	}

	var evalResp struct {
		Result struct {
			Type  string          `json:"type"`
			Value json.RawMessage `json:"value"`
		} `json:"result"`
		ExceptionDetails *struct {
			Text      string `json:"text"`
			Exception *struct {
				Description string `json:"description"`
			} `json:"exception"`
		} `json:"exceptionDetails"`
	}
	if err := json.Unmarshal(result, &evalResp); err != nil {
		return nil, fmt.Errorf("parsing eval response: %w", err)
	}

	if ed := evalResp.ExceptionDetails; ed != nil {
		text := ed.Text
		if ed.Exception != nil && ed.Exception.Description != "" {
			text = ed.Exception.Description
		}
		return nil, &ScriptError{Text: text}
	}

	out := &EvalResult{
		Type: evalResp.Result.Type,
		Raw:  evalResp.Result.Value,
	}
	if len(out.Raw) > 0 {
		if err := json.Unmarshal(out.Raw, &out.Value); err != nil {
			return nil, fmt.Errorf("parsing eval value: %w", err)
		}
	}
	return out, nil
}
