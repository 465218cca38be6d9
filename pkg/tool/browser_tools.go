package tool

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"

	"github.com/odvcencio/wayfarer/pkg/browser"
)

// SessionIDParam is the tool argument naming the browser session a call
// acts on. Most agent runs pin a single session per run; this argument lets
// a caller address a specific one explicitly (useful for the multi-tab
// tab_operations_tool).
const SessionIDParam = "session_id"

func resolveSession(manager *browser.Manager, params map[string]any, defaultID string) (browser.BrowserSession, string, error) {
	if manager == nil {
		return nil, "", fmt.Errorf("browser manager not configured")
	}
	id := strings.TrimSpace(stringParam(params, SessionIDParam))
	if id == "" {
		id = defaultID
	}
	if id == "" {
		id = "default"
	}
	sess, ok := manager.GetSession(id)
	if !ok {
		return nil, id, fmt.Errorf("no active browser session %q; start one with navigation_tool first", id)
	}
	return sess, id, nil
}

func stringParam(params map[string]any, key string) string {
	if params == nil {
		return ""
	}
	if v, ok := params[key].(string); ok {
		return v
	}
	return ""
}

func intParam(params map[string]any, key string, def int) int {
	if params == nil {
		return def
	}
	switch v := params[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return def
}

func boolParam(params map[string]any, key string, def bool) bool {
	if params == nil {
		return def
	}
	if v, ok := params[key].(bool); ok {
		return v
	}
	return def
}

func observationEnvelope(obs *browser.Observation) Envelope {
	if obs == nil {
		return Ok(map[string]any{})
	}
	out := map[string]any{
		"state_version": uint64(obs.StateVersion),
		"url":           obs.URL,
		"title":         obs.Title,
	}
	if len(obs.DOMSnapshot) > 0 {
		out["dom_snapshot"] = json.RawMessage(obs.DOMSnapshot)
	}
	if len(obs.AccessibilityTree) > 0 {
		out["accessibility_tree"] = json.RawMessage(obs.AccessibilityTree)
	}
	if obs.HitTest != nil {
		out["hit_test"] = obs.HitTest
	}
	return Ok(out)
}

// NavigationTool drives the active session to a URL, creating the session on
// first use, mirroring a real browser where opening a tab is implicit in
// going to a URL. tab_operations_tool's "open" action also creates a session.
type NavigationTool struct {
	Manager       *browser.Manager
	DefaultConfig browser.SessionConfig

	mu            sync.Mutex
	defaultSessID string
}

func (t *NavigationTool) Name() string        { return "navigation_tool" }
func (t *NavigationTool) Description() string { return "Navigate the browser to a URL, opening a session if none is active." }

func (t *NavigationTool) Parameters() ParameterSchema {
	return ParameterSchema{
		Type: "object",
		Properties: map[string]PropertySchema{
			"url":        {Type: "string", Description: "Absolute URL to navigate to"},
			"session_id": {Type: "string", Description: "Session to navigate; defaults to the run's session"},
		},
		Required: []string{"url"},
	}
}

func (t *NavigationTool) Invoke(ctx context.Context, args map[string]any) Envelope {
	if t.Manager == nil {
		return Fail("browser manager not configured")
	}
	url := strings.TrimSpace(stringParam(args, "url"))
	if url == "" {
		return Fail("url parameter is required")
	}

	sessionID := strings.TrimSpace(stringParam(args, SessionIDParam))
	if sessionID == "" {
		sessionID = t.defaultSessionID()
	}

	sess, ok := t.Manager.GetSession(sessionID)
	if !ok {
		cfg := t.DefaultConfig
		if cfg.Viewport.Width == 0 {
			cfg = browser.DefaultSessionConfig()
		}
		cfg.SessionID = sessionID
		cfg.InitialURL = url
		created, err := t.Manager.CreateSession(ctx, cfg)
		if err != nil {
			return FailErr(err)
		}
		obs, err := created.Observe(ctx, browser.ObserveOptions{IncludeDOMSnapshot: true, IncludeAccessibility: true})
		if err != nil {
			return FailErr(err)
		}
		return observationEnvelope(obs)
	}

	obs, err := sess.Navigate(ctx, url)
	if err != nil {
		return FailErr(err)
	}
	return observationEnvelope(obs)
}

func (t *NavigationTool) defaultSessionID() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.defaultSessID == "" {
		t.defaultSessID = "default"
	}
	return t.defaultSessID
}

// InteractionTool performs a discrete page interaction: click, type, hover,
// key press, or focus. Each call targets either a node ID from the latest
// observation or raw viewport coordinates.
type InteractionTool struct {
	Manager *browser.Manager
}

func (t *InteractionTool) Name() string { return "interaction_tool" }
func (t *InteractionTool) Description() string {
	return "Click, type, hover, focus, or press a key on the active page."
}

func (t *InteractionTool) Parameters() ParameterSchema {
	return ParameterSchema{
		Type: "object",
		Properties: map[string]PropertySchema{
			"action":     {Type: "string", Description: "click, type, hover, key, or focus", Enum: []string{"click", "type", "hover", "key", "focus"}},
			"node_id":    {Type: "integer", Description: "Target node ID from the last observation's hit test"},
			"x":          {Type: "integer", Description: "Target viewport X, used when node_id is omitted"},
			"y":          {Type: "integer", Description: "Target viewport Y, used when node_id is omitted"},
			"text":       {Type: "string", Description: "Text to type, for action=type"},
			"key":        {Type: "string", Description: "Key name to press, for action=key"},
			"session_id": {Type: "string", Description: "Session to act on"},
		},
		Required: []string{"action"},
	}
}

func (t *InteractionTool) Invoke(ctx context.Context, args map[string]any) Envelope {
	sess, _, err := resolveSession(t.Manager, args, "")
	if err != nil {
		return FailErr(err)
	}

	actionName := strings.TrimSpace(stringParam(args, "action"))
	action := browser.Action{Text: stringParam(args, "text"), Key: stringParam(args, "key")}

	switch actionName {
	case "click":
		action.Type = browser.ActionClick
	case "type":
		action.Type = browser.ActionTypeText
	case "hover":
		action.Type = browser.ActionHover
	case "key":
		action.Type = browser.ActionKey
	case "focus":
		action.Type = browser.ActionFocus
	default:
		return Fail(fmt.Sprintf("unsupported action: %q", actionName))
	}

	if nodeID := intParam(args, "node_id", 0); nodeID > 0 {
		action.Target = &browser.ActionTarget{NodeID: uint64(nodeID)}
	} else if x, y := intParam(args, "x", -1), intParam(args, "y", -1); x >= 0 && y >= 0 {
		action.Target = &browser.ActionTarget{Point: &browser.Point{X: x, Y: y}}
	}

	result, err := sess.Act(ctx, action)
	if err != nil {
		return FailErr(err)
	}
	out := map[string]any{"state_version": uint64(result.StateVersion)}
	if len(result.Effects) > 0 {
		out["effects"] = result.Effects
	}
	return Ok(out)
}

// ScrollTool scrolls the active page by a pixel or line delta.
type ScrollTool struct {
	Manager *browser.Manager
}

func (t *ScrollTool) Name() string        { return "scroll_tool" }
func (t *ScrollTool) Description() string { return "Scroll the active page by a pixel delta." }

func (t *ScrollTool) Parameters() ParameterSchema {
	return ParameterSchema{
		Type: "object",
		Properties: map[string]PropertySchema{
			"dx":         {Type: "integer", Description: "Horizontal scroll delta", Default: 0},
			"dy":         {Type: "integer", Description: "Vertical scroll delta", Default: 0},
			"unit":       {Type: "string", Description: "pixels or lines", Enum: []string{"pixels", "lines"}, Default: "pixels"},
			"session_id": {Type: "string", Description: "Session to act on"},
		},
	}
}

func (t *ScrollTool) Invoke(ctx context.Context, args map[string]any) Envelope {
	sess, _, err := resolveSession(t.Manager, args, "")
	if err != nil {
		return FailErr(err)
	}
	unit := browser.ScrollUnitPixels
	if stringParam(args, "unit") == "lines" {
		unit = browser.ScrollUnitLines
	}
	action := browser.Action{
		Type: browser.ActionScroll,
		Scroll: &browser.ScrollDelta{
			X:    intParam(args, "dx", 0),
			Y:    intParam(args, "dy", 0),
			Unit: unit,
		},
	}
	result, err := sess.Act(ctx, action)
	if err != nil {
		return FailErr(err)
	}
	return Ok(map[string]any{"state_version": uint64(result.StateVersion)})
}

// TabOperationsTool opens, switches between, and closes browser sessions,
// each session standing in for a tab in a single browserd-backed browser.
type TabOperationsTool struct {
	Manager *browser.Manager
}

func (t *TabOperationsTool) Name() string { return "tab_operations_tool" }
func (t *TabOperationsTool) Description() string {
	return "Open, close, or list browser tabs (sessions)."
}

func (t *TabOperationsTool) Parameters() ParameterSchema {
	return ParameterSchema{
		Type: "object",
		Properties: map[string]PropertySchema{
			"operation":  {Type: "string", Description: "open, close, or list", Enum: []string{"open", "close", "list"}},
			"session_id": {Type: "string", Description: "Tab/session identifier for open or close"},
			"url":        {Type: "string", Description: "Initial URL for operation=open"},
		},
		Required: []string{"operation"},
	}
}

func (t *TabOperationsTool) Invoke(ctx context.Context, args map[string]any) Envelope {
	if t.Manager == nil {
		return Fail("browser manager not configured")
	}
	switch strings.TrimSpace(stringParam(args, "operation")) {
	case "open":
		id := strings.TrimSpace(stringParam(args, SessionIDParam))
		if id == "" {
			return Fail("session_id is required to open a tab")
		}
		cfg := browser.DefaultSessionConfig()
		cfg.SessionID = id
		cfg.InitialURL = stringParam(args, "url")
		sess, err := t.Manager.CreateSession(ctx, cfg)
		if err != nil {
			return FailErr(err)
		}
		obs, err := sess.Observe(ctx, browser.ObserveOptions{IncludeDOMSnapshot: true})
		if err != nil {
			return FailErr(err)
		}
		return observationEnvelope(obs)
	case "close":
		id := strings.TrimSpace(stringParam(args, SessionIDParam))
		if id == "" {
			return Fail("session_id is required to close a tab")
		}
		if err := t.Manager.CloseSession(id); err != nil {
			return FailErr(err)
		}
		return Ok(map[string]any{"closed": id})
	case "list":
		snap := t.Manager.Metrics()
		return Ok(map[string]any{"active_sessions": snap.ActiveSessions})
	default:
		return Fail("operation must be one of open, close, list")
	}
}

// ScreenshotTool captures the current frame of a session as an image.
type ScreenshotTool struct {
	Manager *browser.Manager
}

func (t *ScreenshotTool) Name() string        { return "screenshot_tool" }
func (t *ScreenshotTool) Description() string { return "Capture a screenshot of the active page." }

func (t *ScreenshotTool) Parameters() ParameterSchema {
	return ParameterSchema{
		Type: "object",
		Properties: map[string]PropertySchema{
			"session_id": {Type: "string", Description: "Session to capture"},
		},
	}
}

func (t *ScreenshotTool) Invoke(ctx context.Context, args map[string]any) Envelope {
	sess, _, err := resolveSession(t.Manager, args, "")
	if err != nil {
		return FailErr(err)
	}
	obs, err := sess.Observe(ctx, browser.ObserveOptions{IncludeFrame: true})
	if err != nil {
		return FailErr(err)
	}
	if obs.Frame == nil {
		return Fail("runtime did not return a frame")
	}
	return Ok(map[string]any{
		"state_version": uint64(obs.Frame.StateVersion),
		"width":         obs.Frame.Width,
		"height":        obs.Frame.Height,
		"format":        string(obs.Frame.Format),
		"data":          obs.Frame.Data,
	})
}

// RefreshBrowserStateTool re-reads the DOM and accessibility tree without
// taking any action, the cheapest way for a strategy to re-orient after an
// action's effects may have changed the page asynchronously.
type RefreshBrowserStateTool struct {
	Manager *browser.Manager
}

func (t *RefreshBrowserStateTool) Name() string { return "refresh_browser_state_tool" }
func (t *RefreshBrowserStateTool) Description() string {
	return "Re-read the current page's DOM, accessibility tree, and hit-test map."
}

func (t *RefreshBrowserStateTool) Parameters() ParameterSchema {
	return ParameterSchema{
		Type: "object",
		Properties: map[string]PropertySchema{
			"session_id":       {Type: "string", Description: "Session to observe"},
			"include_hit_test": {Type: "boolean", Description: "Include a hit-test map for coordinate targeting", Default: true},
		},
	}
}

func (t *RefreshBrowserStateTool) Invoke(ctx context.Context, args map[string]any) Envelope {
	sess, _, err := resolveSession(t.Manager, args, "")
	if err != nil {
		return FailErr(err)
	}
	obs, err := sess.Observe(ctx, browser.ObserveOptions{
		IncludeDOMSnapshot:   true,
		IncludeAccessibility: true,
		IncludeHitTest:       boolParam(args, "include_hit_test", true),
	})
	if err != nil {
		return FailErr(err)
	}
	return observationEnvelope(obs)
}

// ExtractTool pulls matching text out of the last accessibility tree, used
// by a strategy that needs a specific fact ("the price", "the shipping ETA")
// rather than the full page state.
type ExtractTool struct {
	Manager *browser.Manager
}

func (t *ExtractTool) Name() string        { return "extract_tool" }
func (t *ExtractTool) Description() string { return "Extract text from the page matching a query." }

func (t *ExtractTool) Parameters() ParameterSchema {
	return ParameterSchema{
		Type: "object",
		Properties: map[string]PropertySchema{
			"query":      {Type: "string", Description: "Substring or phrase to search for in the page text"},
			"selector":   {Type: "string", Description: "Optional CSS selector to narrow the DOM snapshot before searching"},
			"session_id": {Type: "string", Description: "Session to read"},
		},
		Required: []string{"query"},
	}
}

func (t *ExtractTool) Invoke(ctx context.Context, args map[string]any) Envelope {
	sess, _, err := resolveSession(t.Manager, args, "")
	if err != nil {
		return FailErr(err)
	}
	query := strings.TrimSpace(stringParam(args, "query"))
	if query == "" {
		return Fail("query parameter is required")
	}
	obs, err := sess.Observe(ctx, browser.ObserveOptions{IncludeDOMSnapshot: true, IncludeAccessibility: true})
	if err != nil {
		return FailErr(err)
	}
	selector := strings.TrimSpace(stringParam(args, "selector"))
	matches, links := extractFromDOM(obs.DOMSnapshot, selector, query)
	if matches == nil {
		matches = extractMatches(obs.AccessibilityTree, query)
	}
	return Ok(map[string]any{
		"query":         query,
		"links_found":   len(links),
		"matches":       matches,
		"links":         links,
		"state_version": uint64(obs.StateVersion),
	})
}

// extractFromDOM parses snapshot as HTML with goquery and returns the text
// of every element matching query (optionally narrowed by selector first),
// plus any anchor hrefs under that scope. Returns nil matches when snapshot
// isn't present or doesn't parse as HTML, so the caller can fall back to the
// accessibility-tree walk.
func extractFromDOM(snapshot json.RawMessage, selector, query string) ([]string, []map[string]string) {
	html := domSnapshotHTML(snapshot)
	if html == "" {
		return nil, nil
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader([]byte(html)))
	if err != nil {
		return nil, nil
	}
	scope := doc.Selection
	if selector != "" {
		scope = doc.Find(selector)
	}

	lowerQuery := strings.ToLower(query)
	var matches []string
	scope.Find("*").Each(func(_ int, s *goquery.Selection) {
		if s.Children().Length() > 0 {
			return // only leaf-ish nodes, avoid duplicating ancestor text
		}
		text := strings.TrimSpace(s.Text())
		if text != "" && strings.Contains(strings.ToLower(text), lowerQuery) {
			matches = append(matches, text)
		}
	})

	var links []map[string]string
	scope.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		text := strings.TrimSpace(s.Text())
		if href == "" {
			return
		}
		links = append(links, map[string]string{"text": text, "href": href})
	})
	return matches, links
}

// domSnapshotHTML unwraps snapshot into a raw HTML string. The native
// browser driver's DOM snapshot format is opaque to the core (spec §1); it
// may be a JSON-encoded HTML string or raw HTML bytes directly.
func domSnapshotHTML(snapshot json.RawMessage) string {
	if len(snapshot) == 0 {
		return ""
	}
	var asString string
	if err := json.Unmarshal(snapshot, &asString); err == nil {
		return asString
	}
	return string(snapshot)
}

func extractMatches(tree json.RawMessage, query string) []string {
	if len(tree) == 0 {
		return nil
	}
	var nodes []map[string]any
	if err := json.Unmarshal(tree, &nodes); err != nil {
		var single map[string]any
		if err := json.Unmarshal(tree, &single); err != nil {
			return nil
		}
		nodes = []map[string]any{single}
	}
	lowerQuery := strings.ToLower(query)
	var matches []string
	var walk func(map[string]any)
	walk = func(node map[string]any) {
		if name, ok := node["name"].(string); ok && strings.Contains(strings.ToLower(name), lowerQuery) {
			matches = append(matches, name)
		}
		if children, ok := node["children"].([]any); ok {
			for _, c := range children {
				if cm, ok := c.(map[string]any); ok {
					walk(cm)
				}
			}
		}
	}
	for _, n := range nodes {
		walk(n)
	}
	return matches
}
