package host

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/google/go-dap"
	"github.com/google/uuid"

	"idebridge/internal/errors"
	"idebridge/pkg/types"
)

const (
	defaultTimeout     = 10 * time.Second
	defaultDialRetries = 3
	defaultDialDelay   = 200 * time.Millisecond
)

// Client is the HTTP implementation of Provider. All operations are plain
// JSON POSTs against /api/<op>; the event stream is separate (see events.go).
type Client struct {
	baseURL    string
	eventsURL  string
	httpClient *http.Client

	dialRetries int
	dialDelay   time.Duration
}

var _ Provider = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithDialRetries sets how often a connection-refused request is retried
// and the delay between attempts.
func WithDialRetries(attempts int, delay time.Duration) Option {
	return func(c *Client) {
		if attempts > 0 {
			c.dialRetries = attempts
		}
		if delay > 0 {
			c.dialDelay = delay
		}
	}
}

// NewClient creates a client for the host at baseURL (e.g.
// "http://127.0.0.1:8991"). eventsURL is the WebSocket endpoint for the
// session-change stream.
func NewClient(baseURL, eventsURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		eventsURL:   eventsURL,
		httpClient:  &http.Client{Timeout: defaultTimeout},
		dialRetries: defaultDialRetries,
		dialDelay:   defaultDialDelay,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// call POSTs a JSON body to /api/<op> and decodes the JSON response into out.
// Connection-refused failures are retried a bounded number of times (the
// host may still be binding its port right after editor startup); every
// other failure is surfaced immediately.
func (c *Client) call(ctx context.Context, op string, in, out interface{}) error {
	body, err := json.Marshal(in)
	if err != nil {
		return errors.Wrap(errors.CodeInternal, fmt.Sprintf("failed to encode %s request", op), "", err)
	}

	url := c.baseURL + "/api/" + op

	// One id per logical request; dial retries reuse it so the host log
	// shows them as the same call.
	requestID := uuid.NewString()

	var resp *http.Response
	for attempt := 1; ; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return errors.Wrap(errors.CodeInternal, fmt.Sprintf("failed to build %s request", op), "", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Request-Id", requestID)

		resp, err = c.httpClient.Do(req)
		if err == nil {
			break
		}
		if stderrors.Is(err, syscall.ECONNREFUSED) && attempt < c.dialRetries {
			select {
			case <-time.After(c.dialDelay):
				continue
			case <-ctx.Done():
				return errors.HostUnavailable(url, ctx.Err())
			}
		}
		return errors.HostUnavailable(url, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.HostUnavailable(url, err)
	}

	if resp.StatusCode == http.StatusServiceUnavailable {
		return errors.Wrap(errors.CodeNotReady, "host index is still warming up", "Retry shortly.", nil)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errors.HostRequestFailed(op, hostMessage(data, resp.StatusCode))
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return errors.Wrap(errors.CodeHostError, fmt.Sprintf("host returned malformed JSON for %s", op), "", err)
	}
	return nil
}

// hostMessage extracts the host's own error text from a failure body,
// falling back to the raw body or the status code.
func hostMessage(data []byte, status int) string {
	var envelope struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &envelope); err == nil {
		if envelope.Error != "" {
			return envelope.Error
		}
		if envelope.Message != "" {
			return envelope.Message
		}
	}
	if text := strings.TrimSpace(string(data)); text != "" {
		return text
	}
	return fmt.Sprintf("host returned status %d", status)
}

// --- Language intelligence (LSP conventions on the wire: 0-based) ---

type wirePosition struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

type wireRange struct {
	Start wirePosition `json:"start"`
	End   wirePosition `json:"end"`
}

type wireDocumentSymbol struct {
	Name           string               `json:"name"`
	Detail         string               `json:"detail,omitempty"`
	Kind           int                  `json:"kind"`
	Range          wireRange            `json:"range"`
	SelectionRange wireRange            `json:"selectionRange"`
	Children       []wireDocumentSymbol `json:"children,omitempty"`
}

type wireLocation struct {
	URI   string    `json:"uri"`
	Range wireRange `json:"range"`
}

func toLocation(uri string, r wireRange) types.Location {
	return types.Location{
		URI:       uri,
		StartLine: r.Start.Line + 1,
		StartCol:  r.Start.Character + 1,
		EndLine:   r.End.Line + 1,
		EndCol:    r.End.Character + 1,
	}
}

// position converts an external 1-based position to the 0-based wire form.
type positionRequest struct {
	URI       string `json:"uri"`
	Line      int    `json:"line"`
	Character int    `json:"character"`
}

func toWirePosition(uri string, line, column int) positionRequest {
	return positionRequest{URI: uri, Line: line - 1, Character: column - 1}
}

// DocumentSymbols fetches and flattens the host's hierarchical symbol tree
// for one document. FullName is the dot-joined path from the root symbol,
// Container the parent symbol's name, and Location the symbol's selection
// range (the identifier itself, where a breakpoint on the symbol belongs).
func (c *Client) DocumentSymbols(ctx context.Context, uri string) ([]types.SymbolRecord, error) {
	var resp struct {
		Symbols []wireDocumentSymbol `json:"symbols"`
	}
	if err := c.call(ctx, "documentSymbols", map[string]string{"uri": uri}, &resp); err != nil {
		return nil, err
	}

	var records []types.SymbolRecord
	var walk func(sym wireDocumentSymbol, prefix, container string)
	walk = func(sym wireDocumentSymbol, prefix, container string) {
		fullName := sym.Name
		if prefix != "" {
			fullName = prefix + "." + sym.Name
		}
		records = append(records, types.SymbolRecord{
			Name:      sym.Name,
			Kind:      types.SymbolKindFromLSP(sym.Kind),
			Container: container,
			FullName:  fullName,
			Location:  toLocation(uri, sym.SelectionRange),
			Detail:    sym.Detail,
		})
		for _, child := range sym.Children {
			walk(child, fullName, sym.Name)
		}
	}
	for _, sym := range resp.Symbols {
		walk(sym, "", "")
	}
	return records, nil
}

// WorkspaceFiles asks the host for workspace files matching a glob pattern.
// The host owns file discovery and exclude filtering; results come back
// sorted for deterministic output.
func (c *Client) WorkspaceFiles(ctx context.Context, pattern string, maxFiles int, exclude []string) ([]string, error) {
	req := map[string]interface{}{
		"pattern":  pattern,
		"maxFiles": maxFiles,
	}
	if len(exclude) > 0 {
		req["exclude"] = exclude
	}
	var resp struct {
		Files []string `json:"files"`
	}
	if err := c.call(ctx, "workspaceFiles", req, &resp); err != nil {
		return nil, err
	}
	sort.Strings(resp.Files)
	return resp.Files, nil
}

// Hover fetches hover contents at a 1-based position.
func (c *Client) Hover(ctx context.Context, uri string, line, column int) (*types.HoverInfo, error) {
	var resp struct {
		Contents string     `json:"contents"`
		Range    *wireRange `json:"range,omitempty"`
	}
	if err := c.call(ctx, "hover", toWirePosition(uri, line, column), &resp); err != nil {
		return nil, err
	}
	info := &types.HoverInfo{Contents: resp.Contents}
	if resp.Range != nil {
		loc := toLocation(uri, *resp.Range)
		info.Range = &loc
	}
	return info, nil
}

// Definition fetches definition locations for a 1-based position.
func (c *Client) Definition(ctx context.Context, uri string, line, column int) ([]types.Location, error) {
	var resp struct {
		Locations []wireLocation `json:"locations"`
	}
	if err := c.call(ctx, "definition", toWirePosition(uri, line, column), &resp); err != nil {
		return nil, err
	}
	locs := make([]types.Location, len(resp.Locations))
	for i, wl := range resp.Locations {
		locs[i] = toLocation(wl.URI, wl.Range)
	}
	return locs, nil
}

// References fetches reference locations for a 1-based position.
func (c *Client) References(ctx context.Context, uri string, line, column int, includeDeclaration bool) ([]types.Location, error) {
	req := struct {
		positionRequest
		IncludeDeclaration bool `json:"includeDeclaration"`
	}{toWirePosition(uri, line, column), includeDeclaration}

	var resp struct {
		Locations []wireLocation `json:"locations"`
	}
	if err := c.call(ctx, "references", req, &resp); err != nil {
		return nil, err
	}
	locs := make([]types.Location, len(resp.Locations))
	for i, wl := range resp.Locations {
		locs[i] = toLocation(wl.URI, wl.Range)
	}
	return locs, nil
}

// CallHierarchy fetches incoming or outgoing calls for the symbol at a
// 1-based position.
func (c *Client) CallHierarchy(ctx context.Context, uri string, line, column int, direction string) ([]types.CallHierarchyItem, error) {
	req := struct {
		positionRequest
		Direction string `json:"direction"`
	}{toWirePosition(uri, line, column), direction}

	var resp struct {
		Items []struct {
			Name      string    `json:"name"`
			Kind      int       `json:"kind"`
			Container string    `json:"container,omitempty"`
			URI       string    `json:"uri"`
			Range     wireRange `json:"range"`
			FromLines []int     `json:"fromLines,omitempty"`
		} `json:"items"`
	}
	if err := c.call(ctx, "callHierarchy", req, &resp); err != nil {
		return nil, err
	}

	items := make([]types.CallHierarchyItem, len(resp.Items))
	for i, it := range resp.Items {
		fromLines := make([]int, len(it.FromLines))
		for j, l := range it.FromLines {
			fromLines[j] = l + 1
		}
		items[i] = types.CallHierarchyItem{
			Name:      it.Name,
			Kind:      types.SymbolKindFromLSP(it.Kind),
			Container: it.Container,
			Location:  toLocation(it.URI, it.Range),
			FromLines: fromLines,
		}
	}
	return items, nil
}

// Diagnostics fetches current problems, workspace-wide when uri is empty.
func (c *Client) Diagnostics(ctx context.Context, uri string) ([]types.Diagnostic, error) {
	req := map[string]string{}
	if uri != "" {
		req["uri"] = uri
	}
	var resp struct {
		Diagnostics []struct {
			URI      string    `json:"uri"`
			Range    wireRange `json:"range"`
			Severity int       `json:"severity"`
			Message  string    `json:"message"`
			Source   string    `json:"source,omitempty"`
			Code     string    `json:"code,omitempty"`
		} `json:"diagnostics"`
	}
	if err := c.call(ctx, "diagnostics", req, &resp); err != nil {
		return nil, err
	}

	diags := make([]types.Diagnostic, len(resp.Diagnostics))
	for i, d := range resp.Diagnostics {
		diags[i] = types.Diagnostic{
			File:     d.URI,
			Line:     d.Range.Start.Line + 1,
			Column:   d.Range.Start.Character + 1,
			Severity: types.SeverityFromLSP(d.Severity),
			Message:  d.Message,
			Source:   d.Source,
			Code:     d.Code,
		}
	}
	return diags, nil
}

// Rename applies a workspace rename at a 1-based position.
func (c *Client) Rename(ctx context.Context, uri string, line, column int, newName string) (*types.RenameResult, error) {
	req := struct {
		positionRequest
		NewName string `json:"newName"`
	}{toWirePosition(uri, line, column), newName}

	var resp struct {
		FilesChanged int `json:"filesChanged"`
		EditCount    int `json:"editCount"`
	}
	if err := c.call(ctx, "rename", req, &resp); err != nil {
		return nil, err
	}
	return &types.RenameResult{
		Renamed:      resp.EditCount > 0,
		FilesChanged: resp.FilesChanged,
		EditCount:    resp.EditCount,
	}, nil
}

// --- Breakpoints (DAP conventions on the wire: 1-based) ---

// wireBreakpoint is the host's breakpoint record: the DAP breakpoint state
// plus the source spec the host tracked for it.
type wireBreakpoint struct {
	dap.Breakpoint
	Path         string `json:"path"`
	Enabled      bool   `json:"enabled"`
	Condition    string `json:"condition,omitempty"`
	HitCondition string `json:"hitCondition,omitempty"`
	LogMessage   string `json:"logMessage,omitempty"`
}

func (wb wireBreakpoint) toBreakpoint() types.Breakpoint {
	file := wb.Path
	if file == "" && wb.Source != nil {
		file = wb.Source.Path
	}
	return types.Breakpoint{
		ID:           wb.Id,
		File:         path.Clean(file),
		Line:         wb.Breakpoint.Line,
		Enabled:      wb.Enabled,
		Verified:     wb.Verified,
		Condition:    wb.Condition,
		HitCondition: wb.HitCondition,
		LogMessage:   wb.LogMessage,
	}
}

// SetBreakpoints replaces the full breakpoint set for one file and returns
// the host's resulting view of that file's breakpoints.
func (c *Client) SetBreakpoints(ctx context.Context, filePath string, specs []BreakpointSpec) ([]types.Breakpoint, error) {
	source := make([]dap.SourceBreakpoint, len(specs))
	for i, spec := range specs {
		source[i] = dap.SourceBreakpoint{
			Line:         spec.Line,
			Condition:    spec.Condition,
			HitCondition: spec.HitCondition,
			LogMessage:   spec.LogMessage,
		}
	}
	req := struct {
		Path        string                 `json:"path"`
		Breakpoints []dap.SourceBreakpoint `json:"breakpoints"`
	}{filePath, source}

	var resp struct {
		Breakpoints []wireBreakpoint `json:"breakpoints"`
	}
	if err := c.call(ctx, "setBreakpoints", req, &resp); err != nil {
		return nil, err
	}

	bps := make([]types.Breakpoint, len(resp.Breakpoints))
	for i, wb := range resp.Breakpoints {
		if wb.Path == "" {
			wb.Path = filePath
		}
		bps[i] = wb.toBreakpoint()
	}
	return bps, nil
}

// ListBreakpoints re-reads the host's full breakpoint set.
func (c *Client) ListBreakpoints(ctx context.Context) ([]types.Breakpoint, error) {
	var resp struct {
		Breakpoints []wireBreakpoint `json:"breakpoints"`
	}
	if err := c.call(ctx, "listBreakpoints", struct{}{}, &resp); err != nil {
		return nil, err
	}
	bps := make([]types.Breakpoint, len(resp.Breakpoints))
	for i, wb := range resp.Breakpoints {
		bps[i] = wb.toBreakpoint()
	}
	return bps, nil
}

// ClearBreakpoints removes all breakpoints, or all breakpoints in one file
// when path is non-empty. Returns the number removed as reported by the host.
func (c *Client) ClearBreakpoints(ctx context.Context, filePath string) (int, error) {
	req := map[string]string{}
	if filePath != "" {
		req["path"] = filePath
	}
	var resp struct {
		Removed int `json:"removed"`
	}
	if err := c.call(ctx, "clearBreakpoints", req, &resp); err != nil {
		return 0, err
	}
	return resp.Removed, nil
}

// --- Debug session control (DAP conventions on the wire: 1-based) ---

// StartDebug asks the host to start a debug session from a resolved launch
// configuration. Returns the host's session identifier.
func (c *Client) StartDebug(ctx context.Context, configuration map[string]interface{}) (string, error) {
	var resp struct {
		SessionID string `json:"sessionId"`
	}
	req := map[string]interface{}{"configuration": configuration}
	if err := c.call(ctx, "startDebug", req, &resp); err != nil {
		return "", err
	}
	if resp.SessionID == "" {
		return "", errors.HostRequestFailed("startDebug", "host did not return a session id")
	}
	return resp.SessionID, nil
}

// StopDebug asks the host to terminate a debug session.
func (c *Client) StopDebug(ctx context.Context, sessionID string) error {
	req := map[string]string{"sessionId": sessionID}
	return c.call(ctx, "stopDebug", req, nil)
}

// StepControl issues an execution-control verb (continue, pause, next,
// stepIn, stepOut) for one thread.
func (c *Client) StepControl(ctx context.Context, sessionID, op string, threadID int) error {
	req := map[string]interface{}{
		"sessionId": sessionID,
		"op":        op,
		"threadId":  threadID,
	}
	return c.call(ctx, "stepControl", req, nil)
}

// Threads lists the session's live threads.
func (c *Client) Threads(ctx context.Context, sessionID string) ([]types.ThreadInfo, error) {
	var resp struct {
		Threads []dap.Thread `json:"threads"`
	}
	req := map[string]string{"sessionId": sessionID}
	if err := c.call(ctx, "threads", req, &resp); err != nil {
		return nil, err
	}
	threads := make([]types.ThreadInfo, len(resp.Threads))
	for i, t := range resp.Threads {
		threads[i] = types.ThreadInfo{ID: t.Id, Name: t.Name}
	}
	return threads, nil
}

// StackTrace fetches the call stack of one thread.
func (c *Client) StackTrace(ctx context.Context, sessionID string, threadID int) ([]types.StackFrame, error) {
	var resp struct {
		StackFrames []dap.StackFrame `json:"stackFrames"`
	}
	req := map[string]interface{}{"sessionId": sessionID, "threadId": threadID}
	if err := c.call(ctx, "stackTrace", req, &resp); err != nil {
		return nil, err
	}
	frames := make([]types.StackFrame, len(resp.StackFrames))
	for i, f := range resp.StackFrames {
		frame := types.StackFrame{
			ID:     f.Id,
			Name:   f.Name,
			Line:   f.Line,
			Column: f.Column,
		}
		if f.Source != nil {
			frame.File = f.Source.Path
		}
		frames[i] = frame
	}
	return frames, nil
}

// Scopes fetches the variable scopes of one stack frame.
func (c *Client) Scopes(ctx context.Context, sessionID string, frameID int) ([]types.Scope, error) {
	var resp struct {
		Scopes []dap.Scope `json:"scopes"`
	}
	req := map[string]interface{}{"sessionId": sessionID, "frameId": frameID}
	if err := c.call(ctx, "scopes", req, &resp); err != nil {
		return nil, err
	}
	scopes := make([]types.Scope, len(resp.Scopes))
	for i, s := range resp.Scopes {
		scopes[i] = types.Scope{
			Name:               s.Name,
			VariablesReference: s.VariablesReference,
			Expensive:          s.Expensive,
		}
	}
	return scopes, nil
}

// Variables fetches the children of a variables reference.
func (c *Client) Variables(ctx context.Context, sessionID string, variablesReference int) ([]types.Variable, error) {
	var resp struct {
		Variables []dap.Variable `json:"variables"`
	}
	req := map[string]interface{}{"sessionId": sessionID, "variablesReference": variablesReference}
	if err := c.call(ctx, "variables", req, &resp); err != nil {
		return nil, err
	}
	vars := make([]types.Variable, len(resp.Variables))
	for i, v := range resp.Variables {
		vars[i] = types.Variable{
			Name:               v.Name,
			Value:              v.Value,
			Type:               v.Type,
			VariablesReference: v.VariablesReference,
		}
	}
	return vars, nil
}

// Evaluate evaluates an expression in the context of a stack frame.
func (c *Client) Evaluate(ctx context.Context, sessionID string, frameID int, expression string) (*types.EvaluateResult, error) {
	var resp dap.EvaluateResponseBody
	req := map[string]interface{}{
		"sessionId":  sessionID,
		"frameId":    frameID,
		"expression": expression,
	}
	if err := c.call(ctx, "evaluate", req, &resp); err != nil {
		return nil, err
	}
	return &types.EvaluateResult{
		Result:             resp.Result,
		Type:               resp.Type,
		VariablesReference: resp.VariablesReference,
	}, nil
}
