package http_call

import (
	"context"
	"encoding/json"
	"fmt"
	"mime"
	"strings"

	"github.com/specialistvlad/promptgridgo/internal/ctxlog"
	"github.com/specialistvlad/promptgridgo/internal/datavalue"
	"github.com/specialistvlad/promptgridgo/internal/httpprovider"
	"github.com/specialistvlad/promptgridgo/internal/node"
	"github.com/specialistvlad/promptgridgo/internal/runerr"
)

type httpCallNode struct {
	node.Ports
	cfg node.Config
}

func newHTTPCall(b node.Binding) (node.Executor, error) {
	cfg := b.Config()
	var in []node.PortDescriptor
	for _, p := range []struct {
		id    string
		title string
		kind  datavalue.Kind
	}{
		{"method", "Method", datavalue.String},
		{"url", "URL", datavalue.String},
		{"headers", "Headers", datavalue.Object},
		{"body", "Body", datavalue.String},
	} {
		if cfg.UseInput(p.id) {
			in = append(in, node.PortDescriptor{ID: graphPort(p.id), Title: p.title, DataType: p.kind})
		}
	}
	out := []node.PortDescriptor{
		{ID: "statusCode", Title: "Status Code", DataType: datavalue.Number},
		{ID: "res_headers", Title: "Headers", DataType: datavalue.Object},
		{ID: "res_body", Title: "Body", DataType: datavalue.String},
		{ID: "json", Title: "JSON", DataType: datavalue.Object},
	}
	return &httpCallNode{Ports: node.Ports{In: in, Out: out}, cfg: cfg}, nil
}

// Execute performs the request. With errorOnNon200 (the default) a non-2xx
// status fails the node.
func (n *httpCallNode) Execute(ctx context.Context, in node.Inputs, rc node.RunContext) (node.Outcome, error) {
	provider := rc.HTTP()
	if provider == nil {
		return node.Outcome{}, runerr.Unsupported("http")
	}
	req, err := n.request(in)
	if err != nil {
		return node.Outcome{}, err
	}

	logger := ctxlog.FromContext(ctx)
	logger.Info("Making HTTP request", "method", req.Method, "url", req.URL)

	if n.cfg.Bool("stream", false) {
		return n.stream(ctx, provider, req, rc)
	}

	resp, err := provider.Fetch(ctx, req)
	if err != nil {
		return node.Outcome{}, fmt.Errorf("failed to execute request: %w", err)
	}
	logger.Info("Received HTTP response", "status", resp.Status)
	if !resp.OK && n.cfg.Bool("errorOnNon200", true) {
		return node.Outcome{}, fmt.Errorf("http %s %s returned %d %s", req.Method, req.URL, resp.Status, resp.StatusText)
	}

	headers := make(map[string]any, len(resp.Headers))
	for k, v := range resp.Headers {
		headers[k] = v
	}
	out := node.Outputs{
		"statusCode":  datavalue.Num(float64(resp.Status)),
		"res_headers": datavalue.Obj(headers),
		"res_body":    datavalue.Str(string(resp.Body)),
		"json":        datavalue.Excluded(),
	}
	if isJSON(resp.Headers) {
		var parsed any
		if err := json.Unmarshal(resp.Body, &parsed); err != nil {
			return node.Outcome{}, fmt.Errorf("failed to decode json response: %w", err)
		}
		out["json"] = datavalue.Obj(parsed)
	}
	return node.Succeed(out), nil
}

func (n *httpCallNode) stream(ctx context.Context, provider httpprovider.Provider, req httpprovider.Request, rc node.RunContext) (node.Outcome, error) {
	if !provider.SupportsStreaming() {
		return node.Outcome{}, runerr.Unsupported("http event streaming")
	}
	events, err := provider.StreamEvents(ctx, req)
	if err != nil {
		return node.Outcome{}, err
	}
	var body strings.Builder
	for ev, err := range events {
		if err != nil {
			return node.Outcome{}, fmt.Errorf("reading event stream: %w", err)
		}
		body.WriteString(ev.Data)
		rc.PartialOutput(node.Outputs{"res_body": datavalue.Str(body.String())})
	}
	return node.Succeed(node.Outputs{
		"statusCode":  datavalue.Num(200),
		"res_headers": datavalue.Obj(map[string]any{}),
		"res_body":    datavalue.Str(body.String()),
		"json":        datavalue.Excluded(),
	}), nil
}

func (n *httpCallNode) request(in node.Inputs) (httpprovider.Request, error) {
	method := strings.ToUpper(datavalue.AsString(node.InputOr(n.cfg, in, "method", "method", datavalue.String)))
	if method == "" {
		method = "GET"
	}
	url := datavalue.AsString(node.InputOr(n.cfg, in, "url", "url", datavalue.String))
	if url == "" {
		return httpprovider.Request{}, fmt.Errorf("httpCall: url is required")
	}
	headers, err := parseHeaders(n.headerValue(in))
	if err != nil {
		return httpprovider.Request{}, err
	}
	req := httpprovider.Request{Method: method, URL: url, Headers: headers}
	if body := datavalue.AsString(node.InputOr(n.cfg, in, "body", "body", datavalue.String)); body != "" {
		req.Body = []byte(body)
	}
	return req, nil
}

func (n *httpCallNode) headerValue(in node.Inputs) any {
	if n.cfg.UseInput("headers") {
		if v, ok := in.Get("headers"); ok {
			return v.Data
		}
	}
	raw, _ := n.cfg.Value("headers")
	return raw
}

// parseHeaders accepts an object, a JSON object string or "Key: Value" lines.
func parseHeaders(raw any) (map[string]string, error) {
	out := map[string]string{}
	switch h := raw.(type) {
	case nil:
	case map[string]any:
		for k, v := range h {
			out[k] = datavalue.AsString(datavalue.Infer(v))
		}
	case map[string]string:
		for k, v := range h {
			out[k] = v
		}
	case string:
		s := strings.TrimSpace(h)
		if s == "" {
			break
		}
		if strings.HasPrefix(s, "{") {
			var obj map[string]any
			if err := json.Unmarshal([]byte(s), &obj); err != nil {
				return nil, fmt.Errorf("httpCall: invalid headers: %w", err)
			}
			return parseHeaders(obj)
		}
		for _, line := range strings.Split(s, "\n") {
			k, v, ok := strings.Cut(line, ":")
			if !ok {
				return nil, fmt.Errorf("httpCall: invalid header line %q", line)
			}
			out[strings.TrimSpace(k)] = strings.TrimSpace(v)
		}
	default:
		return nil, fmt.Errorf("httpCall: headers must be an object or a string, got %T", raw)
	}
	return out, nil
}

func isJSON(headers map[string]string) bool {
	for k, v := range headers {
		if !strings.EqualFold(k, "Content-Type") {
			continue
		}
		mt, _, err := mime.ParseMediaType(v)
		return err == nil && (mt == "application/json" || strings.HasSuffix(mt, "+json"))
	}
	return false
}
