package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Aman-CERP/slackmcp/internal/conversation"
	slerrors "github.com/Aman-CERP/slackmcp/internal/errors"
	"github.com/Aman-CERP/slackmcp/internal/query"
	"github.com/Aman-CERP/slackmcp/pkg/version"
)

// Service answers tool calls. query.Service implements it.
type Service interface {
	MessageContext(ctx context.Context, req query.MessageContextRequest) (*conversation.Response, error)
	ChannelConversations(ctx context.Context, req query.ChannelConversationsRequest) (*conversation.Response, error)
	UserConversations(ctx context.Context, req query.UserConversationsRequest) (*conversation.Response, error)
	ThreadMessages(ctx context.Context, req query.ThreadRequest) (*query.ThreadResponse, error)
	Search(ctx context.Context, req query.SearchRequest) (*query.SearchResponse, error)
	ListChannels(ctx context.Context) ([]query.ChannelInfo, error)
	ResolveChannel(ctx context.Context, ref string) (*query.ChannelInfo, error)
	LookupUser(ctx context.Context, ref string, includeBots bool) (*query.UserInfo, error)
}

// ToolObserver records tool call outcomes. telemetry.Metrics implements it.
type ToolObserver interface {
	ObserveToolCall(tool string, d time.Duration, err error)
}

// Pinger checks backing store health for the HTTP health endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server is the MCP server for slackmcp. It bridges AI clients with the
// conversation and search services.
type Server struct {
	mcp      *mcp.Server
	service  Service
	logger   *slog.Logger
	observer ToolObserver
	health   Pinger
	metrics  http.Handler

	// metricsPath is where metrics is mounted.
	metricsPath string
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithToolObserver records every tool call.
func WithToolObserver(o ToolObserver) Option {
	return func(s *Server) { s.observer = o }
}

// WithHealthCheck sets the check behind /healthz on the HTTP transport.
func WithHealthCheck(p Pinger) Option {
	return func(s *Server) { s.health = p }
}

// WithMetricsHandler exposes h on the HTTP transport at path, or at
// /metrics when path is empty.
func WithMetricsHandler(h http.Handler, path ...string) Option {
	return func(s *Server) {
		s.metrics = h
		if len(path) > 0 && path[0] != "" {
			s.metricsPath = path[0]
		}
	}
}

// NewServer creates a new MCP server.
func NewServer(service Service, opts ...Option) (*Server, error) {
	if service == nil {
		return nil, errors.New("query service is required")
	}

	s := &Server{
		service:     service,
		logger:      slog.Default(),
		metricsPath: "/metrics",
	}
	for _, opt := range opts {
		opt(s)
	}

	s.mcp = mcp.NewServer(
		&mcp.Implementation{
			Name:    "slackmcp",
			Version: version.Version,
		},
		nil, // capabilities are inferred from registered tools
	)

	s.registerTools()

	return s, nil
}

// MCPServer returns the underlying MCP server instance.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// Info returns the server name and version.
func (s *Server) Info() (name, ver string) {
	return "slackmcp", version.Version
}

// ListTools returns all registered tools.
func (s *Server) ListTools() []ToolInfo {
	out := make([]ToolInfo, len(toolInfos))
	copy(out, toolInfos)
	return out
}

// CallTool invokes a tool by name with JSON-shaped arguments and returns
// the rendered text. It shares the handlers used by the MCP transport.
func (s *Server) CallTool(ctx context.Context, name string, args map[string]any) (string, error) {
	raw, err := json.Marshal(args)
	if err != nil {
		return "", NewInvalidParamsError(err.Error())
	}

	var res *mcp.CallToolResult
	switch name {
	case ToolMessageContext:
		res, err = callWith(ctx, raw, s.handleMessageContext)
	case ToolChannelConversations:
		res, err = callWith(ctx, raw, s.handleChannelConversations)
	case ToolUserConversations:
		res, err = callWith(ctx, raw, s.handleUserConversations)
	case ToolThread:
		res, err = callWith(ctx, raw, s.handleThread)
	case ToolSearchMessages:
		res, err = callWith(ctx, raw, s.handleSearch)
	case ToolListChannels:
		res, err = callWith(ctx, raw, s.handleListChannels)
	case ToolLookupChannel:
		res, err = callWith(ctx, raw, s.handleLookupChannel)
	case ToolLookupUser:
		res, err = callWith(ctx, raw, s.handleLookupUser)
	default:
		return "", NewMethodNotFoundError(name)
	}
	if err != nil {
		return "", err
	}
	return resultText(res), nil
}

func callWith[In any](
	ctx context.Context,
	raw []byte,
	h func(context.Context, *mcp.CallToolRequest, In) (*mcp.CallToolResult, any, error),
) (*mcp.CallToolResult, error) {
	var in In
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, NewInvalidParamsError(fmt.Sprintf("invalid arguments: %v", err))
	}
	res, _, err := h(ctx, nil, in)
	return res, err
}

func resultText(res *mcp.CallToolResult) string {
	if res == nil {
		return ""
	}
	for _, c := range res.Content {
		if tc, ok := c.(*mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

// registerTools registers all tools with the MCP server.
func (s *Server) registerTools() {
	s.logger.Debug("Registering MCP tools")

	for _, info := range toolInfos {
		tool := &mcp.Tool{Name: info.Name, Description: info.Description}
		switch info.Name {
		case ToolMessageContext:
			mcp.AddTool(s.mcp, tool, s.handleMessageContext)
		case ToolChannelConversations:
			mcp.AddTool(s.mcp, tool, s.handleChannelConversations)
		case ToolUserConversations:
			mcp.AddTool(s.mcp, tool, s.handleUserConversations)
		case ToolThread:
			mcp.AddTool(s.mcp, tool, s.handleThread)
		case ToolSearchMessages:
			mcp.AddTool(s.mcp, tool, s.handleSearch)
		case ToolListChannels:
			mcp.AddTool(s.mcp, tool, s.handleListChannels)
		case ToolLookupChannel:
			mcp.AddTool(s.mcp, tool, s.handleLookupChannel)
		case ToolLookupUser:
			mcp.AddTool(s.mcp, tool, s.handleLookupUser)
		}
		s.logger.Debug("Registered tool", slog.String("name", info.Name))
	}

	s.logger.Info("MCP tools registered", slog.Int("count", len(toolInfos)))
}

// rendered is a tool result before it is encoded for the client.
type rendered struct {
	value    any
	count    int
	markdown func() string
}

// invoke runs one tool call with request-scoped logging, telemetry and
// error mapping, then encodes the result in the requested format.
func (s *Server) invoke(
	ctx context.Context,
	tool, format string,
	attrs []any,
	call func(ctx context.Context) (rendered, error),
) (*mcp.CallToolResult, any, error) {
	if format != "" && format != FormatMarkdown && format != FormatJSON {
		return nil, nil, NewInvalidParamsError(fmt.Sprintf("format must be %q or %q", FormatMarkdown, FormatJSON))
	}

	start := time.Now()
	logger := s.logger.With(
		slog.String("tool", tool),
		slog.String("request_id", uuid.NewString()))
	logger.Info(tool+" started", attrs...)

	out, err := call(ctx)
	d := time.Since(start)
	if s.observer != nil {
		s.observer.ObserveToolCall(tool, d, err)
	}
	if err != nil {
		level := slog.LevelError
		if cat := slerrors.GetCategory(err); cat == slerrors.CategoryValidation || cat == slerrors.CategoryLookup {
			level = slog.LevelWarn
		}
		logAttrs := append([]any{slog.Duration("duration", d)}, slerrors.LogAttrs(err)...)
		logger.Log(ctx, level, tool+" failed", logAttrs...)
		return nil, nil, MapError(err)
	}

	logger.Info(tool+" completed",
		slog.Duration("duration", d),
		slog.Int("result_count", out.count))

	var text string
	if format == FormatJSON {
		b, err := json.MarshalIndent(out.value, "", "  ")
		if err != nil {
			return nil, nil, MapError(slerrors.InternalError("encode result", err))
		}
		text = string(b)
	} else {
		text = out.markdown()
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}, nil, nil
}

func (s *Server) handleMessageContext(ctx context.Context, _ *mcp.CallToolRequest, in MessageContextInput) (*mcp.CallToolResult, any, error) {
	return s.invoke(ctx, ToolMessageContext, in.Format,
		[]any{slog.Int("messages", len(in.Messages))},
		func(ctx context.Context) (rendered, error) {
			resp, err := s.service.MessageContext(ctx, in.request())
			if err != nil {
				return rendered{}, err
			}
			return treeRendered("message context", resp), nil
		})
}

func (s *Server) handleChannelConversations(ctx context.Context, _ *mcp.CallToolRequest, in ChannelConversationsInput) (*mcp.CallToolResult, any, error) {
	return s.invoke(ctx, ToolChannelConversations, in.Format,
		[]any{slog.String("channel", in.Channel)},
		func(ctx context.Context) (rendered, error) {
			resp, err := s.service.ChannelConversations(ctx, in.request())
			if err != nil {
				return rendered{}, err
			}
			return treeRendered("conversations in "+in.Channel, resp), nil
		})
}

func (s *Server) handleUserConversations(ctx context.Context, _ *mcp.CallToolRequest, in UserConversationsInput) (*mcp.CallToolResult, any, error) {
	return s.invoke(ctx, ToolUserConversations, in.Format,
		[]any{slog.String("user", in.User), slog.String("channel", in.Channel)},
		func(ctx context.Context) (rendered, error) {
			resp, err := s.service.UserConversations(ctx, in.request())
			if err != nil {
				return rendered{}, err
			}
			return treeRendered("conversations with "+in.User, resp), nil
		})
}

func (s *Server) handleThread(ctx context.Context, _ *mcp.CallToolRequest, in ThreadInput) (*mcp.CallToolResult, any, error) {
	return s.invoke(ctx, ToolThread, in.Format,
		[]any{slog.String("channel", in.Channel), slog.String("thread_ts", in.ThreadTS)},
		func(ctx context.Context) (rendered, error) {
			resp, err := s.service.ThreadMessages(ctx, in.request())
			if err != nil {
				return rendered{}, err
			}
			return rendered{
				value:    resp,
				count:    len(resp.Messages),
				markdown: func() string { return FormatThread(resp) },
			}, nil
		})
}

func (s *Server) handleSearch(ctx context.Context, _ *mcp.CallToolRequest, in SearchInput) (*mcp.CallToolResult, any, error) {
	return s.invoke(ctx, ToolSearchMessages, in.Format,
		[]any{slog.String("query", in.Query), slog.Int("limit", in.Limit)},
		func(ctx context.Context) (rendered, error) {
			resp, err := s.service.Search(ctx, in.request())
			if err != nil {
				return rendered{}, err
			}
			count := len(resp.Messages)
			for _, ch := range resp.Channels {
				count += countMessages(ch.Messages)
			}
			return rendered{
				value:    resp,
				count:    count,
				markdown: func() string { return FormatSearchResults(in.Query, resp) },
			}, nil
		})
}

func (s *Server) handleListChannels(ctx context.Context, _ *mcp.CallToolRequest, in ListChannelsInput) (*mcp.CallToolResult, any, error) {
	return s.invoke(ctx, ToolListChannels, in.Format, nil,
		func(ctx context.Context) (rendered, error) {
			channels, err := s.service.ListChannels(ctx)
			if err != nil {
				return rendered{}, err
			}
			return rendered{
				value:    channels,
				count:    len(channels),
				markdown: func() string { return FormatChannels(channels) },
			}, nil
		})
}

func (s *Server) handleLookupChannel(ctx context.Context, _ *mcp.CallToolRequest, in LookupChannelInput) (*mcp.CallToolResult, any, error) {
	return s.invoke(ctx, ToolLookupChannel, in.Format,
		[]any{slog.String("channel", in.Channel)},
		func(ctx context.Context) (rendered, error) {
			ch, err := s.service.ResolveChannel(ctx, in.Channel)
			if err != nil {
				return rendered{}, err
			}
			return rendered{
				value:    ch,
				count:    1,
				markdown: func() string { return FormatChannel(ch) },
			}, nil
		})
}

func (s *Server) handleLookupUser(ctx context.Context, _ *mcp.CallToolRequest, in LookupUserInput) (*mcp.CallToolResult, any, error) {
	return s.invoke(ctx, ToolLookupUser, in.Format,
		[]any{slog.String("user", in.User)},
		func(ctx context.Context) (rendered, error) {
			u, err := s.service.LookupUser(ctx, in.User, in.IncludeBots)
			if err != nil {
				return rendered{}, err
			}
			return rendered{
				value:    u,
				count:    1,
				markdown: func() string { return FormatUser(u) },
			}, nil
		})
}

func treeRendered(title string, resp *conversation.Response) rendered {
	count := 0
	for _, ch := range resp.Channels {
		count += countMessages(ch.Messages)
	}
	return rendered{
		value:    resp,
		count:    count,
		markdown: func() string { return FormatConversations(title, resp) },
	}
}

// Serve starts the server with the specified transport.
func (s *Server) Serve(ctx context.Context, transport, addr string) error {
	s.logger.Info("Starting MCP server",
		slog.String("transport", transport),
		slog.String("addr", addr))

	switch transport {
	case "stdio":
		s.logger.Debug("Using stdio transport for JSON-RPC")
		err := s.mcp.Run(ctx, &mcp.StdioTransport{})
		if err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error("MCP server stopped with error",
				slog.String("error", err.Error()))
		} else {
			s.logger.Info("MCP server stopped gracefully")
		}
		return err
	case "http":
		return s.serveHTTP(ctx, addr)
	default:
		return fmt.Errorf("unknown transport: %s (supported: stdio, http)", transport)
	}
}
