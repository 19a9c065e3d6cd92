package cmd

import (
	"bytes"
	"context"
	"testing"

	"github.com/Aman-CERP/slackmcp/internal/config"
	"github.com/Aman-CERP/slackmcp/internal/conversation"
	mcpserver "github.com/Aman-CERP/slackmcp/internal/mcp"
	"github.com/Aman-CERP/slackmcp/internal/preflight"
	"github.com/Aman-CERP/slackmcp/internal/query"
)

// =============================================================================
// Fakes
// =============================================================================

// FakeService implements mcpserver.Service with overridable methods.
type FakeService struct {
	MessageContextFn       func(ctx context.Context, req query.MessageContextRequest) (*conversation.Response, error)
	ChannelConversationsFn func(ctx context.Context, req query.ChannelConversationsRequest) (*conversation.Response, error)
	UserConversationsFn    func(ctx context.Context, req query.UserConversationsRequest) (*conversation.Response, error)
	ThreadMessagesFn       func(ctx context.Context, req query.ThreadRequest) (*query.ThreadResponse, error)
	SearchFn               func(ctx context.Context, req query.SearchRequest) (*query.SearchResponse, error)
	ListChannelsFn         func(ctx context.Context) ([]query.ChannelInfo, error)
	ResolveChannelFn       func(ctx context.Context, ref string) (*query.ChannelInfo, error)
	LookupUserFn           func(ctx context.Context, ref string, includeBots bool) (*query.UserInfo, error)
}

var _ mcpserver.Service = (*FakeService)(nil)

func (f *FakeService) MessageContext(ctx context.Context, req query.MessageContextRequest) (*conversation.Response, error) {
	if f.MessageContextFn != nil {
		return f.MessageContextFn(ctx, req)
	}
	return &conversation.Response{}, nil
}

func (f *FakeService) ChannelConversations(ctx context.Context, req query.ChannelConversationsRequest) (*conversation.Response, error) {
	if f.ChannelConversationsFn != nil {
		return f.ChannelConversationsFn(ctx, req)
	}
	return &conversation.Response{}, nil
}

func (f *FakeService) UserConversations(ctx context.Context, req query.UserConversationsRequest) (*conversation.Response, error) {
	if f.UserConversationsFn != nil {
		return f.UserConversationsFn(ctx, req)
	}
	return &conversation.Response{}, nil
}

func (f *FakeService) ThreadMessages(ctx context.Context, req query.ThreadRequest) (*query.ThreadResponse, error) {
	if f.ThreadMessagesFn != nil {
		return f.ThreadMessagesFn(ctx, req)
	}
	return &query.ThreadResponse{}, nil
}

func (f *FakeService) Search(ctx context.Context, req query.SearchRequest) (*query.SearchResponse, error) {
	if f.SearchFn != nil {
		return f.SearchFn(ctx, req)
	}
	return &query.SearchResponse{}, nil
}

func (f *FakeService) ListChannels(ctx context.Context) ([]query.ChannelInfo, error) {
	if f.ListChannelsFn != nil {
		return f.ListChannelsFn(ctx)
	}
	return nil, nil
}

func (f *FakeService) ResolveChannel(ctx context.Context, ref string) (*query.ChannelInfo, error) {
	if f.ResolveChannelFn != nil {
		return f.ResolveChannelFn(ctx, ref)
	}
	return &query.ChannelInfo{ID: "C1", Name: ref}, nil
}

func (f *FakeService) LookupUser(ctx context.Context, ref string, includeBots bool) (*query.UserInfo, error) {
	if f.LookupUserFn != nil {
		return f.LookupUserFn(ctx, ref, includeBots)
	}
	return &query.UserInfo{ID: "U1", UserName: ref}, nil
}

// FakeDatabase implements preflight.Database.
type FakeDatabase struct {
	PingErr   error
	Extension bool
	Messages  int64
}

var _ preflight.Database = (*FakeDatabase)(nil)

func (f *FakeDatabase) Ping(context.Context) error { return f.PingErr }

func (f *FakeDatabase) HasExtension(context.Context, string) (bool, error) { return f.Extension, nil }

func (f *FakeDatabase) CountMessages(context.Context) (int64, error) { return f.Messages, nil }

// =============================================================================
// Helpers
// =============================================================================

var cmdEnvVars = []string{
	"SLACKMCP_DATABASE_URL", "DATABASE_URL",
	"SLACKMCP_EMBEDDINGS_PROVIDER", "SLACKMCP_EMBEDDINGS_MODEL",
	"SLACKMCP_EMBEDDINGS_BASE_URL", "OPENAI_BASE_URL",
	"SLACKMCP_EMBEDDINGS_API_KEY", "OPENAI_API_KEY",
	"SLACKMCP_SEMANTIC_WEIGHT", "SLACKMCP_RRF_CONSTANT",
	"SLACKMCP_WORKSPACE_URL", "SLACK_WORKSPACE_URL",
	"SLACKMCP_LOG_LEVEL", "SLACKMCP_TRANSPORT", "SLACKMCP_ADDR", "SLACKMCP_METRICS_ENABLED",
}

// isolate gives the test empty user config, log and project dirs, clears
// the variables config.Load reads and returns the project dir.
func isolate(t *testing.T) string {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("SLACKMCP_LOG_DIR", t.TempDir())
	for _, name := range cmdEnvVars {
		t.Setenv(name, "")
	}
	return t.TempDir()
}

// fakeDeps serves svc to every query command and runs doctor against db.
func fakeDeps(svc mcpserver.Service, db preflight.Database) deps {
	return deps{
		openService: func(context.Context, *config.Config) (mcpserver.Service, func(), error) {
			return svc, func() {}, nil
		},
		doctorOptions: func(context.Context, *config.Config, bool) ([]preflight.Option, func()) {
			if db == nil {
				return nil, func() {}
			}
			return []preflight.Option{preflight.WithDatabase(db)}, func() {}
		},
	}
}

// run executes the root command in an isolated project dir and returns
// stdout and stderr.
func run(t *testing.T, d deps, args ...string) (string, string, error) {
	t.Helper()
	return runIn(t, isolate(t), d, args...)
}

// runIn executes the root command against the project in dir.
func runIn(t *testing.T, dir string, d deps, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCmd(d)
	stdout, stderr := new(bytes.Buffer), new(bytes.Buffer)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(append([]string{"--dir", dir}, args...))

	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}
