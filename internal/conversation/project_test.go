package conversation

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/slackmcp/internal/slackts"
	"github.com/Aman-CERP/slackmcp/internal/store"
)

func TestProject_DropsOptionalFieldsPerFlags(t *testing.T) {
	rt := root("C1", 100, "U1")
	rt.Files = []byte(`[{"name":"plan.pdf"}]`)
	rt.Attachments = []byte(`null`)
	msgs := []*store.Message{rt, reply("C1", 101, 100, "U2")}
	tree := NewBuilder(slackts.NewLinker("https://acme.slack.com")).
		Build(msgs, BuildOptions{IncludePermalinks: true})

	t.Run("flags off", func(t *testing.T) {
		resp := Project(tree, ProjectOptions{}, Directory{})

		got := resp.Channels["C1"].Messages[0]
		assert.Nil(t, got.Files)
		assert.Empty(t, got.Permalink)
		assert.Empty(t, got.ChannelID)
		assert.Empty(t, got.Replies[0].Permalink)
	})

	t.Run("flags on", func(t *testing.T) {
		resp := Project(tree, ProjectOptions{IncludeFiles: true, IncludePermalinks: true}, Directory{})

		got := resp.Channels["C1"].Messages[0]
		assert.JSONEq(t, `[{"name":"plan.pdf"}]`, string(got.Files))
		assert.Nil(t, got.Attachments, "JSON null is dropped")
		assert.NotEmpty(t, got.Permalink)
		assert.NotEmpty(t, got.Replies[0].Permalink)
	})
}

func TestProject_NamesAndUsers(t *testing.T) {
	msgs := []*store.Message{plain("C1", 100, "U1"), plain("C1", 101, "U2")}
	tree := NewBuilder(nil).Build(msgs, BuildOptions{})
	dir := Directory{
		Channels: map[string]*store.Channel{"C1": {ID: "C1", Name: "general"}},
		Users: map[string]*store.User{
			"U1": {ID: "U1", UserName: "ada", RealName: "Ada Lovelace", Email: "ada@acme.io", TZ: "Europe/London"},
		},
	}

	resp := Project(tree, ProjectOptions{}, dir)

	assert.Equal(t, "general", resp.Channels["C1"].Name)
	assert.Equal(t, UserOut{UserName: "ada", RealName: "Ada Lovelace", TZ: "Europe/London"}, resp.Users["U1"])
	assert.Equal(t, UserOut{}, resp.Users["U2"])
}

func TestProject_JSONShape(t *testing.T) {
	msgs := []*store.Message{
		reply("C1", 501, 500, "U1"),
		reply("C1", 502, 500, "U1"),
	}
	tree := NewBuilder(nil).Build(msgs, BuildOptions{})

	data, err := json.Marshal(Project(tree, ProjectOptions{}, Directory{}))
	require.NoError(t, err)

	want := `{
		"channels": {
			"C1": {
				"messages": [{
					"ts": "500.000000",
					"thread_ts": "500.000000",
					"user_id": "unknown",
					"text": "root message not in window",
					"reply_count": 2,
					"placeholder": true,
					"replies": [
						{"ts": "501.000000", "thread_ts": "500.000000", "user_id": "U1", "text": "reply"},
						{"ts": "502.000000", "thread_ts": "500.000000", "user_id": "U1", "text": "reply"}
					]
				}]
			}
		},
		"users": {"U1": {}}
	}`
	assert.JSONEq(t, want, string(data))
}

func TestProjectNodes_KeepsChannel(t *testing.T) {
	nodes := NewBuilder(nil).Flatten([]*store.Message{plain("C9", 100, "U1")}, false)

	out := ProjectNodes(nodes, ProjectOptions{})

	require.Len(t, out, 1)
	assert.Equal(t, "C9", out[0].ChannelID)
}
