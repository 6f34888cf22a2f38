package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pokeriq/trainrec/core"
)

type recordingHook struct {
	before []string
	after  []string
}

func (h *recordingHook) BeforeNode(_ context.Context, _ *core.RecommendContext, n Node, _ []*core.Item) {
	h.before = append(h.before, n.Name())
}

func (h *recordingHook) AfterNode(_ context.Context, _ *core.RecommendContext, n Node, _ []*core.Item, _ time.Duration, _ error) {
	h.after = append(h.after, n.Name())
}

func appendNode(name, id string) Node {
	return NodeFunc{NodeName: name, NodeKind: KindReRank, Fn: func(_ context.Context, _ *core.RecommendContext, items []*core.Item) ([]*core.Item, error) {
		return append(append([]*core.Item(nil), items...), core.NewItem(id)), nil
	}}
}

func TestPipeline_RunInOrderWithHooks(t *testing.T) {
	hook := &recordingHook{}
	p := New("test", appendNode("a", "1"), appendNode("b", "2")).Use(hook)

	out, err := p.Run(context.Background(), nil, nil)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "1", out[0].ID)
	assert.Equal(t, "2", out[1].ID)
	assert.Equal(t, []string{"a", "b"}, hook.before)
	assert.Equal(t, []string{"a", "b"}, hook.after)
	assert.Equal(t, []string{"a", "b"}, p.NodeNames())
}

func TestPipeline_StopsOnError(t *testing.T) {
	boom := errors.New("boom")
	failing := NodeFunc{NodeName: "fail", NodeKind: KindReRank, Fn: func(context.Context, *core.RecommendContext, []*core.Item) ([]*core.Item, error) {
		return nil, boom
	}}
	p := New("test", failing, appendNode("never", "x"))

	_, err := p.Run(context.Background(), nil, nil)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "node fail")
}

func TestPipeline_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New("test", appendNode("a", "1")).Run(ctx, nil, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestConfig_BuildPipeline(t *testing.T) {
	cfg, err := ParseYAML([]byte(`
pipeline:
  name: post
  nodes:
    - type: add
      config: {id: "7"}
`))
	require.NoError(t, err)

	f := NewNodeFactory()
	f.Register("add", func(c map[string]any) (Node, error) {
		return appendNode("add", c["id"].(string)), nil
	})

	p, err := cfg.BuildPipeline(f)
	require.NoError(t, err)
	assert.Equal(t, "post", p.Name)

	out, err := p.Run(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "7", out[0].ID)

	_, err = f.Build("missing", nil)
	assert.Error(t, err)
}
