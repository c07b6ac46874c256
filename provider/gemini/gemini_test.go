package gemini

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"google.golang.org/genai"

	"github.com/kevinwang15/litpatch"
	"github.com/kevinwang15/litpatch/provider/file"
)

// fakeModels answers by looking up the tool name quoted in the prompt.
type fakeModels struct {
	mu      sync.Mutex
	answers map[string][]string // tool name -> successive answers
	errs    map[string]error
	calls   map[string]int
}

func (f *fakeModels) GenerateContent(_ context.Context, model string, contents []*genai.Content,
	config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	prompt := contents[0].Parts[0].Text
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	for name, answers := range f.answers {
		if !strings.Contains(prompt, `"`+name+`"`) {
			continue
		}
		n := f.calls[name]
		f.calls[name]++
		if err := f.errs[name]; err != nil {
			return nil, err
		}
		a := answers[len(answers)-1]
		if n < len(answers) {
			a = answers[n]
		}
		return &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
			Content: genai.NewContentFromText(a, genai.RoleModel),
		}}}, nil
	}
	return nil, errors.New("unknown tool")
}

func (f *fakeModels) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

var fixedNow = func() time.Time { return time.Date(2025, 7, 14, 0, 0, 0, 0, time.UTC) }

func newTestProvider(m Models, tools []Tool, opts ...Option) *Provider {
	base := []Option{WithRateDelay(0), WithClock(fixedNow), WithConcurrency(3)}
	return NewWithModels(m, tools, append(base, opts...)...)
}

func TestFetchUpdates(t *testing.T) {
	m := &fakeModels{answers: map[string][]string{
		"ChatGPT": {"```json\n{\"pricing\": \"Freemium\", \"apiAccess\": true}\n```"},
		"Cursor":  {`Here you go: {"description": "AI code editor"} Hope that helps.`},
	}}
	p := newTestProvider(m, []Tool{
		{ID: "chatgpt", Name: "ChatGPT", Company: "OpenAI"},
		{ID: "cursor", Name: "Cursor"},
	})
	set, err := p.FetchUpdates(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"chatgpt", "cursor"}, set.IDs())
	assert.Equal(t, "pricing", set[0].Fields[0].Key)
	assert.True(t, set[0].Fields[1].Value.Equal(litpatch.Bool(true)))
	assert.True(t, set[1].Fields[0].Value.Equal(litpatch.String("AI code editor")))
}

func TestFetchRetriesThenSkipsBadRecord(t *testing.T) {
	m := &fakeModels{answers: map[string][]string{
		"Good":  {"not json", `{"pricing": "Free"}`},
		"Bad":   {"still not json"},
		"Error": {"{}"},
	}, errs: map[string]error{"Error": errors.New("quota exceeded")}}
	p := newTestProvider(m, []Tool{{ID: "good", Name: "Good"}, {ID: "bad", Name: "Bad"}, {ID: "error", Name: "Error"}},
		WithMaxRetries(2))

	set, err := p.FetchUpdates(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"good"}, set.IDs())
	assert.Equal(t, 2, m.count("Good"))
	assert.Equal(t, 2, m.count("Bad"))
	assert.Equal(t, 2, m.count("Error"))
}

func TestFetchAllFailed(t *testing.T) {
	m := &fakeModels{answers: map[string][]string{"Bad": {"[1, 2]"}}}
	p := newTestProvider(m, []Tool{{ID: "bad", Name: "Bad"}}, WithMaxRetries(1))
	_, err := p.FetchUpdates(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, litpatch.ErrDataFormat)
}

func TestFetchCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	m := &fakeModels{answers: map[string][]string{"A": {`{"x": 1}`}}}
	p := newTestProvider(m, []Tool{{ID: "a", Name: "A"}})
	_, err := p.FetchUpdates(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestFetchNoTools(t *testing.T) {
	set, err := newTestProvider(&fakeModels{}, nil).FetchUpdates(context.Background())
	require.NoError(t, err)
	assert.Empty(t, set)
}

func TestParseResponse(t *testing.T) {
	fields, err := ParseResponse("```json\n{\"a\": [1, 2], \"b\": {\"c\": null}}\n```")
	require.NoError(t, err)
	require.Len(t, fields, 2)
	assert.Equal(t, litpatch.KindList, fields[0].Value.Kind())
	assert.Equal(t, litpatch.KindMap, fields[1].Value.Kind())

	for _, bad := range []string{"", "nothing here", "{}", `{"a": }`} {
		_, err := ParseResponse(bad)
		assert.ErrorIs(t, err, litpatch.ErrDataFormat, bad)
	}
}

func TestPrompt(t *testing.T) {
	p := Prompt(Tool{ID: "midjourney", Name: "Midjourney", Company: "Midjourney", Category: "Image Generation"}, fixedNow())
	assert.Contains(t, p, `"Midjourney" by Midjourney as of July 2025`)
	assert.Contains(t, p, `"category": "Image Generation"`)
	assert.Contains(t, p, `"lastUpdated": "2025-07-14"`)

	p = Prompt(Tool{ID: "x"}, fixedNow())
	assert.Contains(t, p, `"x" as of`)
}

func TestSnapshotRoundTrip(t *testing.T) {
	set := litpatch.UpdateSet{
		{ID: "chatgpt", Fields: []litpatch.Field{
			litpatch.F("pricing", litpatch.String("Freemium")),
			litpatch.F("platforms", litpatch.List(litpatch.String("Web"), litpatch.String("iOS"))),
		}},
		{ID: "claude", Fields: []litpatch.Field{litpatch.F("id", litpatch.String("ignored")), litpatch.F("apiAccess", litpatch.Bool(true))}},
	}
	b, err := Snapshot(set, fixedNow())
	require.NoError(t, err)
	assert.Equal(t, int64(2), gjson.GetBytes(b, "totalTools").Int())
	assert.Equal(t, "chatgpt", gjson.GetBytes(b, "tools.0.id").String())
	assert.Equal(t, "claude", gjson.GetBytes(b, "tools.1.id").String())
	assert.Equal(t, "iOS", gjson.GetBytes(b, "tools.0.platforms.1").String())

	p := filepath.Join(t.TempDir(), "aiToolsData_updated.json")
	require.NoError(t, SaveSnapshot(p, set, fixedNow()))
	replayed, err := file.New(p).FetchUpdates(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"chatgpt", "claude"}, replayed.IDs())
	// The id member leads each replayed record.
	assert.Equal(t, "id", replayed[0].Fields[0].Key)
	assert.True(t, replayed[0].Fields[2].Value.Equal(set[0].Fields[1].Value))
}
