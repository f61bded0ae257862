package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"codemend/internal/backend"
	"codemend/internal/issue"
)

func request(t *testing.T) backend.Request {
	t.Helper()
	is, err := issue.NewFromLines(issue.Spec{Tool: "vet", File: "a.go", Line: 1, Description: "d"}, []string{"x"})
	require.NoError(t, err)
	return backend.Request{Text: "fix it", Issue: is, Lines: []string{"x // ISSUE(vet)"}}
}

func TestOpenAI_Query(t *testing.T) {
	var got struct {
		Model    string `json:"model"`
		N        int    `json:"n"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "c1", "object": "chat.completion", "model": "m",
			"choices": [
				{"index": 0, "message": {"role": "assistant", "content": "Sure:\n` + "```go\\nx := 2\\n```" + `"}, "finish_reason": "stop"},
				{"index": 1, "message": {"role": "assistant", "content": "   "}, "finish_reason": "stop"}
			],
			"usage": {"prompt_tokens": 1, "completion_tokens": 1, "total_tokens": 2}
		}`))
	}))
	defer srv.Close()

	o := NewOpenAI(Options{APIKey: "sk-test", BaseURL: srv.URL + "/v1", Model: "m", Candidates: 2}, nil)
	answers := o.Query(context.Background(), request(t))

	assert.Equal(t, []string{"x := 2\n"}, answers)
	assert.Equal(t, "m", got.Model)
	assert.Equal(t, 2, got.N)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "fix it", got.Messages[1].Content)
	assert.Equal(t, "openai", o.Name())
	assert.False(t, o.Modified())
}

func TestOpenAI_ErrorMeansNoAnswer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": {"message": "overloaded"}}`, http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	o := NewOpenAI(Options{APIKey: "k", BaseURL: srv.URL + "/v1", Timeout: 5 * time.Second}, nil)
	assert.Empty(t, o.Query(context.Background(), request(t)))
}

func TestOpenAI_CanceledWhileWaitingForLimiter(t *testing.T) {
	o := NewOpenAI(Options{APIKey: "k", BaseURL: "http://127.0.0.1:1/v1", RequestsPerMinute: 1}, nil)
	require.True(t, o.limiter.Allow())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Empty(t, o.Query(ctx, request(t)))
}

func TestCandidateTexts(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: &genai.Content{Parts: []*genai.Part{
				{Text: "thinking...", Thought: true},
				{Text: "```py\n"},
				{Text: "x = 1\n```"},
			}}},
			{Content: nil},
			{Content: &genai.Content{Parts: []*genai.Part{{Text: "y = 2"}}}},
		},
	}
	texts := candidateTexts(resp)
	assert.Equal(t, []string{"```py\nx = 1\n```", "y = 2"}, texts)
	assert.Equal(t, []string{"x = 1\n", "y = 2"}, codeBlocks(texts))
	assert.Nil(t, candidateTexts(nil))
}

func TestOptionsDefaults(t *testing.T) {
	o := Options{}.withDefaults("gemini", "gemini-2.5-flash")
	assert.Equal(t, "gemini", o.Name)
	assert.Equal(t, "gemini-2.5-flash", o.Model)
	assert.Equal(t, 1, o.Candidates)
	assert.Equal(t, backend.SystemPrompt, o.SystemPrompt)
	assert.Nil(t, newLimiter(0))
}
