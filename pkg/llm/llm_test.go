package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umputun/trendmind/pkg/config"
	"github.com/umputun/trendmind/pkg/domain"
)

// llmServer fakes OpenAI-compatible chat completions, reply is called for every request
func llmServer(t *testing.T, reply func(req openai.ChatCompletionRequest) (int, any)) (*httptest.Server, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		var req openai.ChatCompletionRequest
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&req)) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		status, body := reply(req)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func chatResponse(content string) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: content}}},
	}
}

func testConfig(srv *httptest.Server) config.LLMConfig {
	return config.LLMConfig{
		Endpoint:    srv.URL + "/v1",
		APIKey:      "test-key",
		APIType:     "openai",
		Model:       "gpt-4o-mini",
		Temperature: 0.3,
		Timeout:     5 * time.Second,
		Clustering:  config.ClusteringConfig{MinClusters: 2, MaxClusters: 8, ExcerptLength: 200, UseJSONMode: true},
		Summary:     config.SummaryConfig{MaxArticles: 10, ExcerptLength: 500, MaxTokens: 500, Temperature: 0.7, TopN: 5},
		Filter:      config.FilterConfig{ChunkSize: 20},
	}
}

func makeArticles(n int) []domain.Article {
	res := make([]domain.Article, n)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for i := range res {
		res[i] = domain.Article{
			SourceType: domain.SourceFeed,
			SourceURL:  fmt.Sprintf("https://src%d.example.com/feed", i%3),
			Title:      fmt.Sprintf("Article %d", i),
			Content:    fmt.Sprintf("content of article %d about machine learning", i),
			Published:  base.Add(time.Duration(i) * time.Hour),
		}
	}
	return res
}

// coverage returns how many times each index is assigned
func coverage(clusters []domain.Cluster, n int) []int {
	res := make([]int, n)
	for _, c := range clusters {
		for _, idx := range c.Members {
			res[idx]++
		}
	}
	return res
}

func TestClusterer_Assign(t *testing.T) {
	srv, _ := llmServer(t, func(req openai.ChatCompletionRequest) (int, any) {
		assert.Equal(t, "gpt-4o-mini", req.Model)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, clusterSystemPrompt, req.Messages[0].Content)
		assert.Contains(t, req.Messages[1].Content, "Group these 5 articles into 2-4 coherent topic clusters")
		require.NotNil(t, req.ResponseFormat)
		assert.Equal(t, openai.ChatCompletionResponseFormatTypeJSONObject, req.ResponseFormat.Type)
		return http.StatusOK, chatResponse(`{"clusters": [
			{"topic_name": "Small Models", "description": "edge models", "article_ids": [3]},
			{"topic_name": "Agents", "description": "agent frameworks", "article_ids": [0, 1, 4]},
			{"topic_name": "Chips", "description": "hardware", "article_ids": ["2"]}
		]}`)
	})
	c := NewClusterer(NewClient(testConfig(srv)), testConfig(srv))

	articles := makeArticles(5)
	clusters, outcome := c.Assign(context.Background(), articles, 4)
	assert.False(t, outcome.IsDegraded())
	require.Len(t, clusters, 3)

	assert.Equal(t, "Agents", clusters[0].TopicName)
	assert.Equal(t, "agent frameworks", clusters[0].Description)
	assert.Equal(t, []int{0, 1, 4}, clusters[0].Members)
	assert.Equal(t, 3, clusters[0].ArticleCount())
	require.Len(t, clusters[0].Articles, 3)
	assert.Equal(t, "Article 4", clusters[0].Articles[2].Title)

	// equal sizes keep model order
	assert.Equal(t, "Small Models", clusters[1].TopicName)
	assert.Equal(t, "Chips", clusters[2].TopicName)
	assert.Equal(t, []int{2}, clusters[2].Members)
}

func TestClusterer_Assign_RedistributesMissing(t *testing.T) {
	// n=7, indices 2 and 5 are omitted by the model
	srv, _ := llmServer(t, func(openai.ChatCompletionRequest) (int, any) {
		return http.StatusOK, chatResponse(`{"clusters": [
			{"topic_name": "Robotics", "article_ids": [0, 1]},
			{"topic_name": "Regulation", "article_ids": [3, 4, 6]}
		]}`)
	})
	c := NewClusterer(NewClient(testConfig(srv)), testConfig(srv))

	clusters, outcome := c.Assign(context.Background(), makeArticles(7), 0)
	assert.False(t, outcome.IsDegraded())
	require.Len(t, clusters, 2, "no overflow cluster for a small remainder")
	assert.Equal(t, []int{1, 1, 1, 1, 1, 1, 1}, coverage(clusters, 7))

	total := 0
	for _, cl := range clusters {
		total += cl.ArticleCount()
		assert.Len(t, cl.Articles, cl.ArticleCount())
	}
	assert.Equal(t, 7, total)

	// 2 mod 2 goes to Robotics, 5 mod 2 to Regulation
	byTopic := map[string][]int{}
	for _, cl := range clusters {
		byTopic[cl.TopicName] = cl.Members
	}
	assert.Equal(t, []int{0, 1, 2}, byTopic["Robotics"])
	assert.Equal(t, []int{3, 4, 6, 5}, byTopic["Regulation"])
}

func TestClusterer_Assign_OverflowCluster(t *testing.T) {
	srv, _ := llmServer(t, func(openai.ChatCompletionRequest) (int, any) {
		return http.StatusOK, chatResponse(`{"clusters": [
			{"topic_name": "Robotics", "article_ids": [0, 1]},
			{"topic_name": "Regulation", "article_ids": [2]}
		]}`)
	})
	c := NewClusterer(NewClient(testConfig(srv)), testConfig(srv))

	clusters, outcome := c.Assign(context.Background(), makeArticles(8), 0)
	assert.False(t, outcome.IsDegraded())
	require.Len(t, clusters, 3)
	assert.Equal(t, overflowTopic, clusters[0].TopicName, "overflow is the largest cluster")
	assert.Equal(t, []int{3, 4, 5, 6, 7}, clusters[0].Members)
	assert.Equal(t, []int{0, 1}, clusters[1].Members)
	assert.Equal(t, []int{2}, clusters[2].Members)
	assert.Equal(t, []int{1, 1, 1, 1, 1, 1, 1, 1}, coverage(clusters, 8))
}

func TestClusterer_Assign_InvalidIndices(t *testing.T) {
	srv, _ := llmServer(t, func(openai.ChatCompletionRequest) (int, any) {
		// out-of-range, negative, non-integer, duplicated and a cluster left empty
		return http.StatusOK, chatResponse("here you go:\n" + `{"clusters": [
			{"topic_name": "Agents", "article_ids": [0, 1, 17, -1, "x", 1.5, null]},
			{"topic_name": "Chips", "article_ids": [1, 2, 3]},
			{"topic_name": 42, "article_ids": [4]},
			{"topic_name": "Ghosts", "article_ids": [99]},
			"garbage"
		]}` + "\nthanks")
	})
	c := NewClusterer(NewClient(testConfig(srv)), testConfig(srv))

	clusters, outcome := c.Assign(context.Background(), makeArticles(5), 0)
	assert.False(t, outcome.IsDegraded())
	require.Len(t, clusters, 3)
	assert.Equal(t, []int{1, 1, 1, 1, 1}, coverage(clusters, 5))

	assert.Equal(t, "Agents", clusters[0].TopicName)
	assert.Equal(t, []int{0, 1}, clusters[0].Members)
	assert.Equal(t, "Chips", clusters[1].TopicName)
	assert.Equal(t, []int{2, 3}, clusters[1].Members, "first claim wins")
	assert.Equal(t, defaultTopic, clusters[2].TopicName, "non-string topic replaced")
}

func TestClusterer_Assign_Failures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   any
		reason string
	}{
		{name: "server error", status: http.StatusInternalServerError,
			body: map[string]any{"error": map[string]any{"message": "boom", "type": "server_error"}}, reason: "clustering failed"},
		{name: "not json", status: http.StatusOK, body: chatResponse("I can't do that"), reason: "clustering response invalid"},
		{name: "no clusters", status: http.StatusOK, body: chatResponse(`{"clusters": []}`), reason: "no usable clusters"},
		{name: "no choices", status: http.StatusOK, body: openai.ChatCompletionResponse{}, reason: "no response from llm"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := llmServer(t, func(openai.ChatCompletionRequest) (int, any) { return tt.status, tt.body })
			cfg := testConfig(srv)
			c := NewClusterer(NewClient(cfg), cfg)

			clusters, outcome := c.Assign(context.Background(), makeArticles(6), 0)
			require.Len(t, clusters, 1)
			assert.Equal(t, FallbackTopic, clusters[0].TopicName)
			assert.Equal(t, 6, clusters[0].ArticleCount())
			assert.Len(t, clusters[0].Articles, 6)
			assert.True(t, outcome.IsDegraded())
			assert.Contains(t, outcome.Reason, tt.reason)
		})
	}
}

func TestClusterer_Assign_Empty(t *testing.T) {
	srv, calls := llmServer(t, func(openai.ChatCompletionRequest) (int, any) { return http.StatusOK, chatResponse("{}") })
	c := NewClusterer(NewClient(testConfig(srv)), testConfig(srv))

	clusters, outcome := c.Assign(context.Background(), nil, 0)
	assert.Empty(t, clusters)
	assert.False(t, outcome.IsDegraded())
	assert.Equal(t, int32(0), atomic.LoadInt32(calls))
}

func TestRepairCoverage(t *testing.T) {
	t.Run("nothing missing", func(t *testing.T) {
		in := []proposal{{topic: "a", members: []int{0, 1}}, {topic: "b", members: []int{2}}}
		res := repairCoverage(in, 3)
		assert.Equal(t, in, res)
		assert.NoError(t, checkCoverage(res, 3))
	})

	t.Run("exactly half redistributed", func(t *testing.T) {
		res := repairCoverage([]proposal{{topic: "a", members: []int{0}}, {topic: "b", members: []int{1}}}, 4)
		require.Len(t, res, 2)
		assert.Equal(t, []int{0, 2}, res[0].members)
		assert.Equal(t, []int{1, 3}, res[1].members)
		assert.NoError(t, checkCoverage(res, 4))
	})

	t.Run("check detects broken coverage", func(t *testing.T) {
		err := checkCoverage([]proposal{{members: []int{0, 0}}}, 2)
		require.Error(t, err)
		err = checkCoverage([]proposal{{members: []int{0}}}, 2)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "expected 2")
	})
}

func TestSummarizer_Summarize(t *testing.T) {
	articles := makeArticles(12)
	articles[11].SourceURL = "https://late.example.com/feed"

	srv, _ := llmServer(t, func(req openai.ChatCompletionRequest) (int, any) {
		assert.Equal(t, summarySystemPrompt, req.Messages[0].Content)
		assert.Equal(t, 500, req.MaxTokens)
		assert.InDelta(t, 0.7, req.Temperature, 0.001)
		assert.Nil(t, req.ResponseFormat)
		prompt := req.Messages[1].Content
		assert.Contains(t, prompt, `Summarize the following articles about "Agents"`)
		assert.Contains(t, prompt, "Title: Article 9")
		assert.NotContains(t, prompt, "Title: Article 10", "only first 10 articles in prompt")
		assert.Equal(t, 9, strings.Count(prompt, "\n\n---\n\n"))
		return http.StatusOK, chatResponse("**Overview**\nAgents everywhere.\n\n**Key Developments**\nNew frameworks shipped.")
	})
	cfg := testConfig(srv)
	s := NewSummarizer(NewClient(cfg), cfg)

	res := s.Summarize(context.Background(), domain.Cluster{TopicName: "Agents", Articles: articles})
	assert.False(t, res.Outcome.IsDegraded())
	assert.Equal(t, "Agents", res.TopicName)
	assert.Equal(t, 12, res.ArticleCount)
	assert.Contains(t, res.Summary, "Agents everywhere.")
	assert.Equal(t, map[string]string{"Overview": "Agents everywhere.", "Key Developments": "New frameworks shipped."}, res.Sections)
	// sources come from all members, not just the prompt subset
	assert.Equal(t, []string{"https://src0.example.com/feed", "https://src1.example.com/feed",
		"https://src2.example.com/feed", "https://late.example.com/feed"}, res.Sources)
}

func TestSummarizer_Summarize_Fallbacks(t *testing.T) {
	t.Run("model error", func(t *testing.T) {
		srv, _ := llmServer(t, func(openai.ChatCompletionRequest) (int, any) {
			return http.StatusInternalServerError, map[string]any{"error": map[string]any{"message": "boom"}}
		})
		cfg := testConfig(srv)
		res := NewSummarizer(NewClient(cfg), cfg).Summarize(context.Background(), domain.Cluster{TopicName: "Chips", Articles: makeArticles(3)})
		assert.True(t, res.Outcome.IsDegraded())
		assert.Equal(t, "Summary unavailable. This cluster contains 3 articles about Chips.", res.Summary)
		assert.Len(t, res.Sources, 3)
	})

	t.Run("content policy api error", func(t *testing.T) {
		srv, _ := llmServer(t, func(openai.ChatCompletionRequest) (int, any) {
			return http.StatusBadRequest, map[string]any{"error": map[string]any{
				"message": "The response was filtered", "type": "invalid_request_error", "code": "content_filter"}}
		})
		cfg := testConfig(srv)
		res := NewSummarizer(NewClient(cfg), cfg).Summarize(context.Background(), domain.Cluster{TopicName: "Chips", Articles: makeArticles(2)})
		assert.True(t, res.Outcome.IsDegraded())
		assert.Equal(t, "content policy", res.Outcome.Reason)
		assert.Equal(t, contentPolicySummary("Chips", 2), res.Summary)
	})

	t.Run("content filter finish reason", func(t *testing.T) {
		srv, _ := llmServer(t, func(openai.ChatCompletionRequest) (int, any) {
			resp := chatResponse("")
			resp.Choices[0].FinishReason = openai.FinishReasonContentFilter
			return http.StatusOK, resp
		})
		cfg := testConfig(srv)
		res := NewSummarizer(NewClient(cfg), cfg).Summarize(context.Background(), domain.Cluster{TopicName: "Chips", Articles: makeArticles(2)})
		assert.Equal(t, "content policy", res.Outcome.Reason)
	})

	t.Run("empty cluster", func(t *testing.T) {
		srv, calls := llmServer(t, func(openai.ChatCompletionRequest) (int, any) { return http.StatusOK, chatResponse("x") })
		cfg := testConfig(srv)
		res := NewSummarizer(NewClient(cfg), cfg).Summarize(context.Background(), domain.Cluster{TopicName: "Empty"})
		assert.True(t, res.Outcome.IsDegraded())
		assert.Empty(t, res.Sources)
		assert.Equal(t, int32(0), atomic.LoadInt32(calls))
	})
}

func TestParseSections(t *testing.T) {
	assert.Nil(t, ParseSections("plain text without headers"))
	res := ParseSections("intro\n**What**\nfirst\nline\n\n**Why:**\nsecond\n")
	assert.Equal(t, map[string]string{"What": "first\nline", "Why": "second"}, res)
}

func TestOverview_Generate(t *testing.T) {
	summaries := []domain.ClusterSummary{
		{TopicName: "Small", ArticleCount: 1, Summary: "s", Sources: []string{"a"}},
		{TopicName: "Big", ArticleCount: 9, Summary: "b", Sources: []string{"a", "b", "c", "d"}},
		{TopicName: "Mid", ArticleCount: 4, Summary: "m"},
	}

	t.Run("model text", func(t *testing.T) {
		srv, _ := llmServer(t, func(req openai.ChatCompletionRequest) (int, any) {
			assert.Equal(t, overviewSystemPrompt, req.Messages[0].Content)
			assert.Equal(t, 1500, req.MaxTokens)
			prompt := req.Messages[1].Content
			assert.Contains(t, prompt, "**Top 2 Trending Topics:**")
			assert.Contains(t, prompt, `"topic": "Big"`)
			assert.Contains(t, prompt, `"topic": "Mid"`)
			assert.NotContains(t, prompt, `"topic": "Small"`)
			assert.NotContains(t, prompt, `"d"`, "only 3 sources per topic")
			return http.StatusOK, chatResponse("**Overview**\nAll good.")
		})
		cfg := testConfig(srv)
		cfg.Summary.TopN = 2
		text, outcome := NewOverview(NewClient(cfg), cfg).Generate(context.Background(), summaries)
		assert.False(t, outcome.IsDegraded())
		assert.Equal(t, "**Overview**\nAll good.", text)
	})

	t.Run("fallback", func(t *testing.T) {
		srv, _ := llmServer(t, func(openai.ChatCompletionRequest) (int, any) {
			return http.StatusServiceUnavailable, map[string]any{"error": map[string]any{"message": "down"}}
		})
		cfg := testConfig(srv)
		text, outcome := NewOverview(NewClient(cfg), cfg).Generate(context.Background(), summaries)
		assert.True(t, outcome.IsDegraded())
		assert.True(t, strings.HasPrefix(text, "**Top 3 Trending AI Topics**\n\n"))
		assert.Contains(t, text, "1. **Big** (9 articles)\n   b...\n\n")
		assert.Contains(t, text, "3. **Small** (1 articles)")
	})

	t.Run("no clusters", func(t *testing.T) {
		text, outcome := NewOverview(nil, config.LLMConfig{}).Generate(context.Background(), nil)
		assert.Empty(t, text)
		assert.False(t, outcome.IsDegraded())
	})
}

func TestKeywordFilter(t *testing.T) {
	articles := []domain.Article{
		{Title: "New LLM released", Content: "benchmarks"},
		{Title: "Local bakery", Content: "she said the bread was great"},
		{Title: "Robots", Content: "Advances in Robotics at the lab"},
		{Title: "Sports", Content: "the game began late"},
		{Title: "Policy", Content: "EU debates AI act"},
	}
	res := KeywordFilter(articles)
	require.Len(t, res, 3)
	assert.Equal(t, "New LLM released", res[0].Title)
	assert.Equal(t, "Robots", res[1].Title)
	assert.Equal(t, "Policy", res[2].Title)
}

func TestRelevanceFilter_Filter(t *testing.T) {
	articles := make([]domain.Article, 5)
	for i := range articles {
		articles[i] = domain.Article{Title: fmt.Sprintf("AI story %d", i), Content: "machine learning"}
	}

	var call int32
	srv, _ := llmServer(t, func(req openai.ChatCompletionRequest) (int, any) {
		assert.Equal(t, filterSystemPrompt, req.Messages[0].Content)
		assert.InDelta(t, 0.1, req.Temperature, 0.001)
		switch atomic.AddInt32(&call, 1) {
		case 1: // chunk 0-1, id 7 is out of the chunk
			assert.Contains(t, req.Messages[1].Content, `"id": 1`)
			return http.StatusOK, chatResponse(`{"ai_relevant_ids": [1, 7]}`)
		case 2: // chunk 2-3 fails and is kept whole
			return http.StatusOK, chatResponse("not json")
		default: // chunk 4
			return http.StatusOK, chatResponse(`{"ai_relevant_ids": []}`)
		}
	})
	cfg := testConfig(srv)
	cfg.Filter.ChunkSize = 2
	f := NewRelevanceFilter(NewClient(cfg), cfg)

	res, outcome := f.Filter(context.Background(), articles)
	require.Len(t, res, 3)
	assert.Equal(t, "AI story 1", res[0].Title)
	assert.Equal(t, "AI story 2", res[1].Title)
	assert.Equal(t, "AI story 3", res[2].Title)
	assert.True(t, outcome.IsDegraded())
	assert.Contains(t, outcome.Reason, "3-4")
	assert.Equal(t, int32(3), atomic.LoadInt32(&call))
}

func TestRelevanceFilter_KeywordsOnlyEmpty(t *testing.T) {
	srv, calls := llmServer(t, func(openai.ChatCompletionRequest) (int, any) { return http.StatusOK, chatResponse("{}") })
	cfg := testConfig(srv)
	res, outcome := NewRelevanceFilter(NewClient(cfg), cfg).Filter(context.Background(),
		[]domain.Article{{Title: "Gardening tips", Content: "tomatoes"}})
	assert.Empty(t, res)
	assert.False(t, outcome.IsDegraded())
	assert.Equal(t, int32(0), atomic.LoadInt32(calls))
}

func TestNewClient_Azure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/openai/deployments/gpt-4o.mini/chat/completions", r.URL.Path)
		assert.Equal(t, "2024-06-01", r.URL.Query().Get("api-version"))
		assert.Equal(t, "azure-key", r.Header.Get("api-key"))
		_ = json.NewEncoder(w).Encode(chatResponse("ok"))
	}))
	defer srv.Close()

	client := NewClient(config.LLMConfig{APIType: "azure", Endpoint: srv.URL, APIKey: "azure-key", APIVersion: "2024-06-01"})
	text, err := complete(context.Background(), client, chatRequest{model: "gpt-4o.mini", system: "s", user: "u"})
	require.NoError(t, err)
	assert.Equal(t, "ok", text)
}

func TestExtractJSONAndTruncate(t *testing.T) {
	res, err := extractJSON("```json\n{\"a\": 1}\n```")
	require.NoError(t, err)
	assert.Equal(t, `{"a": 1}`, res)

	_, err = extractJSON("no json here")
	require.Error(t, err)
	_, err = extractJSON("{broken}")
	require.Error(t, err)

	assert.Equal(t, "héll", truncate("héllo", 4))
	assert.Equal(t, "abc", truncate("abc", 10))
	assert.Equal(t, "abc", truncate("abc", 0))
}
