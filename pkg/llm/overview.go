package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/go-pkgz/lgr"

	"github.com/umputun/trendmind/pkg/config"
	"github.com/umputun/trendmind/pkg/domain"
)

const overviewSystemPrompt = "You are an expert at synthesizing AI news trends into clear, compelling narratives."

// Overview synthesizes cluster summaries into a single narrative
type Overview struct {
	client      ChatClient
	model       string
	temperature float64
	topN        int
}

// NewOverview makes an overview generator for the given chat client
func NewOverview(client ChatClient, cfg config.LLMConfig) *Overview {
	return &Overview{client: client, model: cfg.Model, temperature: cfg.Summary.Temperature, topN: cfg.Summary.TopN}
}

// Generate builds an overview of the top clusters by article count.
// On model failure the result is a templated list of topics.
func (o *Overview) Generate(ctx context.Context, summaries []domain.ClusterSummary) (string, domain.Outcome) {
	if len(summaries) == 0 {
		return "", domain.OK()
	}
	top := topClusters(summaries, o.topN)

	type topicInfo struct {
		Rank     int      `json:"rank"`
		Topic    string   `json:"topic"`
		Articles int      `json:"articles"`
		Summary  string   `json:"summary"`
		Sources  []string `json:"sources"`
	}
	info := make([]topicInfo, len(top))
	for i, s := range top {
		info[i] = topicInfo{Rank: i + 1, Topic: s.TopicName, Articles: s.ArticleCount, Summary: s.Summary, Sources: firstN(s.Sources, 3)}
	}
	data, _ := json.MarshalIndent(info, "", "  ") //nolint:errchkjson // plain structs always marshal

	var sb strings.Builder
	fmt.Fprintf(&sb, "Create an overview of the top %d trending AI topics based on these clusters:\n\n", len(top))
	sb.Write(data)
	sb.WriteString("\n\nFormat the response as:\n**Overview**\nA short paragraph on the overall trend.\n\n")
	fmt.Fprintf(&sb, "**Top %d Trending Topics:**\nA numbered list with one or two sentences per topic.\n", len(top))

	text, err := complete(ctx, o.client, chatRequest{
		model:       o.model,
		system:      overviewSystemPrompt,
		user:        sb.String(),
		temperature: o.temperature,
		maxTokens:   1500,
	})
	if err == nil && text != "" {
		return text, domain.OK()
	}
	if err == nil {
		err = fmt.Errorf("empty overview")
	}
	lgr.Printf("[WARN] can't generate overview, using template: %v", err)
	return fallbackOverview(top), domain.Degraded(fmt.Sprintf("overview failed: %v", err))
}

// topClusters returns up to n summaries with the most articles, stable for ties
func topClusters(summaries []domain.ClusterSummary, n int) []domain.ClusterSummary {
	res := make([]domain.ClusterSummary, len(summaries))
	copy(res, summaries)
	sort.SliceStable(res, func(i, j int) bool { return res[i].ArticleCount > res[j].ArticleCount })
	if n > 0 && len(res) > n {
		res = res[:n]
	}
	return res
}

func fallbackOverview(top []domain.ClusterSummary) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "**Top %d Trending AI Topics**\n\n", len(top))
	for i, s := range top {
		fmt.Fprintf(&sb, "%d. **%s** (%d articles)\n   %s...\n\n", i+1, s.TopicName, s.ArticleCount, truncate(s.Summary, 200))
	}
	return sb.String()
}

func firstN(s []string, n int) []string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
