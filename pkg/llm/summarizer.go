package llm

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-pkgz/lgr"

	"github.com/umputun/trendmind/pkg/config"
	"github.com/umputun/trendmind/pkg/domain"
)

const summarySystemPrompt = "You are an expert AI news analyst who creates insightful, balanced summaries."

// Summarizer produces a short synthesis for a cluster of articles
type Summarizer struct {
	client      ChatClient
	model       string
	temperature float64
	maxTokens   int
	maxArticles int
	excerpt     int
}

// NewSummarizer makes a summarizer for the given chat client
func NewSummarizer(client ChatClient, cfg config.LLMConfig) *Summarizer {
	return &Summarizer{
		client:      client,
		model:       cfg.Model,
		temperature: cfg.Summary.Temperature,
		maxTokens:   cfg.Summary.MaxTokens,
		maxArticles: cfg.Summary.MaxArticles,
		excerpt:     cfg.Summary.ExcerptLength,
	}
}

// Summarize returns a summary for the cluster. It never fails, on model errors
// the summary is a templated text and the outcome is degraded.
func (s *Summarizer) Summarize(ctx context.Context, cluster domain.Cluster) domain.ClusterSummary {
	res := domain.ClusterSummary{
		TopicName:    cluster.TopicName,
		ArticleCount: len(cluster.Articles),
		Sources:      distinctSources(cluster.Articles),
		Outcome:      domain.OK(),
	}
	if len(cluster.Articles) == 0 {
		res.Summary = fallbackSummary(cluster.TopicName, 0)
		res.Outcome = domain.Degraded("empty cluster")
		return res
	}

	text, err := complete(ctx, s.client, chatRequest{
		model:       s.model,
		system:      summarySystemPrompt,
		user:        s.buildPrompt(cluster),
		temperature: s.temperature,
		maxTokens:   s.maxTokens,
	})
	switch {
	case errors.Is(err, ErrContentPolicy):
		lgr.Printf("[WARN] summary for %q rejected by content policy", cluster.TopicName)
		res.Summary = contentPolicySummary(cluster.TopicName, res.ArticleCount)
		res.Outcome = domain.Degraded("content policy")
		return res
	case err != nil:
		lgr.Printf("[WARN] can't summarize %q: %v", cluster.TopicName, err)
		res.Summary = fallbackSummary(cluster.TopicName, res.ArticleCount)
		res.Outcome = domain.Degraded(fmt.Sprintf("summarization failed: %v", err))
		return res
	case text == "":
		res.Summary = fallbackSummary(cluster.TopicName, res.ArticleCount)
		res.Outcome = domain.Degraded("empty summary")
		return res
	}

	res.Summary = text
	res.Sections = ParseSections(text)
	return res
}

func (s *Summarizer) buildPrompt(cluster domain.Cluster) string {
	articles := cluster.Articles
	if s.maxArticles > 0 && len(articles) > s.maxArticles {
		articles = articles[:s.maxArticles]
	}
	parts := make([]string, 0, len(articles))
	for _, a := range articles {
		parts = append(parts, fmt.Sprintf("Source: %s\nTitle: %s\nContent: %s", a.SourceURL, a.Title, truncate(a.Content, s.excerpt)))
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Summarize the following articles about %q.\n\n", cluster.TopicName)
	sb.WriteString(strings.Join(parts, "\n\n---\n\n"))
	sb.WriteString("\n\nWrite a concise 3-paragraph summary that:\n")
	sb.WriteString("1. Explains what this topic is about\n")
	sb.WriteString("2. Highlights the key developments and why they matter\n")
	sb.WriteString("3. Notes any contradictions or different perspectives between sources\n")
	return sb.String()
}

// sectionHeader matches markdown bold headers on their own line, like **Overview**
var sectionHeader = regexp.MustCompile(`(?m)^[ \t]*\*\*([^*\n]+?)\*\*:?[ \t]*$`)

// ParseSections splits text by **Header** lines. Returns nil if there are no headers.
func ParseSections(text string) map[string]string {
	locs := sectionHeader.FindAllStringSubmatchIndex(text, -1)
	if len(locs) == 0 {
		return nil
	}
	res := make(map[string]string, len(locs))
	for i, loc := range locs {
		name := strings.TrimSuffix(strings.TrimSpace(text[loc[2]:loc[3]]), ":")
		end := len(text)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		res[name] = strings.TrimSpace(text[loc[1]:end])
	}
	return res
}

func distinctSources(articles []domain.Article) []string {
	seen := make(map[string]bool, len(articles))
	res := []string{}
	for _, a := range articles {
		src := strings.TrimSpace(a.SourceURL)
		if src == "" || seen[src] {
			continue
		}
		seen[src] = true
		res = append(res, src)
	}
	return res
}

func fallbackSummary(topic string, count int) string {
	return fmt.Sprintf("Summary unavailable. This cluster contains %d articles about %s.", count, topic)
}

func contentPolicySummary(topic string, count int) string {
	return fmt.Sprintf("Summary withheld: the model declined to summarize this cluster by content policy. "+
		"It contains %d articles about %s.", count, topic)
}
