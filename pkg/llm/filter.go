package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-pkgz/lgr"

	"github.com/umputun/trendmind/pkg/config"
	"github.com/umputun/trendmind/pkg/domain"
)

const filterSystemPrompt = "You are an expert at identifying AI-related content. " +
	"Be precise and only include articles that genuinely discuss AI technologies."

// phrases matched as substrings of lowercased title and content
var aiPhrases = []string{
	"artificial intelligence", "machine learning", "deep learning", "neural network", "chatgpt", "openai",
	"anthropic", "claude", "automation", "algorithm", "model", "training", "inference", "embedding",
	"computer vision", "natural language", "robotics", "autonomous", "generative", "transformer",
	"diffusion", "stable diffusion", "midjourney", "langchain", "hugging face", "tensorflow", "pytorch",
	"scikit-learn", "recommendation system", "predictive", "classification", "regression", "supervised",
	"unsupervised", "reinforcement learning",
}

// short terms need word boundaries, "ai" is inside "said" and "gan" inside "began"
var aiWords = regexp.MustCompile(`\b(ai|ml|llm|llms|gpt|nlp|gan|vae)\b`)

// KeywordFilter keeps articles mentioning any AI-related term in title or content
func KeywordFilter(articles []domain.Article) []domain.Article {
	res := make([]domain.Article, 0, len(articles))
	for _, a := range articles {
		if isAIKeyword(a.Title + " " + a.Content) {
			res = append(res, a)
		}
	}
	lgr.Printf("[DEBUG] keyword filter kept %d of %d articles", len(res), len(articles))
	return res
}

func isAIKeyword(text string) bool {
	text = strings.ToLower(text)
	for _, p := range aiPhrases {
		if strings.Contains(text, p) {
			return true
		}
	}
	return aiWords.MatchString(text)
}

// RelevanceFilter selects AI-relevant articles, keyword pre-filter first, then the model in chunks
type RelevanceFilter struct {
	client       ChatClient
	model        string
	chunkSize    int
	skipKeywords bool
	jsonMode     bool
}

// NewRelevanceFilter makes a relevance filter for the given chat client
func NewRelevanceFilter(client ChatClient, cfg config.LLMConfig) *RelevanceFilter {
	chunk := cfg.Filter.ChunkSize
	if chunk <= 0 {
		chunk = 20
	}
	return &RelevanceFilter{
		client:       client,
		model:        cfg.Model,
		chunkSize:    chunk,
		skipKeywords: cfg.Filter.SkipKeywords,
		jsonMode:     cfg.Clustering.UseJSONMode,
	}
}

// Filter returns relevant articles in input order. A chunk the model failed on is kept whole
// and makes the outcome degraded.
func (f *RelevanceFilter) Filter(ctx context.Context, articles []domain.Article) ([]domain.Article, domain.Outcome) {
	if !f.skipKeywords {
		articles = KeywordFilter(articles)
	}
	if len(articles) == 0 {
		return []domain.Article{}, domain.OK()
	}

	res := make([]domain.Article, 0, len(articles))
	var failed []string
	for start := 0; start < len(articles); start += f.chunkSize {
		end := min(start+f.chunkSize, len(articles))
		keep, err := f.filterChunk(ctx, articles, start, end)
		if err != nil {
			lgr.Printf("[WARN] relevance filter failed for articles %d-%d, keeping all: %v", start+1, end, err)
			failed = append(failed, fmt.Sprintf("%d-%d", start+1, end))
			res = append(res, articles[start:end]...)
			continue
		}
		for i := start; i < end; i++ {
			if keep[i] {
				res = append(res, articles[i])
			}
		}
	}
	lgr.Printf("[INFO] relevance filter kept %d of %d articles", len(res), len(articles))

	if len(failed) > 0 {
		return res, domain.Degraded("relevance filter failed for articles " + strings.Join(failed, ", "))
	}
	return res, domain.OK()
}

// filterChunk asks the model about articles[start:end], ids are global positions
func (f *RelevanceFilter) filterChunk(ctx context.Context, articles []domain.Article, start, end int) (map[int]bool, error) {
	type item struct {
		ID      int    `json:"id"`
		Title   string `json:"title"`
		Snippet string `json:"snippet"`
	}
	items := make([]item, 0, end-start)
	for i := start; i < end; i++ {
		items = append(items, item{ID: i, Title: articles[i].Title, Snippet: truncate(articles[i].Content, 300)})
	}
	data, _ := json.MarshalIndent(items, "", "  ") //nolint:errchkjson // plain structs always marshal

	var sb strings.Builder
	sb.WriteString("Review these articles and determine which ones are relevant to artificial intelligence, ")
	sb.WriteString("machine learning, automation, or related technologies.\n\nArticles:\n")
	sb.Write(data)
	sb.WriteString("\n\nReturn a JSON object with ONLY the IDs of articles that are AI-related:\n")
	sb.WriteString(`{"ai_relevant_ids": [0, 2, 5]}`)
	sb.WriteString("\n\nAI-related topics include:\n")
	sb.WriteString("- artificial intelligence, machine learning, deep learning\n")
	sb.WriteString("- AI applications, ethics, regulation, companies, research and tools\n")
	sb.WriteString("- automation and robotics, natural language processing, computer vision\n")
	sb.WriteString("\nExclude articles about general technology without AI focus, politics or economics ")
	sb.WriteString("unless directly about AI policy, entertainment unless about AI, sports, lifestyle and travel.\n")

	resp, err := complete(ctx, f.client, chatRequest{
		model:       f.model,
		system:      filterSystemPrompt,
		user:        sb.String(),
		temperature: 0.1,
		jsonMode:    f.jsonMode,
	})
	if err != nil {
		return nil, err
	}
	obj, err := extractJSON(resp)
	if err != nil {
		return nil, err
	}
	var parsed struct {
		IDs []json.RawMessage `json:"ai_relevant_ids"`
	}
	if err := json.Unmarshal([]byte(obj), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse json: %w", err)
	}

	keep := make(map[int]bool, len(parsed.IDs))
	for _, raw := range parsed.IDs {
		idx, ok := rawIndex(raw)
		if !ok || idx < start || idx >= end {
			lgr.Printf("[DEBUG] ignore relevance id %s outside chunk %d-%d", string(raw), start, end-1)
			continue
		}
		keep[idx] = true
	}
	return keep, nil
}
