package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/go-pkgz/lgr"

	"github.com/umputun/trendmind/pkg/config"
	"github.com/umputun/trendmind/pkg/domain"
)

// fallback cluster used when the model can't produce a partition
const (
	FallbackTopic       = "AI News & Trends"
	fallbackDescription = "General AI news and developments"
	overflowTopic       = "Other Topics"
	overflowDescription = "Articles not assigned to any topic"
	defaultTopic        = "Unnamed Topic"
)

const clusterSystemPrompt = "You are an expert at identifying topics and clustering related content."

// Clusterer partitions a batch of articles into topic clusters with the help of a model
type Clusterer struct {
	client      ChatClient
	model       string
	temperature float64
	minClusters int
	maxClusters int
	excerpt     int
	jsonMode    bool
}

// NewClusterer makes a clusterer for the given chat client
func NewClusterer(client ChatClient, cfg config.LLMConfig) *Clusterer {
	return &Clusterer{
		client:      client,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		minClusters: cfg.Clustering.MinClusters,
		maxClusters: cfg.Clustering.MaxClusters,
		excerpt:     cfg.Clustering.ExcerptLength,
		jsonMode:    cfg.Clustering.UseJSONMode,
	}
}

// proposal is a validated cluster proposed by the model
type proposal struct {
	topic       string
	description string
	members     []int
}

// Assign partitions articles into clusters. Every input index ends up in exactly one cluster.
// maxClusters bounds the number of clusters requested from the model, 0 uses the configured value.
// Model failures never fail the call, they produce a single catch-all cluster with a degraded outcome.
func (c *Clusterer) Assign(ctx context.Context, articles []domain.Article, maxClusters int) ([]domain.Cluster, domain.Outcome) {
	if len(articles) == 0 {
		return []domain.Cluster{}, domain.OK()
	}
	if maxClusters <= 0 {
		maxClusters = c.maxClusters
	}
	minClusters := min(max(c.minClusters, 1), maxClusters)

	resp, err := complete(ctx, c.client, chatRequest{
		model:       c.model,
		system:      clusterSystemPrompt,
		user:        c.buildPrompt(articles, minClusters, maxClusters),
		temperature: c.temperature,
		jsonMode:    c.jsonMode,
	})
	if err != nil {
		lgr.Printf("[WARN] clustering of %d articles failed, using single cluster: %v", len(articles), err)
		return fallbackClusters(articles), domain.Degraded(fmt.Sprintf("clustering failed: %v", err))
	}

	proposals, err := parseProposals(resp, len(articles))
	if err != nil {
		lgr.Printf("[WARN] can't parse clustering response, using single cluster: %v", err)
		return fallbackClusters(articles), domain.Degraded(fmt.Sprintf("clustering response invalid: %v", err))
	}
	if len(proposals) == 0 {
		lgr.Printf("[WARN] model proposed no usable clusters for %d articles", len(articles))
		return fallbackClusters(articles), domain.Degraded("model proposed no usable clusters")
	}

	proposals = repairCoverage(proposals, len(articles))
	if err := checkCoverage(proposals, len(articles)); err != nil {
		lgr.Printf("[ERROR] cluster coverage invariant broken after repair: %v", err)
	}

	// most populous topic first, ties keep model order
	sort.SliceStable(proposals, func(i, j int) bool { return len(proposals[i].members) > len(proposals[j].members) })

	res := make([]domain.Cluster, 0, len(proposals))
	for _, p := range proposals {
		res = append(res, materialize(p, articles))
	}
	lgr.Printf("[INFO] clustered %d articles into %d topics", len(articles), len(res))
	return res, domain.OK()
}

func (c *Clusterer) buildPrompt(articles []domain.Article, minClusters, maxClusters int) string {
	type summary struct {
		ID      int    `json:"id"`
		Title   string `json:"title"`
		Source  string `json:"source"`
		Snippet string `json:"snippet"`
	}
	items := make([]summary, len(articles))
	for i, a := range articles {
		title := a.Title
		if title == "" {
			title = "No Title"
		}
		items[i] = summary{ID: i, Title: title, Source: a.SourceURL, Snippet: truncate(a.Content, c.excerpt)}
	}
	data, _ := json.MarshalIndent(items, "", "  ") //nolint:errchkjson // plain structs always marshal

	var sb strings.Builder
	fmt.Fprintf(&sb, "Group these %d articles into %d-%d coherent topic clusters.\n\n", len(articles), minClusters, maxClusters)
	sb.WriteString("Articles:\n")
	sb.Write(data)
	sb.WriteString("\n\nReturn a JSON object with this exact structure:\n")
	sb.WriteString(`{"clusters": [{"topic_name": "Short Topic Name", "description": "One sentence description", "article_ids": [0, 3, 5]}]}`)
	sb.WriteString("\n\nRules:\n")
	sb.WriteString("- each article id must belong to exactly one cluster\n")
	sb.WriteString("- topic names must be 2-5 words\n")
	fmt.Fprintf(&sb, "- use only article ids from 0 to %d\n", len(articles)-1)
	return sb.String()
}

// parseProposals validates the untrusted model response.
// non-integer and out-of-range ids are discarded, an id claimed by an earlier cluster stays there.
func parseProposals(resp string, n int) ([]proposal, error) {
	obj, err := extractJSON(resp)
	if err != nil {
		return nil, err
	}

	var raw struct {
		Clusters []json.RawMessage `json:"clusters"`
	}
	if err := json.Unmarshal([]byte(obj), &raw); err != nil {
		return nil, fmt.Errorf("failed to parse json: %w", err)
	}

	claimed := make(map[int]bool, n)
	res := make([]proposal, 0, len(raw.Clusters))
	for ci, rc := range raw.Clusters {
		var cl struct {
			TopicName   json.RawMessage   `json:"topic_name"`
			Description json.RawMessage   `json:"description"`
			ArticleIDs  []json.RawMessage `json:"article_ids"`
		}
		if err := json.Unmarshal(rc, &cl); err != nil {
			lgr.Printf("[WARN] discard malformed cluster #%d: %v", ci, err)
			continue
		}
		p := proposal{topic: rawString(cl.TopicName), description: rawString(cl.Description)}
		if p.topic == "" {
			p.topic = defaultTopic
		}
		for _, rid := range cl.ArticleIDs {
			idx, ok := rawIndex(rid)
			switch {
			case !ok:
				lgr.Printf("[WARN] discard non-integer article id %s in cluster %q", string(rid), p.topic)
				continue
			case idx < 0 || idx >= n:
				lgr.Printf("[WARN] discard out-of-range article id %d in cluster %q", idx, p.topic)
				continue
			case claimed[idx]:
				lgr.Printf("[DEBUG] article id %d already assigned, skip in cluster %q", idx, p.topic)
				continue
			}
			claimed[idx] = true
			p.members = append(p.members, idx)
		}
		if len(p.members) == 0 {
			lgr.Printf("[DEBUG] drop empty cluster %q", p.topic)
			continue
		}
		res = append(res, p)
	}
	return res, nil
}

// rawString returns string value of a raw json field, empty for other types
func rawString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return strings.TrimSpace(s)
}

// rawIndex accepts json integers and strings holding an integer
func rawIndex(raw json.RawMessage) (int, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, false
		}
		raw = []byte(strings.TrimSpace(s))
	}
	v, err := strconv.Atoi(string(raw))
	if err != nil {
		return 0, false
	}
	return v, true
}

// repairCoverage assigns indices no cluster claimed. A small remainder is spread over existing
// clusters by index mod cluster count, more than half of the input goes into a separate overflow cluster.
func repairCoverage(proposals []proposal, n int) []proposal {
	claimed := make([]bool, n)
	for _, p := range proposals {
		for _, idx := range p.members {
			claimed[idx] = true
		}
	}
	var missing []int
	for i, ok := range claimed {
		if !ok {
			missing = append(missing, i)
		}
	}
	if len(missing) == 0 {
		return proposals
	}

	if len(missing)*2 > n {
		lgr.Printf("[WARN] %d of %d articles unassigned, adding %q cluster", len(missing), n, overflowTopic)
		return append(proposals, proposal{topic: overflowTopic, description: overflowDescription, members: missing})
	}

	lgr.Printf("[INFO] redistributing %d unassigned articles over %d clusters", len(missing), len(proposals))
	for _, idx := range missing {
		target := idx % len(proposals)
		proposals[target].members = append(proposals[target].members, idx)
	}
	return proposals
}

// checkCoverage verifies every index 0..n-1 appears exactly once
func checkCoverage(proposals []proposal, n int) error {
	seen := make([]int, n)
	total := 0
	for _, p := range proposals {
		for _, idx := range p.members {
			if idx < 0 || idx >= n {
				return fmt.Errorf("index %d out of range", idx)
			}
			seen[idx]++
			total++
		}
	}
	if total != n {
		return fmt.Errorf("cluster sizes sum to %d, expected %d", total, n)
	}
	if i := slices.IndexFunc(seen, func(v int) bool { return v != 1 }); i >= 0 {
		return fmt.Errorf("article %d assigned %d times", i, seen[i])
	}
	return nil
}

func materialize(p proposal, articles []domain.Article) domain.Cluster {
	res := domain.Cluster{
		TopicName:   p.topic,
		Description: p.description,
		Members:     p.members,
		Articles:    make([]domain.Article, 0, len(p.members)),
	}
	for _, idx := range p.members {
		res.Articles = append(res.Articles, articles[idx])
	}
	return res
}

func fallbackClusters(articles []domain.Article) []domain.Cluster {
	members := make([]int, len(articles))
	for i := range members {
		members[i] = i
	}
	return []domain.Cluster{materialize(proposal{topic: FallbackTopic, description: fallbackDescription, members: members}, articles)}
}
