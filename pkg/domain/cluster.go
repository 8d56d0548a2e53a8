package domain

// Cluster is a transient topic grouping of a batch of articles.
// Members holds positions in the input batch; Articles is materialized from Members.
type Cluster struct {
	TopicName   string    `json:"topic_name"`
	Description string    `json:"description,omitempty"`
	Members     []int     `json:"member_indices"`
	Articles    []Article `json:"articles"`
}

// ArticleCount returns number of articles in the cluster
func (c Cluster) ArticleCount() int {
	return len(c.Members)
}

// ClusterSummary is the externally visible result of summarizing a cluster
type ClusterSummary struct {
	TopicName    string            `json:"topic_name"`
	ArticleCount int               `json:"article_count"`
	Summary      string            `json:"summary"`
	Sections     map[string]string `json:"sections,omitempty"`
	Sources      []string          `json:"sources"`
	Outcome      Outcome           `json:"outcome"`
}

// OutcomeStatus tells whether a model-backed result is complete or a fallback
type OutcomeStatus string

// enum of outcome statuses
const (
	OutcomeOK       OutcomeStatus = "ok"
	OutcomeDegraded OutcomeStatus = "degraded"
)

// Outcome describes how a model-backed result was produced.
// Degraded results are still usable, Reason explains what went wrong.
type Outcome struct {
	Status OutcomeStatus `json:"status"`
	Reason string        `json:"reason,omitempty"`
}

// OK returns a successful outcome
func OK() Outcome { return Outcome{Status: OutcomeOK} }

// Degraded returns a fallback outcome with the given reason
func Degraded(reason string) Outcome { return Outcome{Status: OutcomeDegraded, Reason: reason} }

// IsDegraded reports whether the result is a fallback
func (o Outcome) IsDegraded() bool { return o.Status == OutcomeDegraded }

// Analysis is the full result of clustering and summarizing a set of articles
type Analysis struct {
	ArticleCount int              `json:"article_count"`
	Filtered     int              `json:"filtered_out"`
	Clusters     []ClusterSummary `json:"clusters"`
	Overview     string           `json:"overview"`
	Outcome      Outcome          `json:"outcome"`
}
