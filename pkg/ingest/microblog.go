package ingest

import (
	"context"
	"fmt"

	"github.com/umputun/trendmind/pkg/domain"
	"github.com/umputun/trendmind/pkg/microblog"
)

// PostSearcher returns recent posts of a handle
type PostSearcher interface {
	RecentPosts(ctx context.Context, handle string) ([]microblog.Post, error)
}

// MicroblogProvider handles microblog handles. Source url is the canonical profile url,
// post text is stored with urls removed.
type MicroblogProvider struct {
	searcher PostSearcher
}

// NewMicroblogProvider makes a microblog provider
func NewMicroblogProvider(searcher PostSearcher) *MicroblogProvider {
	return &MicroblogProvider{searcher: searcher}
}

// Kind returns microblog source type
func (p *MicroblogProvider) Kind() domain.SourceType { return domain.SourceMicroblog }

// Normalize strips handle prefixes and returns the profile url
func (p *MicroblogProvider) Normalize(identifier string) (string, error) {
	handle := microblog.NormalizeHandle(identifier)
	if handle == "" {
		return "", fmt.Errorf("%w: empty handle in %q", ErrUnsupportedSource, identifier)
	}
	return microblog.SourceURL(handle), nil
}

// Entries fetches recent posts of the handle
func (p *MicroblogProvider) Entries(ctx context.Context, sourceURL string) ([]Entry, error) {
	handle := microblog.NormalizeHandle(sourceURL)
	posts, err := p.searcher.RecentPosts(ctx, handle)
	if err != nil {
		return nil, err
	}
	res := make([]Entry, 0, len(posts))
	for _, post := range posts {
		res = append(res, Entry{
			ID:        post.ID,
			Link:      microblog.PostURL(handle, post.ID),
			Content:   post.Text,
			Published: post.CreatedAt,
		})
	}
	return res, nil
}

// Materialize cleans post text, no extra fetch is needed
func (p *MicroblogProvider) Materialize(_ context.Context, sourceURL string, e Entry) (domain.Article, error) {
	text := microblog.CleanText(e.Content)
	if text == "" {
		return domain.Article{}, fmt.Errorf("post %s has no text besides links", e.ID)
	}
	return domain.Article{
		SourceType: domain.SourceMicroblog,
		SourceURL:  sourceURL,
		Content:    text,
		Link:       e.Link,
		Published:  e.Published,
	}, nil
}
