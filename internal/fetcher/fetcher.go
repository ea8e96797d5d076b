package fetcher

import (
	"context"
)

// FeedFetcher retrieves a page of broadcasts from the upstream feed.
type FeedFetcher interface {
	FetchFeedPage(ctx context.Context, cursor string, first int) (FeedPage, error)
}

// TokenFetcher retrieves current token attributes by token id.
type TokenFetcher interface {
	FetchToken(ctx context.Context, tokenID string) (*TokenData, error)
}

// ProfileFetcher retrieves actor profile attributes by username.
type ProfileFetcher interface {
	FetchProfile(ctx context.Context, username string) (*ProfileData, error)
}
