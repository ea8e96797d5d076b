package fetcher

import (
	"context"
	"time"
)

const feedQuery = `
query FeedListsQuery($mode: FeedMode!, $sortOrder: FeedSortOrder!, $filters: FeedFilters, $after: String, $first: Int) {
    feedV3(mode: $mode, sortOrder: $sortOrder, filters: $filters, after: $after, first: $first) {
        edges {
            cursor
            node {
                broadcast {
                    id
                    buyTokenId
                    buyTokenAmount
                    buyTokenPrice: buyTokenPriceV2
                    buyTokenMCap: buyTokenMCapV2
                    sellTokenId
                    sellTokenAmount
                    sellTokenPrice: sellTokenPriceV2
                    sellTokenMCap: sellTokenMCapV2
                    createdAt
                    profile {
                        id
                        username
                    }
                }
            }
        }
        pageInfo {
            endCursor
            hasNextPage
        }
    }
}`

// BroadcastProfile identifies the actor that emitted a broadcast.
type BroadcastProfile struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// Broadcast is one raw trade-signal as emitted by the feed. Amount, price,
// and mcap fields arrive as strings; the sell side may be absent.
type Broadcast struct {
	ID              string           `json:"id"`
	BuyTokenID      string           `json:"buyTokenId"`
	BuyTokenAmount  string           `json:"buyTokenAmount"`
	BuyTokenPrice   string           `json:"buyTokenPrice"`
	BuyTokenMCap    string           `json:"buyTokenMCap"`
	SellTokenID     string           `json:"sellTokenId"`
	SellTokenAmount string           `json:"sellTokenAmount"`
	SellTokenPrice  string           `json:"sellTokenPrice"`
	SellTokenMCap   string           `json:"sellTokenMCap"`
	CreatedAt       time.Time        `json:"createdAt"`
	Profile         BroadcastProfile `json:"profile"`
}

// FeedPage is one fetched window of the feed.
type FeedPage struct {
	Broadcasts  []Broadcast
	EndCursor   string
	HasNextPage bool
}

type feedResponse struct {
	FeedV3 struct {
		Edges []struct {
			Cursor string `json:"cursor"`
			Node   struct {
				Broadcast *Broadcast `json:"broadcast"`
			} `json:"node"`
		} `json:"edges"`
		PageInfo struct {
			EndCursor   string `json:"endCursor"`
			HasNextPage bool   `json:"hasNextPage"`
		} `json:"pageInfo"`
	} `json:"feedV3"`
}

// FetchFeedPage retrieves one window of newest buy-side broadcasts. An empty
// cursor requests the first window; repeated polls without cursor advancement
// are expected and deduplicated downstream.
func (c *Client) FetchFeedPage(ctx context.Context, cursor string, first int) (FeedPage, error) {
	if first <= 0 {
		first = 10
	}

	var after any
	if cursor != "" {
		after = cursor
	}

	variables := map[string]any{
		"mode":      "ForYou",
		"sortOrder": "Newest",
		"after":     after,
		"filters": map[string]any{
			"bcastMCap":  nil,
			"direction":  "Buy",
			"lookbackMs": nil,
			"tradeSize":  nil,
		},
		"first": first,
	}

	var res feedResponse
	if err := c.Do(ctx, feedQuery, variables, &res); err != nil {
		return FeedPage{}, err
	}

	page := FeedPage{
		EndCursor:   res.FeedV3.PageInfo.EndCursor,
		HasNextPage: res.FeedV3.PageInfo.HasNextPage,
	}
	for _, edge := range res.FeedV3.Edges {
		if edge.Node.Broadcast == nil {
			continue
		}
		page.Broadcasts = append(page.Broadcasts, *edge.Node.Broadcast)
	}
	return page, nil
}
