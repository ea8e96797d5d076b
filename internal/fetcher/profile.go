package fetcher

import (
	"context"
)

const profileQuery = `
query UsernameProfileQuery($username: String!, $yourProfileId: String!) {
    profile(username: $username) {
        twitterUsername
        visibility
        isVerified
        followerCount
        followeeCount
        mutualFollowersV2 {
            totalCount
        }
        weeklyLeaderboardStanding(leaderboardType: PNL_WIN) {
            rank
            value
        }
        bestEverStanding(leaderboardType: PNL_WIN) {
            rank
            value
        }
        subscriberCountV2
        subscribedByProfileV2(profileId: $yourProfileId)
        followedByProfile(profileId: $yourProfileId)
    }
}`

// LeaderboardStanding is a rank/value pair on a leaderboard.
type LeaderboardStanding struct {
	Rank  int     `json:"rank"`
	Value float64 `json:"value"`
}

// ProfileData carries actor profile attributes.
type ProfileData struct {
	TwitterUsername   string `json:"twitterUsername"`
	Visibility        string `json:"visibility"`
	IsVerified        bool   `json:"isVerified"`
	FollowerCount     int    `json:"followerCount"`
	FolloweeCount     int    `json:"followeeCount"`
	MutualFollowersV2 *struct {
		TotalCount int `json:"totalCount"`
	} `json:"mutualFollowersV2"`
	WeeklyLeaderboardStanding *LeaderboardStanding `json:"weeklyLeaderboardStanding"`
	BestEverStanding          *LeaderboardStanding `json:"bestEverStanding"`
	SubscriberCountV2         int                  `json:"subscriberCountV2"`
	SubscribedByProfileV2     bool                 `json:"subscribedByProfileV2"`
	FollowedByProfile         bool                 `json:"followedByProfile"`
}

type profileResponse struct {
	Profile *ProfileData `json:"profile"`
}

// FetchProfile retrieves actor attributes by username. A missing profile
// resolves to nil without error.
func (c *Client) FetchProfile(ctx context.Context, username string) (*ProfileData, error) {
	if username == "" {
		return nil, nil
	}

	variables := map[string]any{
		"username":      username,
		"yourProfileId": c.opts.ProfileID,
	}

	var res profileResponse
	if err := c.Do(ctx, profileQuery, variables, &res); err != nil {
		return nil, err
	}
	return res.Profile, nil
}
