package fetcher

import (
	"context"
)

const tokenQuery = `
query tokenScreenQuery($id: ID!) {
    token(id: $id) {
        name
        symbol
        price
        supply
        chain
        liquidity
        verified
        jupVerified
        freezable
        twitter
        telegram
        website
        discord
        volume24h
        volume6h
        volume1h
        volume5min
        buyVolume24h
        sellVolume24h
        buyVolume6h
        sellVolume6h
        buyVolume1h
        sellVolume1h
        buyVolume5min
        sellVolume5min
        buyCount24h
        sellCount24h
        buyCount6h
        sellCount6h
        buyCount1h
        sellCount1h
        buyCount5min
        sellCount5min
        top10HolderPercent
        top10HolderPercentV2
    }
}`

// TokenData carries the current screen attributes of a token. Monetary
// fields arrive as strings, trade counts as integers.
type TokenData struct {
	Name                 string `json:"name"`
	Symbol               string `json:"symbol"`
	Price                string `json:"price"`
	Supply               string `json:"supply"`
	Chain                string `json:"chain"`
	Liquidity            string `json:"liquidity"`
	Verified             bool   `json:"verified"`
	JupVerified          bool   `json:"jupVerified"`
	Freezable            bool   `json:"freezable"`
	Twitter              string `json:"twitter"`
	Telegram             string `json:"telegram"`
	Website              string `json:"website"`
	Discord              string `json:"discord"`
	Volume24H            string `json:"volume24h"`
	Volume6H             string `json:"volume6h"`
	Volume1H             string `json:"volume1h"`
	Volume5Min           string `json:"volume5min"`
	BuyVolume24H         string `json:"buyVolume24h"`
	SellVolume24H        string `json:"sellVolume24h"`
	BuyVolume6H          string `json:"buyVolume6h"`
	SellVolume6H         string `json:"sellVolume6h"`
	BuyVolume1H          string `json:"buyVolume1h"`
	SellVolume1H         string `json:"sellVolume1h"`
	BuyVolume5Min        string `json:"buyVolume5min"`
	SellVolume5Min       string `json:"sellVolume5min"`
	BuyCount24H          int    `json:"buyCount24h"`
	SellCount24H         int    `json:"sellCount24h"`
	BuyCount6H           int    `json:"buyCount6h"`
	SellCount6H          int    `json:"sellCount6h"`
	BuyCount1H           int    `json:"buyCount1h"`
	SellCount1H          int    `json:"sellCount1h"`
	BuyCount5Min         int    `json:"buyCount5min"`
	SellCount5Min        int    `json:"sellCount5min"`
	Top10HolderPercent   string `json:"top10HolderPercent"`
	Top10HolderPercentV2 string `json:"top10HolderPercentV2"`
}

type tokenResponse struct {
	Token *TokenData `json:"token"`
}

// FetchToken retrieves current token attributes. A missing token resolves to
// nil without error.
func (c *Client) FetchToken(ctx context.Context, tokenID string) (*TokenData, error) {
	if tokenID == "" {
		return nil, nil
	}

	var res tokenResponse
	if err := c.Do(ctx, tokenQuery, map[string]any{"id": tokenID}, &res); err != nil {
		return nil, err
	}
	return res.Token, nil
}
