package storage

import (
	"time"

	"github.com/shopspring/decimal"
)

// Offset names one of the fixed delays after which a broadcast's price is
// re-checked.
type Offset string

// Verification offsets, measured from acceptance time.
const (
	Offset30s Offset = "30s"
	Offset1m  Offset = "1m"
	Offset5m  Offset = "5m"
)

// AllOffsets lists the offsets in firing order.
var AllOffsets = []Offset{Offset30s, Offset1m, Offset5m}

// Delay returns the wall-clock delay for the offset.
func (o Offset) Delay() time.Duration {
	switch o {
	case Offset30s:
		return 30 * time.Second
	case Offset1m:
		return time.Minute
	case Offset5m:
		return 5 * time.Minute
	}
	return 0
}

// Outcome is one offset's verification result. Nil until the offset's task
// has fired; once set it is never overwritten.
type Outcome struct {
	VariancePct *decimal.Decimal
	Won         *bool
}

// Set reports whether the outcome has been recorded.
func (o Outcome) Set() bool {
	return o.VariancePct != nil && o.Won != nil
}

// BroadcastRecord is one enriched, persisted broadcast. Core fields are
// immutable after insert; only the per-offset outcomes mutate, once each.
type BroadcastRecord struct {
	BroadcastID string
	CreatedAt   time.Time

	UserID   string
	Username string

	BuyTokenID         string
	BuyTokenAmount     decimal.Decimal
	BuyTokenPriceBcast decimal.Decimal
	BuyTokenMCapBcast  decimal.Decimal
	HasBuyToken        bool

	SellTokenID         string
	SellTokenAmount     decimal.Decimal
	SellTokenPriceBcast decimal.Decimal
	SellTokenMCapBcast  decimal.Decimal
	HasSellToken        bool

	// Subject-token attributes captured at enrichment time.
	TokenName          string
	TokenSymbol        string
	TokenPrice         decimal.Decimal
	TokenSupply        decimal.Decimal
	TokenChain         string
	TokenLiquidity     decimal.Decimal
	TokenHasLiquidity  bool
	TokenVerified      bool
	TokenJupVerified   bool
	TokenFreezable     bool
	TokenTwitter       string
	TokenHasTwitter    bool
	TokenTelegram      string
	TokenHasTelegram   bool
	TokenWebsite       string
	TokenHasWebsite    bool
	TokenDiscord       string
	TokenHasDiscord    bool
	TokenVolume24H     decimal.Decimal
	TokenVolume6H      decimal.Decimal
	TokenVolume1H      decimal.Decimal
	TokenVolume5Min    decimal.Decimal
	TokenBuyCount24H   int
	TokenSellCount24H  int
	TokenBuyCount6H    int
	TokenSellCount6H   int
	TokenBuyCount1H    int
	TokenSellCount1H   int
	TokenBuyCount5Min  int
	TokenSellCount5Min int
	TokenTop10Holders  decimal.Decimal

	// Actor attributes captured at enrichment time.
	UserTwitterUsername     string
	UserHasTwitter          bool
	UserIsVerified          bool
	UserFollowerCount       int
	UserFolloweeCount       int
	UserMutualFollowerCount int
	UserVisibility          string
	UserVisiblePublic       bool
	UserWeeklyRank          int
	UserWeeklyValue         decimal.Decimal
	UserSubscriberCount     int
	UserHasSubscribers      bool

	// Delayed verification outcomes, one per offset.
	Outcome30s Outcome
	Outcome1m  Outcome
	Outcome5m  Outcome

	InsertedAt time.Time
}

// OutcomeAt returns the outcome recorded for an offset.
func (r *BroadcastRecord) OutcomeAt(offset Offset) Outcome {
	switch offset {
	case Offset30s:
		return r.Outcome30s
	case Offset1m:
		return r.Outcome1m
	case Offset5m:
		return r.Outcome5m
	}
	return Outcome{}
}

// SetOutcomeAt records an outcome for an offset on the in-memory struct.
func (r *BroadcastRecord) SetOutcomeAt(offset Offset, outcome Outcome) {
	switch offset {
	case Offset30s:
		r.Outcome30s = outcome
	case Offset1m:
		r.Outcome1m = outcome
	case Offset5m:
		r.Outcome5m = outcome
	}
}

// PendingOffsets lists the offsets whose outcome is still unset.
func (r *BroadcastRecord) PendingOffsets() []Offset {
	pending := make([]Offset, 0, len(AllOffsets))
	for _, offset := range AllOffsets {
		if !r.OutcomeAt(offset).Set() {
			pending = append(pending, offset)
		}
	}
	return pending
}
