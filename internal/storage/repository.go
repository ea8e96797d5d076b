package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const (
	insertBroadcastSQL = `INSERT INTO broadcasts (
        broadcast_id, created_at, user_id, username,
        buy_token_id, buy_token_amount, buy_token_price_bcast, buy_token_mcap_bcast, has_buy_token,
        sell_token_id, sell_token_amount, sell_token_price_bcast, sell_token_mcap_bcast, has_sell_token,
        token_name, token_symbol, token_price, token_supply, token_chain,
        token_liquidity, token_has_liquidity, token_verified, token_jup_verified, token_freezable,
        token_twitter, token_has_twitter, token_telegram, token_has_telegram,
        token_website, token_has_website, token_discord, token_has_discord,
        token_volume_24h, token_volume_6h, token_volume_1h, token_volume_5min,
        token_buy_count_24h, token_sell_count_24h, token_buy_count_6h, token_sell_count_6h,
        token_buy_count_1h, token_sell_count_1h, token_buy_count_5min, token_sell_count_5min,
        token_top10_holder_pct,
        user_twitter_username, user_has_twitter, user_is_verified,
        user_follower_count, user_followee_count, user_mutual_follower_count,
        user_visibility, user_visible_public, user_weekly_rank, user_weekly_value,
        user_subscriber_count, user_has_subscribers
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,
        $11,$12,$13,$14,$15,$16,$17,$18,$19,$20,
        $21,$22,$23,$24,$25,$26,$27,$28,$29,$30,
        $31,$32,$33,$34,$35,$36,$37,$38,$39,$40,
        $41,$42,$43,$44,$45,$46,$47,$48,$49,$50,
        $51,$52,$53,$54,$55,$56,$57
    )
    ON CONFLICT (broadcast_id) DO NOTHING;`

	broadcastColumns = `broadcast_id, created_at, user_id, username,
        buy_token_id, buy_token_amount, buy_token_price_bcast, buy_token_mcap_bcast, has_buy_token,
        sell_token_id, sell_token_amount, sell_token_price_bcast, sell_token_mcap_bcast, has_sell_token,
        token_name, token_symbol, token_price, token_supply, token_chain,
        token_liquidity, token_has_liquidity, token_verified, token_jup_verified, token_freezable,
        token_twitter, token_has_twitter, token_telegram, token_has_telegram,
        token_website, token_has_website, token_discord, token_has_discord,
        token_volume_24h, token_volume_6h, token_volume_1h, token_volume_5min,
        token_buy_count_24h, token_sell_count_24h, token_buy_count_6h, token_sell_count_6h,
        token_buy_count_1h, token_sell_count_1h, token_buy_count_5min, token_sell_count_5min,
        token_top10_holder_pct,
        user_twitter_username, user_has_twitter, user_is_verified,
        user_follower_count, user_followee_count, user_mutual_follower_count,
        user_visibility, user_visible_public, user_weekly_rank, user_weekly_value,
        user_subscriber_count, user_has_subscribers,
        variance_30s, won_30s, variance_1m, won_1m, variance_5m, won_5m,
        inserted_at`

	listKnownIDsSQL = `SELECT broadcast_id FROM broadcasts;`

	broadcastExistsSQL = `SELECT EXISTS (SELECT 1 FROM broadcasts WHERE broadcast_id = $1);`

	countBroadcastsSQL = `SELECT COUNT(*) FROM broadcasts;`
)

var listRecentBroadcastsSQL = `SELECT ` + broadcastColumns + `
    FROM broadcasts
    ORDER BY created_at DESC
    LIMIT $1;`

var listBroadcastsBetweenSQL = `SELECT ` + broadcastColumns + `
    FROM broadcasts
    WHERE created_at >= $1
      AND created_at < $2
    ORDER BY created_at;`

var listPendingOutcomesSQL = `SELECT ` + broadcastColumns + `
    FROM broadcasts
    WHERE created_at < $1
      AND (variance_30s IS NULL OR variance_1m IS NULL OR variance_5m IS NULL)
    ORDER BY created_at;`

// outcomeColumns maps each offset to its owned column pair. The set is
// closed, so interpolating the names into SQL is safe.
var outcomeColumns = map[Offset]struct {
	variance string
	won      string
}{
	Offset30s: {variance: "variance_30s", won: "won_30s"},
	Offset1m:  {variance: "variance_1m", won: "won_1m"},
	Offset5m:  {variance: "variance_5m", won: "won_5m"},
}

// Store persists broadcasts in PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// InsertBroadcast persists a record; a duplicate broadcast id is a no-op.
func (s *Store) InsertBroadcast(ctx context.Context, rec BroadcastRecord) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	_, execErr := pool.Exec(ctx, insertBroadcastSQL,
		rec.BroadcastID,
		rec.CreatedAt,
		rec.UserID,
		rec.Username,
		rec.BuyTokenID,
		rec.BuyTokenAmount.String(),
		rec.BuyTokenPriceBcast.String(),
		rec.BuyTokenMCapBcast.String(),
		rec.HasBuyToken,
		rec.SellTokenID,
		rec.SellTokenAmount.String(),
		rec.SellTokenPriceBcast.String(),
		rec.SellTokenMCapBcast.String(),
		rec.HasSellToken,
		rec.TokenName,
		rec.TokenSymbol,
		rec.TokenPrice.String(),
		rec.TokenSupply.String(),
		rec.TokenChain,
		rec.TokenLiquidity.String(),
		rec.TokenHasLiquidity,
		rec.TokenVerified,
		rec.TokenJupVerified,
		rec.TokenFreezable,
		rec.TokenTwitter,
		rec.TokenHasTwitter,
		rec.TokenTelegram,
		rec.TokenHasTelegram,
		rec.TokenWebsite,
		rec.TokenHasWebsite,
		rec.TokenDiscord,
		rec.TokenHasDiscord,
		rec.TokenVolume24H.String(),
		rec.TokenVolume6H.String(),
		rec.TokenVolume1H.String(),
		rec.TokenVolume5Min.String(),
		rec.TokenBuyCount24H,
		rec.TokenSellCount24H,
		rec.TokenBuyCount6H,
		rec.TokenSellCount6H,
		rec.TokenBuyCount1H,
		rec.TokenSellCount1H,
		rec.TokenBuyCount5Min,
		rec.TokenSellCount5Min,
		rec.TokenTop10Holders.String(),
		rec.UserTwitterUsername,
		rec.UserHasTwitter,
		rec.UserIsVerified,
		rec.UserFollowerCount,
		rec.UserFolloweeCount,
		rec.UserMutualFollowerCount,
		rec.UserVisibility,
		rec.UserVisiblePublic,
		rec.UserWeeklyRank,
		rec.UserWeeklyValue.String(),
		rec.UserSubscriberCount,
		rec.UserHasSubscribers,
	)
	if execErr != nil {
		return fmt.Errorf("insert broadcast: %w", execErr)
	}
	return nil
}

// UpdateOutcome fills one offset's outcome pair. The IS NULL guard makes the
// write monotonic: an already-set pair stays untouched.
func (s *Store) UpdateOutcome(ctx context.Context, broadcastID string, offset Offset, variancePct decimal.Decimal, won bool) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	cols, ok := outcomeColumns[offset]
	if !ok {
		return fmt.Errorf("unknown offset %q", offset)
	}

	query := fmt.Sprintf(
		`UPDATE broadcasts SET %s = $2, %s = $3 WHERE broadcast_id = $1 AND %s IS NULL;`,
		cols.variance, cols.won, cols.variance,
	)

	cmdTag, execErr := pool.Exec(ctx, query, broadcastID, variancePct.String(), won)
	if execErr != nil {
		return fmt.Errorf("update outcome %s: %w", offset, execErr)
	}
	if cmdTag.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	if scanErr := pool.QueryRow(ctx, broadcastExistsSQL, broadcastID).Scan(&exists); scanErr != nil {
		return fmt.Errorf("check broadcast exists: %w", scanErr)
	}
	if !exists {
		return ErrNotFound
	}
	// Outcome already recorded by an earlier firing.
	return nil
}

// ListKnownIDs returns every persisted broadcast id.
func (s *Store) ListKnownIDs(ctx context.Context) ([]string, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listKnownIDsSQL)
	if queryErr != nil {
		return nil, fmt.Errorf("list known ids: %w", queryErr)
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if scanErr := rows.Scan(&id); scanErr != nil {
			return nil, scanErr
		}
		ids = append(ids, id)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return ids, nil
}

// ListRecentBroadcasts lists the most recent records by creation time.
func (s *Store) ListRecentBroadcasts(ctx context.Context, limit int) ([]BroadcastRecord, error) {
	return s.queryBroadcasts(ctx, listRecentBroadcastsSQL, limit)
}

// ListBroadcastsBetween lists records within a creation-time window.
func (s *Store) ListBroadcastsBetween(ctx context.Context, from, to time.Time) ([]BroadcastRecord, error) {
	return s.queryBroadcasts(ctx, listBroadcastsBetweenSQL, from, to)
}

// ListPendingOutcomes lists records created before the cutoff with at least
// one unset outcome.
func (s *Store) ListPendingOutcomes(ctx context.Context, createdBefore time.Time) ([]BroadcastRecord, error) {
	return s.queryBroadcasts(ctx, listPendingOutcomesSQL, createdBefore)
}

// CountBroadcasts counts stored records.
func (s *Store) CountBroadcasts(ctx context.Context) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}
	var count int64
	if scanErr := pool.QueryRow(ctx, countBroadcastsSQL).Scan(&count); scanErr != nil {
		return 0, fmt.Errorf("count broadcasts: %w", scanErr)
	}
	return count, nil
}

func (s *Store) queryBroadcasts(ctx context.Context, query string, args ...any) ([]BroadcastRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, query, args...)
	if queryErr != nil {
		return nil, fmt.Errorf("query broadcasts: %w", queryErr)
	}
	defer rows.Close()

	records := make([]BroadcastRecord, 0)
	for rows.Next() {
		rec, scanErr := scanBroadcast(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		records = append(records, rec)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return records, nil
}

func scanBroadcast(rows pgx.Rows) (BroadcastRecord, error) {
	var (
		rec BroadcastRecord

		buyAmount, buyPrice, buyMCap    string
		sellAmount, sellPrice, sellMCap string
		tokenPrice, tokenSupply         string
		tokenLiquidity, top10           string
		vol24h, vol6h, vol1h, vol5min   string
		weeklyValue                     string

		variance30s, variance1m, variance5m sql.NullString
		won30s, won1m, won5m                sql.NullBool
	)

	if err := rows.Scan(
		&rec.BroadcastID,
		&rec.CreatedAt,
		&rec.UserID,
		&rec.Username,
		&rec.BuyTokenID,
		&buyAmount,
		&buyPrice,
		&buyMCap,
		&rec.HasBuyToken,
		&rec.SellTokenID,
		&sellAmount,
		&sellPrice,
		&sellMCap,
		&rec.HasSellToken,
		&rec.TokenName,
		&rec.TokenSymbol,
		&tokenPrice,
		&tokenSupply,
		&rec.TokenChain,
		&tokenLiquidity,
		&rec.TokenHasLiquidity,
		&rec.TokenVerified,
		&rec.TokenJupVerified,
		&rec.TokenFreezable,
		&rec.TokenTwitter,
		&rec.TokenHasTwitter,
		&rec.TokenTelegram,
		&rec.TokenHasTelegram,
		&rec.TokenWebsite,
		&rec.TokenHasWebsite,
		&rec.TokenDiscord,
		&rec.TokenHasDiscord,
		&vol24h,
		&vol6h,
		&vol1h,
		&vol5min,
		&rec.TokenBuyCount24H,
		&rec.TokenSellCount24H,
		&rec.TokenBuyCount6H,
		&rec.TokenSellCount6H,
		&rec.TokenBuyCount1H,
		&rec.TokenSellCount1H,
		&rec.TokenBuyCount5Min,
		&rec.TokenSellCount5Min,
		&top10,
		&rec.UserTwitterUsername,
		&rec.UserHasTwitter,
		&rec.UserIsVerified,
		&rec.UserFollowerCount,
		&rec.UserFolloweeCount,
		&rec.UserMutualFollowerCount,
		&rec.UserVisibility,
		&rec.UserVisiblePublic,
		&rec.UserWeeklyRank,
		&weeklyValue,
		&rec.UserSubscriberCount,
		&rec.UserHasSubscribers,
		&variance30s,
		&won30s,
		&variance1m,
		&won1m,
		&variance5m,
		&won5m,
		&rec.InsertedAt,
	); err != nil {
		return BroadcastRecord{}, err
	}

	var err error
	if rec.BuyTokenAmount, err = parseDecimalColumn("buy_token_amount", buyAmount); err != nil {
		return BroadcastRecord{}, err
	}
	if rec.BuyTokenPriceBcast, err = parseDecimalColumn("buy_token_price_bcast", buyPrice); err != nil {
		return BroadcastRecord{}, err
	}
	if rec.BuyTokenMCapBcast, err = parseDecimalColumn("buy_token_mcap_bcast", buyMCap); err != nil {
		return BroadcastRecord{}, err
	}
	if rec.SellTokenAmount, err = parseDecimalColumn("sell_token_amount", sellAmount); err != nil {
		return BroadcastRecord{}, err
	}
	if rec.SellTokenPriceBcast, err = parseDecimalColumn("sell_token_price_bcast", sellPrice); err != nil {
		return BroadcastRecord{}, err
	}
	if rec.SellTokenMCapBcast, err = parseDecimalColumn("sell_token_mcap_bcast", sellMCap); err != nil {
		return BroadcastRecord{}, err
	}
	if rec.TokenPrice, err = parseDecimalColumn("token_price", tokenPrice); err != nil {
		return BroadcastRecord{}, err
	}
	if rec.TokenSupply, err = parseDecimalColumn("token_supply", tokenSupply); err != nil {
		return BroadcastRecord{}, err
	}
	if rec.TokenLiquidity, err = parseDecimalColumn("token_liquidity", tokenLiquidity); err != nil {
		return BroadcastRecord{}, err
	}
	if rec.TokenVolume24H, err = parseDecimalColumn("token_volume_24h", vol24h); err != nil {
		return BroadcastRecord{}, err
	}
	if rec.TokenVolume6H, err = parseDecimalColumn("token_volume_6h", vol6h); err != nil {
		return BroadcastRecord{}, err
	}
	if rec.TokenVolume1H, err = parseDecimalColumn("token_volume_1h", vol1h); err != nil {
		return BroadcastRecord{}, err
	}
	if rec.TokenVolume5Min, err = parseDecimalColumn("token_volume_5min", vol5min); err != nil {
		return BroadcastRecord{}, err
	}
	if rec.TokenTop10Holders, err = parseDecimalColumn("token_top10_holder_pct", top10); err != nil {
		return BroadcastRecord{}, err
	}
	if rec.UserWeeklyValue, err = parseDecimalColumn("user_weekly_value", weeklyValue); err != nil {
		return BroadcastRecord{}, err
	}

	rec.Outcome30s, err = parseOutcome("variance_30s", variance30s, won30s)
	if err != nil {
		return BroadcastRecord{}, err
	}
	rec.Outcome1m, err = parseOutcome("variance_1m", variance1m, won1m)
	if err != nil {
		return BroadcastRecord{}, err
	}
	rec.Outcome5m, err = parseOutcome("variance_5m", variance5m, won5m)
	if err != nil {
		return BroadcastRecord{}, err
	}

	return rec, nil
}

func parseDecimalColumn(column, value string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("parse %s: %w", column, err)
	}
	return d, nil
}

func parseOutcome(column string, variance sql.NullString, won sql.NullBool) (Outcome, error) {
	if !variance.Valid || !won.Valid {
		return Outcome{}, nil
	}
	d, err := decimal.NewFromString(variance.String)
	if err != nil {
		return Outcome{}, fmt.Errorf("parse %s: %w", column, err)
	}
	w := won.Bool
	return Outcome{VariancePct: &d, Won: &w}, nil
}

var _ BroadcastStore = (*Store)(nil)
