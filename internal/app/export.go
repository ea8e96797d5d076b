package app

import (
	"context"
	"encoding/csv"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"

	"broadcast-tracker/internal/storage"
)

// Export renders historical broadcast data as CSV and/or PNG.
func (a *App) Export(ctx context.Context, opts ExportOptions) error {
	if opts.CSVPath == "" && opts.PNGPath == "" {
		return errors.New("at least one of --csv or --png must be provided")
	}

	opts.MaxPoints = a.Config.ResolveMaxPoints(opts.MaxPoints)

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot export")
	}
	if closeStore != nil {
		defer closeStore()
	}

	to := time.Now().UTC()
	if opts.To != nil {
		to = opts.To.UTC()
	}

	from := to.Add(-24 * time.Hour)
	if opts.From != nil {
		from = opts.From.UTC()
	}

	if !from.Before(to) {
		return errors.New("from must be before to")
	}

	records, err := store.ListBroadcastsBetween(ctx, from, to)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		a.Logger.Info().Msg("no broadcasts found for export window")
		return nil
	}

	downsampled := downsampleBroadcasts(records, opts.MaxPoints)
	a.Logger.Info().Int("total", len(records)).Int("exported", len(downsampled)).Msg("exporting broadcasts")

	if opts.CSVPath != "" {
		if err := writeBroadcastsCSV(opts.CSVPath, downsampled); err != nil {
			return err
		}
	}

	if opts.PNGPath != "" {
		if err := writeBroadcastsPNG(opts.PNGPath, downsampled); err != nil {
			return err
		}
	}

	return nil
}

func downsampleBroadcasts(records []storage.BroadcastRecord, max int) []storage.BroadcastRecord {
	if max <= 0 || len(records) <= max {
		return records
	}

	result := make([]storage.BroadcastRecord, 0, max)
	step := float64(len(records)-1) / float64(max-1)
	for i := 0; i < max; i++ {
		idx := int(math.Round(step * float64(i)))
		if idx >= len(records) {
			idx = len(records) - 1
		}
		result = append(result, records[idx])
	}
	return result
}

func writeBroadcastsCSV(path string, records []storage.BroadcastRecord) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{
		"broadcast_id", "created_at", "username", "token_id", "token_symbol",
		"price_bcast", "mcap_bcast", "liquidity", "volume_24h", "follower_count",
		"variance_30s", "won_30s", "variance_1m", "won_1m", "variance_5m", "won_5m",
	}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, rec := range records {
		row := []string{
			rec.BroadcastID,
			rec.CreatedAt.UTC().Format(time.RFC3339),
			rec.Username,
			rec.BuyTokenID,
			rec.TokenSymbol,
			rec.BuyTokenPriceBcast.String(),
			rec.BuyTokenMCapBcast.String(),
			rec.TokenLiquidity.String(),
			rec.TokenVolume24H.String(),
			strconv.Itoa(rec.UserFollowerCount),
		}
		for _, offset := range storage.AllOffsets {
			outcome := rec.OutcomeAt(offset)
			if outcome.Set() {
				row = append(row, outcome.VariancePct.String(), strconv.FormatBool(*outcome.Won))
			} else {
				row = append(row, "", "")
			}
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	return writer.Error()
}

func writeBroadcastsPNG(path string, records []storage.BroadcastRecord) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	// Chart only broadcasts with at least one recorded outcome; an unset
	// offset plots as zero so the three series stay aligned.
	x := make([]time.Time, 0, len(records))
	v30 := make([]float64, 0, len(records))
	v1m := make([]float64, 0, len(records))
	v5m := make([]float64, 0, len(records))

	for _, rec := range records {
		if !rec.Outcome30s.Set() && !rec.Outcome1m.Set() && !rec.Outcome5m.Set() {
			continue
		}
		x = append(x, rec.CreatedAt)
		v30 = append(v30, outcomeFloat(rec.Outcome30s))
		v1m = append(v1m, outcomeFloat(rec.Outcome1m))
		v5m = append(v5m, outcomeFloat(rec.Outcome5m))
	}

	if len(x) < 2 {
		return errors.New("not enough verified broadcasts to chart")
	}

	varianceFormatter := func(v interface{}) string {
		return chart.FloatValueFormatterWithFormat(v, "%.2f%%")
	}
	graph := chart.Chart{
		Width:  1280,
		Height: 720,
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeValueFormatter,
		},
		YAxis: chart.YAxis{
			Name:           "Price variance (%)",
			ValueFormatter: varianceFormatter,
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    "30s",
				XValues: x,
				YValues: v30,
			},
			chart.TimeSeries{
				Name:    "1m",
				XValues: x,
				YValues: v1m,
			},
			chart.TimeSeries{
				Name:    "5m",
				XValues: x,
				YValues: v5m,
			},
		},
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return graph.Render(chart.PNG, file)
}

func outcomeFloat(outcome storage.Outcome) float64 {
	if !outcome.Set() {
		return 0
	}
	return outcome.VariancePct.InexactFloat64()
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
