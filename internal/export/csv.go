// Package export writes liquidity curves as CSV files and storage records.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"liquidityProfile/internal/liquidity"
)

var (
	segmentsHeader  = []string{"tick_lower", "tick_upper", "price_lower", "price_upper", "liquidity"}
	ticksHeader     = []string{"tick", "active_liquidity", "price1_per_0"}
	topRangesHeader = []string{"tick_lower", "tick_upper", "active_liquidity", "price_low_1_per_0", "price_high_1_per_0"}
)

// WriteSegmentsCSV writes one row per segment in the order given.
func WriteSegmentsCSV(w io.Writer, segments []liquidity.Segment) error {
	rows := make([][]string, 0, len(segments))
	for _, seg := range segments {
		rows = append(rows, []string{
			formatTick(seg.TickLower),
			formatTick(seg.TickUpper),
			formatPrice(seg.PriceLower),
			formatPrice(seg.PriceUpper),
			seg.Liquidity.String(),
		})
	}
	return writeCSV(w, segmentsHeader, rows)
}

// WriteTicksCSV writes the running liquidity at every initialized tick.
func WriteTicksCSV(w io.Writer, ticks []liquidity.TickLiquidity) error {
	rows := make([][]string, 0, len(ticks))
	for _, tick := range ticks {
		rows = append(rows, []string{
			formatTick(tick.Tick),
			tick.Active.String(),
			formatPrice(tick.Price),
		})
	}
	return writeCSV(w, ticksHeader, rows)
}

// WriteTopRangesCSV writes segments ranked by liquidity, deepest first.
func WriteTopRangesCSV(w io.Writer, segments []liquidity.Segment) error {
	ranked := liquidity.TopRanges(segments)
	rows := make([][]string, 0, len(ranked))
	for _, seg := range ranked {
		rows = append(rows, []string{
			formatTick(seg.TickLower),
			formatTick(seg.TickUpper),
			seg.Liquidity.String(),
			formatPrice(seg.PriceLower),
			formatPrice(seg.PriceUpper),
		})
	}
	return writeCSV(w, topRangesHeader, rows)
}

// WriteFile creates path (and parent directories) and hands it to write.
// The file is written under a temporary name and renamed on success.
func WriteFile(path string, write func(io.Writer) error) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create dir: %w", err)
		}
	}

	tmpPath := path + ".tmp"
	file, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(file); err != nil {
		file.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}

// FramePath names the index-th time-lapse frame under dir.
func FramePath(dir string, index int) string {
	return filepath.Join(dir, fmt.Sprintf("liquidity_%04d.csv", index))
}

func writeCSV(w io.Writer, header []string, rows [][]string) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(header); err != nil {
		return err
	}
	if err := writer.WriteAll(rows); err != nil {
		return err
	}
	return writer.Error()
}

func formatTick(tick int32) string {
	return strconv.FormatInt(int64(tick), 10)
}

func formatPrice(price float64) string {
	return strconv.FormatFloat(price, 'g', -1, 64)
}
