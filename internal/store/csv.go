package store

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gocarina/gocsv"

	apperrors "pivot-trader/internal/errors"
	"pivot-trader/internal/models"
)

// candleRow mirrors a daily price export (Yahoo Finance layout). Fields are
// kept as text so missing values ("null", "") can be dropped per row.
type candleRow struct {
	Date     string `csv:"date"`
	Open     string `csv:"open"`
	High     string `csv:"high"`
	Low      string `csv:"low"`
	Close    string `csv:"close"`
	AdjClose string `csv:"adj close"`
	Volume   string `csv:"volume"`
}

// ImportReport summarizes a CSV import.
type ImportReport struct {
	Rows       int `json:"rows"`
	Dropped    int `json:"dropped"`
	Duplicates int `json:"duplicates"`
}

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"01/02/2006",
}

// ReadCandlesCSV parses daily OHLCV rows. Header names are matched without
// regard to case. Rows with a missing price are dropped, the result is sorted
// by date and a repeated date keeps its last row.
func ReadCandlesCSV(r io.Reader) ([]models.Candle, *ImportReport, error) {
	data, err := normalizeHeader(r)
	if err != nil {
		return nil, nil, err
	}

	var rows []*candleRow
	if err := gocsv.Unmarshal(bytes.NewReader(data), &rows); err != nil {
		return nil, nil, fmt.Errorf("%w: failed to parse csv: %v", apperrors.ErrInputValidation, err)
	}

	report := &ImportReport{}
	byDate := make(map[time.Time]models.Candle, len(rows))
	for _, row := range rows {
		c, ok := row.candle()
		if !ok {
			report.Dropped++
			continue
		}
		if _, seen := byDate[c.Timestamp]; seen {
			report.Duplicates++
		}
		byDate[c.Timestamp] = c
	}

	candles := make([]models.Candle, 0, len(byDate))
	for _, c := range byDate {
		candles = append(candles, c)
	}
	sort.Slice(candles, func(i, j int) bool {
		return candles[i].Timestamp.Before(candles[j].Timestamp)
	})
	report.Rows = len(candles)

	if len(candles) == 0 {
		return nil, report, fmt.Errorf("%w: no usable rows", apperrors.ErrInsufficientData)
	}
	if err := models.ValidateCandles(candles); err != nil {
		return nil, report, err
	}
	return candles, report, nil
}

func normalizeHeader(r io.Reader) ([]byte, error) {
	br := bufio.NewReader(r)
	header, err := br.ReadString('\n')
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}
	header = strings.TrimPrefix(header, "\ufeff")
	rest, err := io.ReadAll(br)
	if err != nil {
		return nil, fmt.Errorf("failed to read csv body: %w", err)
	}
	var buf bytes.Buffer
	buf.WriteString(strings.ToLower(header))
	buf.Write(rest)
	return buf.Bytes(), nil
}

func (row *candleRow) candle() (models.Candle, bool) {
	date, ok := parseDate(row.Date)
	if !ok {
		return models.Candle{}, false
	}
	var prices [4]float64
	for i, field := range []string{row.Open, row.High, row.Low, row.Close} {
		v, ok := parsePrice(field)
		if !ok {
			return models.Candle{}, false
		}
		prices[i] = v
	}
	c := models.Candle{
		Timestamp: date,
		Open:      prices[0],
		High:      prices[1],
		Low:       prices[2],
		Close:     prices[3],
	}
	if v, err := strconv.ParseFloat(strings.TrimSpace(row.Volume), 64); err == nil && v >= 0 {
		c.Volume = int64(v)
	}
	return c, true
}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return dayStart(t), true
		}
	}
	return time.Time{}, false
}

func parsePrice(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "null") {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// tradeRow is the CSV layout of a closed backtest trade.
type tradeRow struct {
	Side       string `csv:"side"`
	EntryDate  string `csv:"entry_date"`
	ExitDate   string `csv:"exit_date"`
	Entry      string `csv:"entry"`
	Exit       string `csv:"exit"`
	TP1        string `csv:"tp1"`
	TP2        string `csv:"tp2"`
	SL         string `csv:"sl"`
	Size       int64  `csv:"size"`
	TP1Hit     bool   `csv:"tp1_hit"`
	PnL        string `csv:"pnl"`
	ExitReason string `csv:"exit_reason"`
}

// WriteTradesCSV writes closed trades in chronological order.
func WriteTradesCSV(w io.Writer, trades []models.BacktestTrade) error {
	rows := make([]*tradeRow, 0, len(trades))
	for _, t := range trades {
		rows = append(rows, &tradeRow{
			Side:       string(t.Side),
			EntryDate:  t.EntryDate.Format("2006-01-02"),
			ExitDate:   t.ExitDate.Format("2006-01-02"),
			Entry:      formatPrice(t.Entry),
			Exit:       formatPrice(t.Exit),
			TP1:        formatPrice(t.TP1),
			TP2:        formatPrice(t.TP2),
			SL:         formatPrice(t.SL),
			Size:       t.Size,
			TP1Hit:     t.TP1Hit,
			PnL:        t.PnL.StringFixed(2),
			ExitReason: string(t.ExitReason),
		})
	}
	if err := gocsv.Marshal(rows, w); err != nil {
		return fmt.Errorf("failed to write trades csv: %w", err)
	}
	return nil
}

// equityRow is the CSV layout of one equity curve point.
type equityRow struct {
	Date    string `csv:"date"`
	Capital string `csv:"capital"`
}

// WriteEquityCSV writes the equity curve.
func WriteEquityCSV(w io.Writer, equity []models.EquityPoint) error {
	rows := make([]*equityRow, 0, len(equity))
	for _, p := range equity {
		rows = append(rows, &equityRow{
			Date:    p.Date.Format("2006-01-02"),
			Capital: p.Capital.StringFixed(2),
		})
	}
	if err := gocsv.Marshal(rows, w); err != nil {
		return fmt.Errorf("failed to write equity csv: %w", err)
	}
	return nil
}

func formatPrice(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// eventRow is the CSV layout of an event calendar. An empty symbol marks a
// market-wide event.
type eventRow struct {
	Date        string `csv:"date"`
	Symbol      string `csv:"symbol"`
	Type        string `csv:"type"`
	Description string `csv:"description"`
}

// ReadEventsCSV parses an event calendar with columns
// date,symbol,type,description. Rows with an unreadable date are errors.
func ReadEventsCSV(r io.Reader) ([]models.MarketEvent, error) {
	data, err := normalizeHeader(r)
	if err != nil {
		return nil, err
	}

	var rows []*eventRow
	if err := gocsv.Unmarshal(bytes.NewReader(data), &rows); err != nil {
		return nil, fmt.Errorf("%w: failed to parse csv: %v", apperrors.ErrInputValidation, err)
	}

	events := make([]models.MarketEvent, 0, len(rows))
	for i, row := range rows {
		date, ok := parseDate(row.Date)
		if !ok {
			return nil, apperrors.NewValidationError(fmt.Sprintf("row %d date", i+2), row.Date, "unrecognized date")
		}
		events = append(events, models.MarketEvent{
			Symbol:      strings.ToUpper(strings.TrimSpace(row.Symbol)),
			Type:        models.ParseEventType(row.Type),
			Date:        date,
			Description: strings.TrimSpace(row.Description),
		})
	}
	return events, nil
}
