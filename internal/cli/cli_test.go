package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/rs/zerolog"

	"pivot-trader/internal/analysis/strategy"
	"pivot-trader/internal/config"
	apperrors "pivot-trader/internal/errors"
	"pivot-trader/internal/models"
	"pivot-trader/internal/trading"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	cfg := config.Default()
	cfg.Data.DBPath = filepath.Join(t.TempDir(), "candles.db")
	cfg.Logging.File = false
	return &App{Config: cfg, Logger: zerolog.Nop()}
}

func run(t *testing.T, app *App, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	root := NewRootCmd(app)
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

// writeCSV writes n daily bars of a drifting sine wave in Yahoo layout.
func writeCSV(t *testing.T, n int) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("Date,Open,High,Low,Close,Adj Close,Volume\n")
	start := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
	prev := 100.0
	for i := 0; i < n; i++ {
		c := 100 + 8*math.Sin(float64(i)/7) + 0.04*float64(i)
		hi := math.Max(prev, c) + 0.8
		lo := math.Min(prev, c) - 0.8
		fmt.Fprintf(&b, "%s,%.4f,%.4f,%.4f,%.4f,%.4f,%d\n",
			start.AddDate(0, 0, i).Format("2006-01-02"), prev, hi, lo, c, c, 1000+i)
		prev = c
	}
	b.WriteString("2024-12-31,null,null,null,null,null,null\n")

	path := filepath.Join(t.TempDir(), "prices.csv")
	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestVersionJSON(t *testing.T) {
	out, _, err := run(t, newTestApp(t), "version", "--json")
	if err != nil {
		t.Fatal(err)
	}
	var v map[string]string
	if err := json.Unmarshal([]byte(out), &v); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if v["version"] != Version {
		t.Errorf("version = %q, want %q", v["version"], Version)
	}
}

func TestImportListAnalyze(t *testing.T) {
	app := newTestApp(t)
	csvPath := writeCSV(t, 150)

	out, _, err := run(t, app, "data", "import", "aapl", csvPath, "--json")
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	var imported map[string]interface{}
	if err := json.Unmarshal([]byte(out), &imported); err != nil {
		t.Fatalf("decode import %q: %v", out, err)
	}
	if imported["imported"].(float64) != 150 || imported["dropped"].(float64) != 1 {
		t.Errorf("import report = %v", imported)
	}

	out, _, err = run(t, app, "data", "list", "--json")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var summaries []models.SymbolSummary
	if err := json.Unmarshal([]byte(out), &summaries); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(summaries) != 1 || summaries[0].Symbol != "AAPL" || summaries[0].Bars != 150 {
		t.Fatalf("summaries = %+v", summaries)
	}

	out, stderr, err := run(t, app, "analyze", "AAPL", "-H", "MID", "--json")
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	var res analyzeResult
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("decode analyze %q: %v", out, err)
	}
	if res.Bars != 150 || res.Decision == nil || res.Decision.Horizon != models.HorizonMid {
		t.Errorf("analyze result = %+v", res)
	}
	if res.Narration == "" {
		t.Error("narration should be present")
	}
	if strings.Contains(stderr, "recommended") {
		t.Errorf("150 bars should not warn: %q", stderr)
	}
}

func TestAnalyze_WarnsOnShortHistory(t *testing.T) {
	app := newTestApp(t)
	out, stderr, err := run(t, app, "analyze", "SPY", "--csv", writeCSV(t, 40), "-H", "ST", "--json")
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if !strings.Contains(stderr, "Only 40 bars") {
		t.Errorf("stderr = %q, want short-history warning", stderr)
	}
	if !json.Valid([]byte(out)) {
		t.Errorf("stdout should stay valid JSON: %q", out)
	}
}

func TestAnalyze_MissingSymbol(t *testing.T) {
	_, _, err := run(t, newTestApp(t), "analyze", "NOPE")
	if !errors.Is(err, apperrors.ErrDataNotFound) {
		t.Fatalf("err = %v, want ErrDataNotFound", err)
	}
}

func TestAnalyze_MissingCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.csv")
	_, _, err := run(t, newTestApp(t), "analyze", "SPY", "--csv", path)
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("err = %v, want os.ErrNotExist", err)
	}
	if !strings.HasPrefix(err.Error(), "opening "+path) {
		t.Errorf("err = %q, want the file named", err)
	}
}

func TestAnalyze_BadHorizon(t *testing.T) {
	_, _, err := run(t, newTestApp(t), "analyze", "AAPL", "-H", "WEEKLY")
	if !errors.Is(err, apperrors.ErrInvalidHorizon) {
		t.Fatalf("err = %v, want ErrInvalidHorizon", err)
	}
}

func TestBacktest_ExportsAndSummarizes(t *testing.T) {
	app := newTestApp(t)
	dir := t.TempDir()
	tradesPath := filepath.Join(dir, "trades.csv")
	equityPath := filepath.Join(dir, "equity.csv")

	out, _, err := run(t, app, "backtest", "SPY", "--csv", writeCSV(t, 200), "-H", "ST",
		"--export-trades", tradesPath, "--export-equity", equityPath, "--json")
	if err != nil {
		t.Fatalf("backtest: %v", err)
	}
	var rep backtestReport
	if err := json.Unmarshal([]byte(out), &rep); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if got, want := len(rep.Result.Equity), 200-60; got != want {
		t.Errorf("equity points = %d, want %d", got, want)
	}
	if rep.Stats.TotalTrades != len(rep.Result.Trades) {
		t.Errorf("stats trades %d != %d", rep.Stats.TotalTrades, len(rep.Result.Trades))
	}

	trades, err := os.ReadFile(tradesPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(trades), "side,entry_date,exit_date") {
		t.Errorf("trades header = %q", strings.SplitN(string(trades), "\n", 2)[0])
	}
	equity, err := os.ReadFile(equityPath)
	if err != nil {
		t.Fatal(err)
	}
	if lines := strings.Count(string(equity), "\n"); lines != 141 {
		t.Errorf("equity csv lines = %d, want 141", lines)
	}
}

func TestBacktest_RejectsRisk(t *testing.T) {
	_, _, err := run(t, newTestApp(t), "backtest", "SPY", "--csv", writeCSV(t, 80), "--risk", "0.5")
	if !errors.Is(err, apperrors.ErrInputValidation) {
		t.Fatalf("err = %v, want ErrInputValidation", err)
	}
}

func TestBacktest_Compare(t *testing.T) {
	out, _, err := run(t, newTestApp(t), "backtest", "SPY", "--csv", writeCSV(t, 150), "--compare", "--json")
	if err != nil {
		t.Fatalf("compare: %v", err)
	}
	var ranked []trading.HorizonComparison
	if err := json.Unmarshal([]byte(out), &ranked); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(ranked) != 3 {
		t.Fatalf("got %d horizons, want 3", len(ranked))
	}
	for i := 1; i < len(ranked); i++ {
		if ranked[i].Stats.TotalReturn > ranked[i-1].Stats.TotalReturn {
			t.Errorf("not ranked by return: %+v", ranked)
		}
	}
}

func TestWatchlistAndScan(t *testing.T) {
	app := newTestApp(t)
	if _, _, err := run(t, app, "data", "import", "MSFT", writeCSV(t, 120)); err != nil {
		t.Fatalf("import: %v", err)
	}
	if _, _, err := run(t, app, "watchlist", "add", "msft", "gone", "-l", "core"); err != nil {
		t.Fatalf("watchlist add: %v", err)
	}

	out, _, err := run(t, app, "watchlist", "list", "--json")
	if err != nil {
		t.Fatal(err)
	}
	var lists map[string][]string
	if err := json.Unmarshal([]byte(out), &lists); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(lists["core"]) != 2 {
		t.Errorf("core = %v", lists["core"])
	}

	out, _, err = run(t, app, "scan", "-w", "core", "--json")
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	var results []strategy.ScanResult
	if err := json.Unmarshal([]byte(out), &results); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("results = %d, want 2", len(results))
	}
	byName := map[string]strategy.ScanResult{}
	for _, r := range results {
		byName[r.Symbol] = r
	}
	if byName["MSFT"].Decision == nil {
		t.Errorf("MSFT should have a decision: %+v", byName["MSFT"])
	}
	if byName["GONE"].Error == "" {
		t.Errorf("GONE should report an error")
	}
}

func TestScan_NoSymbols(t *testing.T) {
	if _, _, err := run(t, newTestApp(t), "scan"); err == nil {
		t.Fatal("scan without symbols should fail")
	}
}

func TestEventsAddAndList(t *testing.T) {
	app := newTestApp(t)
	if _, _, err := run(t, app, "events", "add", "2024-07-25", "-s", "aapl", "-t", "earnings"); err != nil {
		t.Fatal(err)
	}
	if _, _, err := run(t, app, "events", "add", "2024-07-31", "-t", "macro", "-d", "FOMC"); err != nil {
		t.Fatal(err)
	}

	out, _, err := run(t, app, "events", "list", "AAPL", "--from", "2024-07-01", "--days", "60", "--json")
	if err != nil {
		t.Fatal(err)
	}
	var events []models.MarketEvent
	if err := json.Unmarshal([]byte(out), &events); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("events = %+v, want symbol and market-wide event", events)
	}
	if events[0].Type != models.EventEarnings || events[1].Symbol != "" {
		t.Errorf("events = %+v", events)
	}
}

func TestConfigShowMasksKey(t *testing.T) {
	app := newTestApp(t)
	app.Config.Credentials.OpenAI.APIKey = "sk-1234567890abcd"

	out, _, err := run(t, app, "config", "show", "--json")
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(out, "sk-1234567890abcd") {
		t.Error("api key leaked")
	}
	if !strings.Contains(out, "sk-1****abcd") {
		t.Errorf("masked key missing: %s", out)
	}
	if app.Config.Credentials.OpenAI.APIKey != "sk-1234567890abcd" {
		t.Error("show must not modify the loaded config")
	}
}

func TestTableRender(t *testing.T) {
	var buf bytes.Buffer
	o := &Output{writer: &buf, errWriter: &buf}
	table := NewTable(o, "SYM", "PRICE")
	table.AddRow("AAPL", "189.25")
	table.AddRow("X", "2.00")
	table.Render()

	want := "SYM   PRICE\n----  ------\nAAPL  189.25\nX     2.00\n"
	if buf.String() != want {
		t.Errorf("table =\n%q\nwant\n%q", buf.String(), want)
	}
}

func TestRewardRisk(t *testing.T) {
	long := models.TradePlan{Action: models.ActionLong, Entry: 100, TP1: 104, TP2: 108, SL: 98}
	short := models.TradePlan{Action: models.ActionShort, Entry: 100, TP1: 97, TP2: 94, SL: 101}
	if got := rewardRisk(long); got != "2.00" {
		t.Errorf("long r:r = %s", got)
	}
	if got := rewardRisk(short); got != "3.00" {
		t.Errorf("short r:r = %s", got)
	}
	if got := rewardRisk(models.TradePlan{Action: models.ActionLong, Entry: 100, SL: 100}); got != "-" {
		t.Errorf("zero risk = %s", got)
	}
}

func TestProperty_UniqueSymbols(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	symbolGen := gen.OneConstOf("aapl", "AAPL", " msft ", "MSFT", "", "nvda", "spy")

	properties.Property("unique, upper-case, idempotent", prop.ForAll(
		func(in []string) bool {
			out := uniqueSymbols(in)
			seen := map[string]bool{}
			for _, s := range out {
				if s == "" || s != strings.ToUpper(strings.TrimSpace(s)) || seen[s] {
					return false
				}
				seen[s] = true
			}
			return strings.Join(uniqueSymbols(out), ",") == strings.Join(out, ",")
		},
		gen.SliceOf(symbolGen),
	))

	properties.Property("painted text keeps its visible length", prop.ForAll(
		func(s string) bool {
			o := &Output{colorEnabled: true}
			return visibleLen(o.Green(s)) == visibleLen(s) && visibleLen(o.BoldText(s)) == visibleLen(s)
		},
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}
