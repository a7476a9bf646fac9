package cmd

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/etnz/backtester"
	"github.com/etnz/backtester/date"
	"github.com/etnz/backtester/store"
	"github.com/google/subcommands"
)

// writePrices writes a daily price file with a Date and a Close column.
func writePrices(t *testing.T, path string, closes []float64) {
	t.Helper()
	var b strings.Builder
	b.WriteString("Date,Open,Close,Volume\n")
	day := date.New(2024, 1, 1)
	for i, c := range closes {
		fmt.Fprintf(&b, "%s,%.2f,%.2f,1000\n", day.Add(i), c, c)
	}
	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		t.Fatal(err)
	}
}

// newTestData creates a data, meta and output directory for the "Test Universe" and points
// the BT_* environment to them.
func newTestData(t *testing.T) (dataDir, outputDir string) {
	t.Helper()
	root := t.TempDir()
	dataDir = filepath.Join(root, "train")
	metaDir := filepath.Join(root, "meta")
	outputDir = filepath.Join(root, "output")
	for _, dir := range []string{dataDir, metaDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			t.Fatal(err)
		}
	}

	const n = 40
	spy, aaa, bbb := make([]float64, n), make([]float64, n), make([]float64, n)
	for i := range n {
		spy[i] = 400 + float64(i)
		aaa[i] = 100 + 10*math.Sin(float64(i)/3)
		bbb[i] = 50 + math.Abs(float64(i-20))
	}
	writePrices(t, filepath.Join(dataDir, "SPY.csv"), spy)
	writePrices(t, filepath.Join(dataDir, "AAA_daily.csv"), aaa)
	writePrices(t, filepath.Join(dataDir, "BBB.csv"), bbb)
	components := "Ticker,Name,Sector\nAAA,Alpha,Technology\nBBB,Beta,Energy\n"
	if err := os.WriteFile(filepath.Join(metaDir, "TestUniverse.txt"), []byte(components), 0644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("BT_DATA_DIR", dataDir)
	t.Setenv("BT_META_DIR", metaDir)
	t.Setenv("BT_OUTPUT_DIR", outputDir)
	t.Setenv("BT_INITIAL_CAPITAL", "1000000")
	t.Setenv("BT_RISK_FREE_RATE", "0.02")
	t.Setenv("BT_VERBOSE", "false")
	t.Setenv("BT_DATABASE", filepath.Join(root, "default.db"))
	return dataDir, outputDir
}

func savedRuns(t *testing.T, db string) []store.RunModel {
	t.Helper()
	s, err := store.Open(db)
	if err != nil {
		t.Fatalf("store.Open() error = %v", err)
	}
	defer s.Close()
	runs, err := s.Runs(context.Background())
	if err != nil {
		t.Fatalf("Runs() error = %v", err)
	}
	return runs
}

func TestRunCommand(t *testing.T) {
	_, outputDir := newTestData(t)
	db := filepath.Join(t.TempDir(), "runs.db")
	setGlobalFlags(t, "", db, false)
	chart := filepath.Join(t.TempDir(), "chart.html")

	c := &runCmd{
		universe:   "Test Universe",
		strategies: "rsi,random",
		seed:       3,
		rfr:        -1,
		save:       true,
		chart:      chart,
		lots:       true,
	}
	if got := c.Execute(context.Background(), nil); got != subcommands.ExitSuccess {
		t.Fatalf("run Execute() = %v, want %v", got, subcommands.ExitSuccess)
	}

	for _, name := range []string{
		"LongSPY_pnl.csv",
		"LongSPY_trade_history.csv",
		"RSIStrategy_prices.csv",
		"RSIStrategy_trade_history.csv",
		"RandomStrategy_holding.csv",
		"RandomStrategy_taction.csv",
	} {
		if _, err := os.Stat(filepath.Join(outputDir, name)); err != nil {
			t.Errorf("output %s was not written: %v", name, err)
		}
	}

	html, err := os.ReadFile(chart)
	if err != nil {
		t.Fatalf("chart was not written: %v", err)
	}
	for _, name := range []string{"LongSPY", "RSIStrategy", "RandomStrategy"} {
		if !strings.Contains(string(html), name) {
			t.Errorf("chart does not mention %s", name)
		}
	}

	runs := savedRuns(t, db)
	if len(runs) != 3 {
		t.Fatalf("saved %d runs, want 3", len(runs))
	}
	for _, r := range runs {
		if r.Universe != "Test Universe" {
			t.Errorf("run %s universe = %q, want %q", r.Name, r.Universe, "Test Universe")
		}
	}

	// the saved runs are listed, and each one can be shown
	if got := (&runsCmd{}).Execute(context.Background(), nil); got != subcommands.ExitSuccess {
		t.Errorf("runs Execute() = %v, want %v", got, subcommands.ExitSuccess)
	}
	if got := (&runsCmd{id: runs[0].ID}).Execute(context.Background(), nil); got != subcommands.ExitSuccess {
		t.Errorf("runs -id Execute() = %v, want %v", got, subcommands.ExitSuccess)
	}
	if got := (&runsCmd{id: "unknown"}).Execute(context.Background(), nil); got != subcommands.ExitFailure {
		t.Errorf("runs -id unknown Execute() = %v, want %v", got, subcommands.ExitFailure)
	}
}

func TestRunCommand_RunFile(t *testing.T) {
	newTestData(t)
	dir := t.TempDir()
	outputDir := filepath.Join(dir, "out")
	runFile := filepath.Join(dir, "run.yaml")
	content := fmt.Sprintf(`name: AAA only
universe: Test Universe
tickers: [AAA]
start: 2024-01-05
initial_capital: "1000"
benchmark: false
output: %s
strategies:
  - kind: longindex
    ticker: AAA
`, outputDir)
	if err := os.WriteFile(runFile, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	setGlobalFlags(t, runFile, filepath.Join(dir, "runs.db"), false)

	if got := (&runCmd{rfr: -1}).Execute(context.Background(), nil); got != subcommands.ExitSuccess {
		t.Fatalf("run Execute() = %v, want %v", got, subcommands.ExitSuccess)
	}
	history, err := os.ReadFile(filepath.Join(outputDir, "LongAAA_trade_history.csv"))
	if err != nil {
		t.Fatalf("trade history was not written: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(history)), "\n")
	if len(lines) != 2 {
		t.Fatalf("trade history has %d lines, want a header and one lot:\n%s", len(lines), history)
	}
	if !strings.HasPrefix(lines[1], "AAA,") || !strings.Contains(lines[1], ",2024-01-05,") || !strings.Contains(lines[1], ",closed,") {
		t.Errorf("lot = %q, want a closed AAA lot entered on 2024-01-05", lines[1])
	}
	if _, err := os.Stat(filepath.Join(outputDir, "LongSPY_pnl.csv")); err == nil {
		t.Error("benchmark ran, want it disabled by the run file")
	}
}

func TestRunCommand_WeeklyRunFile(t *testing.T) {
	newTestData(t)
	dir := t.TempDir()
	outputDir := filepath.Join(dir, "out")
	runFile := filepath.Join(dir, "run.yaml")
	content := fmt.Sprintf("universe: Test Universe\ntimeframe: weekly\nrisk_free_rate: 0.365\noutput: %s\n", outputDir)
	if err := os.WriteFile(runFile, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	setGlobalFlags(t, runFile, filepath.Join(dir, "runs.db"), false)

	if got := (&runCmd{rfr: -1}).Execute(context.Background(), nil); got != subcommands.ExitUsageError {
		t.Fatalf("run Execute() = %v, want %v", got, subcommands.ExitUsageError)
	}
	if _, err := os.Stat(outputDir); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("a weekly run on daily prices wrote outputs: %v", err)
	}
}

func TestDailyOnly(t *testing.T) {
	if err := dailyOnly(backtester.Daily); err != nil {
		t.Errorf("dailyOnly(daily) error = %v", err)
	}
	for _, tf := range []backtester.Timeframe{backtester.Weekly, backtester.Monthly} {
		if err := dailyOnly(tf); !errors.Is(err, backtester.ErrUnsupportedTimeframe) {
			t.Errorf("dailyOnly(%v) error = %v, want %v", tf, err, backtester.ErrUnsupportedTimeframe)
		}
	}
}

func TestRunCommand_Errors(t *testing.T) {
	newTestData(t)
	setGlobalFlags(t, "", filepath.Join(t.TempDir(), "runs.db"), false)

	testCases := []struct {
		name string
		cmd  *runCmd
		want subcommands.ExitStatus
	}{
		{"unknown strategy", &runCmd{universe: "Test Universe", strategies: "magic", noBenchmark: true, rfr: -1}, subcommands.ExitUsageError},
		{"bad start", &runCmd{universe: "Test Universe", start: "yesterday", rfr: -1}, subcommands.ExitUsageError},
		{"bad capital", &runCmd{universe: "Test Universe", capital: "lots", rfr: -1}, subcommands.ExitUsageError},
		{"unknown universe", &runCmd{universe: "Moon Index", rfr: -1}, subcommands.ExitFailure},
		{"missing prices", &runCmd{universe: "Test Universe", tickers: "ZZZ", noBenchmark: true, rfr: -1}, subcommands.ExitFailure},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.cmd.Execute(context.Background(), nil); got != tc.want {
				t.Errorf("Execute() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestReplayCommand(t *testing.T) {
	newTestData(t)
	dir := t.TempDir()
	write := func(name, content string) string {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
		return p
	}
	outputDir := filepath.Join(dir, "out")
	c := &replayCmd{
		prices:    write("prices.csv", "date,A\n2020-01-01,100\n2020-01-02,108\n"),
		signal:    write("signal.csv", "date,A\n2020-01-01,1\n2020-01-02,-1\n"),
		action:    write("action.csv", "date,A\n2020-01-01,BUY\n2020-01-02,SELL_TO_CLOSE_ALL\n"),
		shares:    write("shares.csv", "date,A\n2020-01-01,500\n2020-01-02,\n"),
		name:      "My Replay",
		capital:   "100000",
		rfr:       0,
		timeframe: "daily",
		out:       outputDir,
		save:      true,
	}
	db := filepath.Join(dir, "runs.db")
	setGlobalFlags(t, "", db, false)

	if got := c.Execute(context.Background(), nil); got != subcommands.ExitSuccess {
		t.Fatalf("replay Execute() = %v, want %v", got, subcommands.ExitSuccess)
	}
	history, err := os.ReadFile(filepath.Join(outputDir, "MyReplay_trade_history.csv"))
	if err != nil {
		t.Fatalf("trade history was not written: %v", err)
	}
	want := "A,500,2020-01-01,100,2020-01-02,108,closed,4000"
	if !strings.Contains(string(history), want) {
		t.Errorf("trade history does not contain %q:\n%s", want, history)
	}

	runs := savedRuns(t, db)
	if len(runs) != 1 {
		t.Fatalf("saved %d runs, want 1", len(runs))
	}
	if got := runs[0].FinalValue.String(); got != "104000" {
		t.Errorf("saved final value = %s, want 104000", got)
	}
}

func TestReplayCommand_MissingMatrix(t *testing.T) {
	if got := (&replayCmd{prices: "prices.csv"}).Execute(context.Background(), nil); got != subcommands.ExitUsageError {
		t.Errorf("Execute() = %v, want %v", got, subcommands.ExitUsageError)
	}
}

func TestIndexesCommand(t *testing.T) {
	newTestData(t)
	testCases := []struct {
		components string
		want       subcommands.ExitStatus
	}{
		{"", subcommands.ExitSuccess},
		{"Test Universe", subcommands.ExitSuccess},
		{"Moon Index", subcommands.ExitFailure},
	}
	for _, tc := range testCases {
		if got := (&indexesCmd{components: tc.components}).Execute(context.Background(), nil); got != tc.want {
			t.Errorf("indexes -c %q Execute() = %v, want %v", tc.components, got, tc.want)
		}
	}
}
