// Package report renders operator-facing summaries: the load session table,
// row statistics, integrity findings, dry-run plans and journal history.
// Computation stays in the loader and verifier packages; this package only
// formats their results.
package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gookit/color"

	"github.com/mesdata/isaload/internal/dataset"
	"github.com/mesdata/isaload/internal/loader"
	"github.com/mesdata/isaload/internal/verifier"
)

const timeLayout = "2006-01-02 15:04:05"

// Renderer writes formatted reports to a single destination.
type Renderer struct {
	w io.Writer
}

// NewRenderer creates a renderer. A nil writer means stdout.
func NewRenderer(w io.Writer) *Renderer {
	if w == nil {
		w = os.Stdout
	}
	return &Renderer{w: w}
}

// Summary prints the end-of-session table: one row per unit with its
// outcome, plus the run tallies.
func (r *Renderer) Summary(result *loader.SessionResult) {
	fmt.Fprintf(r.w, "\n=== Load Complete ===\n\n")
	fmt.Fprintf(r.w, "Dataset: %s (level %d)\n", result.Dataset, result.Level)
	fmt.Fprintf(r.w, "Duration: %s\n", result.Duration.Round(time.Millisecond))
	if result.Truncated {
		fmt.Fprintf(r.w, "Truncated: yes\n")
	}
	if result.RunID > 0 {
		fmt.Fprintf(r.w, "Journal run: %d\n", result.RunID)
	}
	fmt.Fprintln(r.w)

	t := newTable("UNIT", "STATUS", "LOADED", "TOTAL", "TIME", "NOTE").rightAlign(2, 3)
	for _, u := range result.Units {
		note := u.Reason
		if u.Err != nil {
			note = u.Err.Error()
		}
		t.addRow(
			plain(u.Unit),
			painted(unitStatusPaint(u.Status), string(u.Status)),
			plain(humanize.Comma(u.RowsLoaded)),
			plain(humanize.Comma(u.RowsTotal)),
			plain(u.Duration.Round(time.Millisecond).String()),
			plain(note),
		)
	}
	t.render(r.w)
	fmt.Fprintln(r.w)

	loaded := fmt.Sprintf("%d loaded", result.Loaded)
	if result.Loaded > 0 {
		loaded = color.Green.Sprint(loaded)
	}
	skipped := fmt.Sprintf("%d skipped", result.Skipped)
	if result.Skipped > 0 {
		skipped = color.Yellow.Sprint(skipped)
	}
	failed := fmt.Sprintf("%d failed", result.Failed)
	if result.Failed > 0 {
		failed = color.Red.Sprint(failed)
	}
	fmt.Fprintf(r.w, "%s, %s, %s; %s rows this run\n",
		loaded, skipped, failed, humanize.Comma(result.RowsLoaded))
}

// Stats prints the per-unit row count table from a statistics pass.
func (r *Renderer) Stats(result *verifier.StatsResult) {
	fmt.Fprintf(r.w, "\n=== Row Statistics ===\n\n")
	fmt.Fprintf(r.w, "Dataset: %s (level %d)\n\n", result.Dataset, result.Level)

	t := newTable("UNIT", "ROWS").rightAlign(1)
	for _, uc := range result.Units {
		t.addRow(plain(uc.Unit), plain(humanize.Comma(uc.Rows)))
	}
	t.render(r.w)
	fmt.Fprintln(r.w)

	fmt.Fprintf(r.w, "Total: %s rows across %d units\n",
		humanize.Comma(result.TotalRows), len(result.Units))
	if result.Omitted > 0 {
		fmt.Fprintln(r.w, color.Yellow.Sprintf("Omitted: %d (count query failed)", result.Omitted))
	}
}

// Integrity prints the per-reference orphan table from an integrity pass and
// the overall verdict.
func (r *Renderer) Integrity(result *verifier.IntegrityResult) {
	fmt.Fprintf(r.w, "\n=== Referential Integrity ===\n\n")
	fmt.Fprintf(r.w, "Dataset: %s (level %d)\n\n", result.Dataset, result.Level)

	t := newTable("REFERENCE", "ORPHANS", "STATUS").rightAlign(1)
	for _, f := range result.Findings {
		status := painted(color.Green.Sprint, "ok")
		if !f.Satisfied() {
			status = painted(color.Red.Sprint, "VIOLATED")
		}
		t.addRow(plain(f.Reference.String()), plain(humanize.Comma(f.Orphans)), status)
	}
	t.render(r.w)
	fmt.Fprintln(r.w)

	if result.Passed() {
		fmt.Fprintln(r.w, color.Green.Sprint("All declared references satisfied"))
	} else {
		fmt.Fprintln(r.w, color.Red.Sprintf("%d of %d references violated",
			result.Violated, len(result.Findings)))
	}
	if result.Omitted > 0 {
		fmt.Fprintln(r.w, color.Yellow.Sprintf("Omitted: %d (check query failed)", result.Omitted))
	}
}

// Estimate prints the dry-run plan: the load order with per-file sizes and
// row estimates, then the totals.
func (r *Renderer) Estimate(result *loader.EstimateResult, dataDir string) {
	fmt.Fprintf(r.w, "\n=== Dry-Run Load Plan ===\n\n")
	fmt.Fprintf(r.w, "Dataset: %s (level %d)\n", result.Dataset, result.Level)
	fmt.Fprintf(r.w, "Data directory: %s\n\n", dataDir)

	fmt.Fprintf(r.w, "Load Order (parent-first):\n")
	for i, u := range result.Units {
		if !u.Present {
			fmt.Fprintf(r.w, "  %d. %s %s\n", i+1, u.Unit,
				color.Yellow.Sprintf("(%s missing, will be skipped)", filepath.Base(u.File)))
			continue
		}
		fmt.Fprintf(r.w, "  %d. %s (%s rows, %s)\n", i+1, u.Unit,
			humanize.Comma(u.DataRows), humanize.IBytes(uint64(u.FileBytes)))
	}
	fmt.Fprintln(r.w)

	fmt.Fprintf(r.w, "Total: %s rows, %s\n",
		humanize.Comma(result.TotalRows), humanize.IBytes(uint64(result.TotalBytes)))
	if result.Missing > 0 {
		fmt.Fprintln(r.w, color.Yellow.Sprintf("%d of %d source files missing",
			result.Missing, len(result.Units)))
	}
}

// Plan prints the dependency diagram and both orders for a dataset.
func (r *Renderer) Plan(ds *dataset.Dataset, diagram string, loadOrder, truncateOrder []string) {
	fmt.Fprintf(r.w, "\n=== Dependency Plan ===\n\n")
	fmt.Fprintf(r.w, "Dataset: %s (level %d)\n", ds.Name, ds.Level)
	if ds.Description != "" {
		fmt.Fprintf(r.w, "%s\n", ds.Description)
	}
	fmt.Fprintln(r.w)

	if diagram != "" {
		fmt.Fprintln(r.w, diagram)
	}

	fmt.Fprintf(r.w, "Load Order (parent-first):\n")
	for i, unit := range loadOrder {
		fmt.Fprintf(r.w, "  %d. %s\n", i+1, unit)
	}
	fmt.Fprintln(r.w)

	fmt.Fprintf(r.w, "Truncate Order (child-first):\n")
	for i, unit := range truncateOrder {
		fmt.Fprintf(r.w, "  %d. %s\n", i+1, unit)
	}
	fmt.Fprintln(r.w)

	fmt.Fprintf(r.w, "References:\n")
	for _, ref := range ds.References {
		fmt.Fprintf(r.w, "  %s\n", ref)
	}
	if len(ds.OrderingEdges) > 0 {
		fmt.Fprintf(r.w, "Ordering-only edges:\n")
		for _, edge := range ds.OrderingEdges {
			fmt.Fprintf(r.w, "  %s -> %s\n", edge.Parent, edge.Child)
		}
	}
}

// Datasets prints the registry table: one row per compiled-in dataset.
func (r *Renderer) Datasets(all []*dataset.Dataset) {
	fmt.Fprintf(r.w, "\n=== Registered Datasets ===\n\n")

	t := newTable("LEVEL", "DATASET", "UNITS", "REFERENCES", "DESCRIPTION").rightAlign(0, 2, 3)
	for _, ds := range all {
		t.addRow(
			plain(strconv.Itoa(ds.Level)),
			plain(ds.Name),
			plain(strconv.Itoa(len(ds.Units))),
			plain(strconv.Itoa(len(ds.References))),
			plain(ds.Description),
		)
	}
	t.render(r.w)
}

// History prints the recent-runs table from the journal.
func (r *Renderer) History(runs []loader.RunRecord) {
	fmt.Fprintf(r.w, "\n=== Recent Runs ===\n\n")
	if len(runs) == 0 {
		fmt.Fprintln(r.w, "No journaled runs found.")
		return
	}

	t := newTable("RUN", "DATASET", "STATUS", "STARTED", "DURATION", "LOADED", "SKIPPED", "FAILED", "ROWS").
		rightAlign(0, 5, 6, 7, 8)
	for _, run := range runs {
		duration := "-"
		if run.FinishedAt.Valid {
			duration = run.FinishedAt.Time.Sub(run.StartedAt).Round(time.Second).String()
		}
		t.addRow(
			plain(strconv.FormatInt(run.RunID, 10)),
			plain(fmt.Sprintf("%s (L%d)", run.Dataset, run.Level)),
			painted(runStatusPaint(run.Status), string(run.Status)),
			plain(run.StartedAt.Format(timeLayout)),
			plain(duration),
			plain(strconv.Itoa(run.UnitsLoaded)),
			plain(strconv.Itoa(run.UnitsSkipped)),
			plain(strconv.Itoa(run.UnitsFailed)),
			plain(humanize.Comma(run.RowsLoaded)),
		)
	}
	t.render(r.w)
}

// RunDetail prints one journaled run with its per-unit results.
func (r *Renderer) RunDetail(run *loader.RunRecord, units []loader.UnitRecord) {
	fmt.Fprintf(r.w, "\n=== Run %d ===\n\n", run.RunID)
	fmt.Fprintf(r.w, "Dataset: %s (level %d)\n", run.Dataset, run.Level)
	fmt.Fprintf(r.w, "Status: %s\n", runStatusPaint(run.Status)(string(run.Status)))
	fmt.Fprintf(r.w, "Started: %s\n", run.StartedAt.Format(timeLayout))
	if run.FinishedAt.Valid {
		fmt.Fprintf(r.w, "Finished: %s\n", run.FinishedAt.Time.Format(timeLayout))
	}
	if run.Truncated {
		fmt.Fprintf(r.w, "Truncated: yes\n")
	}
	fmt.Fprintln(r.w)

	if len(units) == 0 {
		fmt.Fprintln(r.w, "No unit records for this run.")
		return
	}

	t := newTable("UNIT", "STATUS", "LOADED", "TOTAL", "TIME", "NOTE").rightAlign(2, 3)
	for _, u := range units {
		note := u.Reason.String
		if u.Error.Valid {
			note = u.Error.String
		}
		t.addRow(
			plain(u.Unit),
			painted(unitStatusPaint(u.Status), string(u.Status)),
			plain(humanize.Comma(u.RowsLoaded)),
			plain(humanize.Comma(u.RowsTotal)),
			plain((time.Duration(u.DurationMS) * time.Millisecond).String()),
			plain(note),
		)
	}
	t.render(r.w)
}

func unitStatusPaint(s loader.UnitStatus) func(a ...any) string {
	switch s {
	case loader.StatusLoaded:
		return color.Green.Sprint
	case loader.StatusSkipped:
		return color.Yellow.Sprint
	case loader.StatusFailed:
		return color.Red.Sprint
	}
	return fmt.Sprint
}

func runStatusPaint(s loader.RunStatus) func(a ...any) string {
	switch s {
	case loader.RunStatusCompleted:
		return color.Green.Sprint
	case loader.RunStatusRunning:
		return color.Yellow.Sprint
	case loader.RunStatusInterrupted:
		return color.Red.Sprint
	}
	return fmt.Sprint
}
