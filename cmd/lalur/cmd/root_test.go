package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sconzo/lalur-sub001/internal/exporter"
	"github.com/Sconzo/lalur-sub001/internal/importer"
	"github.com/Sconzo/lalur-sub001/internal/periodlock"
	"github.com/Sconzo/lalur-sub001/internal/shared"
)

type stubImporter struct {
	kind   string
	body   string
	opts   importer.Options
	report importer.Report
}

func (s *stubImporter) Run(ctx context.Context, kind string, src io.Reader, opts importer.Options) (importer.Report, error) {
	data, err := io.ReadAll(src)
	if err != nil {
		return importer.Report{}, err
	}
	s.kind, s.body, s.opts = kind, string(data), opts
	return s.report, nil
}

type stubExporter struct {
	q   exporter.Query
	err error
}

func (s *stubExporter) Export(ctx context.Context, w io.Writer, kind string, q exporter.Query) (exporter.Result, error) {
	s.q = q
	if s.err != nil {
		_, _ = io.WriteString(w, "partial")
		return exporter.Result{}, s.err
	}
	_, _ = io.WriteString(w, "header\r\nrow\r\n")
	return exporter.Result{Kind: kind, Rows: 1}, nil
}

type stubCutoffs struct {
	in    periodlock.AdvanceInput
	actor int64
}

func (s *stubCutoffs) AdvanceCutoff(ctx context.Context, in periodlock.AdvanceInput) (periodlock.Change, error) {
	s.in = in
	s.actor = shared.ActorFromContext(ctx)
	return periodlock.Change{CompanyID: in.CompanyID, New: in.NewCutoff}, nil
}

type harness struct {
	imports *stubImporter
	exports *stubExporter
	cutoffs *stubCutoffs
	closed  int
}

func newHarness() *harness {
	return &harness{
		imports: &stubImporter{report: importer.Report{Kind: "ledger", DryRun: true, Success: true, TotalLines: 2, ProcessedLines: 2}},
		exports: &stubExporter{},
		cutoffs: &stubCutoffs{},
	}
}

func (h *harness) run(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	root := NewRootCmd(func(context.Context) (*Runtime, error) {
		return &Runtime{Imports: h.imports, Exports: h.exports, Cutoffs: h.cutoffs, Close: func() { h.closed++ }}, nil
	})
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func TestImportDefaultsToDryRun(t *testing.T) {
	h := newHarness()
	path := filepath.Join(t.TempDir(), "ledger.csv")
	require.NoError(t, os.WriteFile(path, []byte("a;b\n1;2\n"), 0o644))

	out, _, err := h.run(t, "", "import", "ledger", path, "--company", "7", "--fiscal-year", "2024")
	require.NoError(t, err)
	assert.Equal(t, "ledger", h.imports.kind)
	assert.Equal(t, "a;b\n1;2\n", h.imports.body)
	assert.Equal(t, importer.Options{CompanyID: 7, FiscalYear: 2024, DryRun: true}, h.imports.opts)
	assert.Equal(t, 1, h.closed)

	var report importer.Report
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, 2, report.ProcessedLines)
}

func TestImportApplyFromStdinFailsOnSkippedLines(t *testing.T) {
	h := newHarness()
	h.imports.report = importer.Report{Kind: "ledger", TotalLines: 3, ProcessedLines: 2, SkippedLines: 1}

	_, _, err := h.run(t, "x;y\n", "import", "ledger", "-", "--company", "7", "--apply")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 3 lines skipped")
	assert.False(t, h.imports.opts.DryRun)
	assert.Equal(t, "x;y\n", h.imports.body)
}

func TestImportRequiresCompany(t *testing.T) {
	h := newHarness()
	_, _, err := h.run(t, "", "import", "ledger", "-")
	require.Error(t, err)
	assert.Zero(t, h.closed)
}

func TestExportToFile(t *testing.T) {
	h := newHarness()
	path := filepath.Join(t.TempDir(), "out.csv")

	_, stderr, err := h.run(t, "", "export", "ledger", "--company", "7", "--fiscal-year", "2024",
		"--from", "2024-01-01", "--to", "2024-03-31", "-o", path)
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "header\r\nrow\r\n", string(data))
	assert.Contains(t, stderr, "exported 1 ledger rows")
	assert.Equal(t, time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC), h.exports.q.To)
}

func TestExportRemovesFileOnError(t *testing.T) {
	h := newHarness()
	h.exports.err = shared.ErrNotFound
	path := filepath.Join(t.TempDir(), "out.csv")

	_, _, err := h.run(t, "", "export", "accounts", "--company", "7", "--fiscal-year", "2024", "-o", path)
	assert.ErrorIs(t, err, shared.ErrNotFound)
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestExportRejectsInvertedRange(t *testing.T) {
	h := newHarness()
	_, _, err := h.run(t, "", "export", "ledger", "--company", "7", "--fiscal-year", "2024",
		"--from", "2024-03-01", "--to", "2024-01-01")
	require.Error(t, err)
	assert.Zero(t, h.closed)
}

func TestCutoffAdvance(t *testing.T) {
	h := newHarness()
	out, _, err := h.run(t, "", "cutoff", "advance", "--company", "7", "--date", "2024-03-31", "--actor", "12")
	require.NoError(t, err)
	assert.Equal(t, "company 7 cutoff none -> 2024-03-31\n", out)
	assert.Equal(t, int64(12), h.cutoffs.in.ActorID)
	assert.Equal(t, int64(12), h.cutoffs.actor)
	assert.Equal(t, time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC), h.cutoffs.in.NewCutoff)
}
