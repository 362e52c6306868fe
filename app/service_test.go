package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/lddl/config"
	"github.com/kilianp07/lddl/core/factory"
	"github.com/kilianp07/lddl/core/model"
	"github.com/kilianp07/lddl/core/network"
	"github.com/kilianp07/lddl/core/runlog"
	"github.com/kilianp07/lddl/core/simulator"
	"github.com/kilianp07/lddl/infra/simulator/synthetic"
	"github.com/kilianp07/lddl/pkg/export"
)

func testConfig(t *testing.T, buses ...int) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{
		Scenario: model.ScenarioConfig{
			Shape:         model.ShapeMonoPeriodic,
			FreqPrimaryHz: 1,
			AmplitudeMW:   100,
			StartTimeS:    1,
			StopTimeS:     5,
		},
		Target:    config.TargetConfig{Buses: buses},
		Analysis:  config.AnalysisConfig{ThresholdMW: 1},
		Files:     config.FilesConfig{OutputDir: filepath.Join(dir, "out")},
		Simulator: factory.ModuleConfig{Type: "synthetic", Conf: map[string]any{"step_s": 0.01}},
		RunLog:    runlog.Config{Backend: "jsonl", Path: filepath.Join(dir, "runs.jsonl")},
	}
	cfg.SetDefaults()
	require.NoError(t, cfg.Validate())
	return cfg
}

func TestRunAll(t *testing.T) {
	cfg := testConfig(t, 1001)
	svc, err := New(cfg)
	require.NoError(t, err)

	results, err := svc.RunAll(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 1)
	res := results[0]
	require.NoError(t, res.Err)

	assert.Equal(t, 1001, res.Report.SourceBus)
	assert.NotEmpty(t, res.Report.Generators)
	assert.NotEmpty(t, res.Report.Loads)
	require.Len(t, res.Report.Summary, 3)

	for _, name := range []string{
		"LDDL_1001.csv",
		"LDDL_breakpoints_1001.csv",
		"Impacted_generators.csv",
		"Impacted_loads.csv",
		"Impacted_lines.csv",
		"LDDL_summary_1001.csv",
		"sys_bus_summary.csv",
		"sys_line_summary.csv",
		"LDDL_timeseries_1001.html",
		"voltage_deviations_1001.html",
		"LDDL_risk_map_1001.html",
	} {
		_, err := os.Stat(filepath.Join(cfg.Files.OutputDir, "Results_1001", name))
		assert.NoError(t, err, name)
	}

	f, err := os.Open(filepath.Join(res.OutputDir, "LDDL_1001.csv"))
	require.NoError(t, err)
	written, err := export.ReadChannels(f)
	require.NoError(t, f.Close())
	require.NoError(t, err)
	assert.Equal(t, res.Table.Time, written.Time)
	for i := 1; i < len(written.Time); i++ {
		require.Greater(t, written.Time[i], written.Time[i-1], "row %d", i)
	}
	require.NoError(t, svc.Close())

	store, err := runlog.Open(cfg.RunLog)
	require.NoError(t, err)
	defer store.Close()
	recs, err := store.Query(context.Background(), runlog.Query{})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, res.Run.RunID, recs[0].RunID)
	assert.Equal(t, model.ShapeMonoPeriodic, recs[0].Shape)
	assert.Empty(t, recs[0].Error)
}

func TestRunAll_ContinuesAfterFailure(t *testing.T) {
	cfg := testConfig(t, 9999, 1001)
	cfg.Files.SkipPlots = true
	svc, err := New(cfg)
	require.NoError(t, err)
	defer svc.Close()

	results, err := svc.RunAll(context.Background())
	require.Error(t, err)
	require.Len(t, results, 2)

	var unknown *network.UnknownBusError
	assert.True(t, errors.As(results[0].Err, &unknown))
	assert.NoError(t, results[1].Err)

	_, err = os.Stat(filepath.Join(cfg.Files.OutputDir, "Results_1001", "LDDL_timeseries_1001.html"))
	assert.True(t, os.IsNotExist(err))
}

func TestRunBus_EngineFault(t *testing.T) {
	cfg := testConfig(t, 1001)
	cfg.RunLog = runlog.Config{}
	svc, err := New(cfg)
	require.NoError(t, err)
	defer svc.Close()
	svc.newEngine = func(factory.ModuleConfig) (simulator.Engine, error) {
		return synthetic.NewWithCase(synthetic.Config{
			StepS:  0.01,
			Faults: []synthetic.Fault{{Op: "advance", Call: 3, Status: 7}},
		}, synthetic.DefaultCase()), nil
	}

	res := svc.RunBus(context.Background(), 1001)
	require.Error(t, res.Err)
	assert.Contains(t, res.Err.Error(), "advance")
	_, err = os.Stat(filepath.Join(res.OutputDir, "Impacted_generators.csv"))
	assert.True(t, os.IsNotExist(err))
}

func TestRunAll_NoTarget(t *testing.T) {
	svc, err := New(testConfig(t))
	require.NoError(t, err)
	defer svc.Close()
	_, err = svc.RunAll(context.Background())
	require.Error(t, err)
}
