package loader

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesdata/isaload/internal/logger"
)

func TestNewEstimator(t *testing.T) {
	est := NewEstimator("/data/level1", logger.NewDefault())

	require.NotNil(t, est)
	assert.Equal(t, "/data/level1", est.dataDir)
	assert.NotNil(t, est.logger)
}

func TestNewEstimator_NilLogger(t *testing.T) {
	est := NewEstimator("/data/level1", nil)

	require.NotNil(t, est)
	assert.NotNil(t, est.logger) // Should create default logger
}

func TestEstimator_Estimate_Success(t *testing.T) {
	dir := t.TempDir()
	ds := testDataset(t, 1)

	rowCounts := map[string]int{
		"sensors":            10,
		"actuators":          5,
		"sensor_readings":    100,
		"actuator_commands":  50,
		"control_loops":      3,
		"device_diagnostics": 7,
	}
	var wantBytes int64
	for unit, rows := range rowCounts {
		path := writeCSV(t, dir, unit, rows)
		info, err := os.Stat(path)
		require.NoError(t, err)
		wantBytes += info.Size()
	}

	est := NewEstimator(dir, logger.NewDefault())
	result, err := est.Estimate(context.Background(), ds)

	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, "level1", result.Dataset)
	assert.Equal(t, 1, result.Level)
	assert.Equal(t, 0, result.Missing)
	assert.Equal(t, int64(175), result.TotalRows)
	assert.Equal(t, wantBytes, result.TotalBytes)

	require.Len(t, result.Units, 6)
	assert.Equal(t, result.Order, unitNamesOf(result.Units))
	for _, ue := range result.Units {
		assert.True(t, ue.Present, "unit %s should be present", ue.Unit)
		assert.Equal(t, int64(rowCounts[ue.Unit]), ue.DataRows, "unit %s row count", ue.Unit)
	}
}

func TestEstimator_Estimate_MissingFiles(t *testing.T) {
	dir := t.TempDir()
	ds := testDataset(t, 1)

	writeCSV(t, dir, "sensors", 4)
	writeCSV(t, dir, "actuators", 2)

	est := NewEstimator(dir, logger.NewDefault())
	result, err := est.Estimate(context.Background(), ds)

	require.NoError(t, err)
	assert.Equal(t, 4, result.Missing)
	assert.Equal(t, int64(6), result.TotalRows)

	for _, ue := range result.Units {
		switch ue.Unit {
		case "sensors", "actuators":
			assert.True(t, ue.Present, "unit %s should be present", ue.Unit)
		default:
			assert.False(t, ue.Present, "unit %s should be missing", ue.Unit)
			assert.Equal(t, int64(0), ue.FileBytes)
		}
	}
}

func TestEstimator_Estimate_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	est := NewEstimator(t.TempDir(), logger.NewDefault())
	_, err := est.Estimate(ctx, testDataset(t, 1))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "estimate interrupted")
}

func unitNamesOf(units []UnitEstimate) []string {
	names := make([]string, len(units))
	for i, u := range units {
		names[i] = u.Unit
	}
	return names
}

func TestCountLines(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  int64
	}{
		{name: "Empty", input: "", want: 0},
		{name: "Single terminated line", input: "a\n", want: 1},
		{name: "Two terminated lines", input: "a\nb\n", want: 2},
		{name: "Unterminated final line", input: "a\nb", want: 2},
		{name: "Only a newline", input: "\n", want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := countLines(strings.NewReader(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCountDataRows_HeaderOnly(t *testing.T) {
	dir := t.TempDir()
	path := writeCSV(t, dir, "sensors", 0)

	est := NewEstimator(dir, logger.NewDefault())
	rows, err := est.countDataRows(path)

	require.NoError(t, err)
	assert.Equal(t, int64(0), rows)
}
