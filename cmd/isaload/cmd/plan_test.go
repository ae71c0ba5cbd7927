package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mesdata/isaload/internal/dataset"
)

func TestPlanCommandStructure(t *testing.T) {
	assert.NotNil(t, planCmd)
	assert.Equal(t, "plan", planCmd.Use)
	assert.NotEmpty(t, planCmd.Short)
	assert.NotEmpty(t, planCmd.Long)
	assert.NotNil(t, planCmd.RunE)
}

func TestPlanCommandFlags(t *testing.T) {
	flags := planCmd.Flags()

	// Check level flag exists and is required
	levelFlag := flags.Lookup("level")
	assert.NotNil(t, levelFlag)
	assert.Equal(t, "l", levelFlag.Shorthand)
	assert.Equal(t, "0", levelFlag.DefValue)

	requiredAnnotation := levelFlag.Annotations["cobra_annotation_bash_completion_one_required_flag"]
	assert.NotNil(t, requiredAnnotation)
}

func TestPlanIsAddedToRoot(t *testing.T) {
	found := false
	for _, cmd := range rootCmd.Commands() {
		if cmd.Name() == "plan" {
			found = true
			break
		}
	}
	assert.True(t, found, "plan command should be added to root command")
}

func TestPlanCommandExample(t *testing.T) {
	// Verify the command has example usage documentation
	assert.Contains(t, planCmd.Long, "Example:")
	assert.Contains(t, planCmd.Long, "isaload plan")
}

func TestGenerateMermaidSyntax(t *testing.T) {
	tests := []struct {
		name       string
		level      int
		want       []string
		wantAbsent []string
	}{
		{
			name:  "level 1 process sensing",
			level: 1,
			want: []string{
				"graph TD",
				"sensors",
				"actuators",
				"sensors -->|sensor_id| sensor_readings",
				"actuators -->|actuator_id| actuator_commands",
				"sensors -->|process_variable_sensor_id| control_loops",
				"sensors -->|order| device_diagnostics",
				"actuators -->|order| device_diagnostics",
			},
		},
		{
			name:  "level 2 skips self references",
			level: 2,
			want: []string{
				"graph TD",
				"facilities -->|facility_id| process_areas",
				"process_areas -->|area_id| equipment",
				"recipes -->|recipe_id| batch_steps",
				"batches -->|batch_id| batch_execution",
			},
			wantAbsent: []string{
				"parent_facility_id",
				"parent_area_id",
				"parent_equipment_id",
				"parent_batch_id",
			},
		},
		{
			name:  "level 3 ordering edges",
			level: 3,
			want: []string{
				"work_orders -->|work_order_id| material_transactions",
				"material_lots -->|lot_id| quality_tests",
				"work_orders -->|order| resource_utilization",
				"material_lots -->|order| resource_utilization",
			},
			wantAbsent: []string{
				"parent_lot_id",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ds, err := dataset.ByLevel(tt.level)
			assert.NoError(t, err)

			syntax := generateMermaidSyntax(ds)

			for _, want := range tt.want {
				assert.Contains(t, syntax, want)
			}
			for _, absent := range tt.wantAbsent {
				assert.NotContains(t, syntax, absent)
			}
		})
	}
}

func TestGenerateMermaidSyntaxDeclaresAllUnits(t *testing.T) {
	// Every unit must appear as a node declaration so parentless relations
	// still show up as roots in the rendered tree.
	for _, ds := range dataset.Levels() {
		syntax := generateMermaidSyntax(ds)
		for _, u := range ds.Units {
			assert.True(t, strings.Contains(syntax, "    "+u.Name+"\n"),
				"dataset %s should declare unit %s", ds.Name, u.Name)
		}
	}
}

func TestRunPlan(t *testing.T) {
	// Save original value and restore after test
	originalPlanLevel := planLevel
	defer func() {
		planLevel = originalPlanLevel
		resetOutputWriter()
	}()

	var buf bytes.Buffer
	setOutputWriter(&buf)

	planLevel = 1
	err := runPlan(planCmd, []string{})
	assert.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, "=== Dependency Plan ===")
	assert.Contains(t, output, "Dataset: level1 (level 1)")
	assert.Contains(t, output, "Load Order (parent-first):")
	assert.Contains(t, output, "Truncate Order (child-first):")
	assert.Contains(t, output, "References:")
	assert.Contains(t, output, "sensors")
	assert.Contains(t, output, "sensor_readings")
}

func TestRunPlanInvalidLevel(t *testing.T) {
	originalPlanLevel := planLevel
	defer func() {
		planLevel = originalPlanLevel
	}()

	planLevel = 42
	err := runPlan(planCmd, []string{})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown dataset level")
}

// ============================================================================
// Phase 3: CLI Execution Tests
// ============================================================================

// TestPlanCmd_Execute_MissingLevelFlag tests execution without required --level flag
func TestPlanCmd_Execute_MissingLevelFlag(t *testing.T) {
	origCfgFile := cfgFile
	defer func() {
		cfgFile = origCfgFile
		rootCmd.SetArgs(nil)
	}()

	rootCmd.SetArgs([]string{"plan"})
	err := rootCmd.Execute()
	assert.Error(t, err)
}

// TestPlanCmd_Execute_ValidLevel tests a full plan run through the CLI
func TestPlanCmd_Execute_ValidLevel(t *testing.T) {
	origCfgFile := cfgFile
	origPlanLevel := planLevel
	defer func() {
		cfgFile = origCfgFile
		planLevel = origPlanLevel
		rootCmd.SetArgs(nil)
		resetOutputWriter()
	}()

	var buf bytes.Buffer
	setOutputWriter(&buf)

	rootCmd.SetArgs([]string{"plan", "--level", "3"})
	err := rootCmd.Execute()
	assert.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, "Dataset: level3 (level 3)")
	assert.Contains(t, output, "work_orders")
	assert.Contains(t, output, "material_lots")
}
