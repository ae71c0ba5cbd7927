package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateCommandStructure(t *testing.T) {
	assert.NotNil(t, validateCmd)
	assert.Equal(t, "validate", validateCmd.Use)
	assert.NotEmpty(t, validateCmd.Short)
	assert.NotEmpty(t, validateCmd.Long)
	assert.NotNil(t, validateCmd.RunE)
}

func TestValidateCommandFlags(t *testing.T) {
	flags := validateCmd.Flags()

	// Level flag exists but is optional: default is all levels
	levelFlag := flags.Lookup("level")
	assert.NotNil(t, levelFlag)
	assert.Equal(t, "l", levelFlag.Shorthand)
	assert.Equal(t, "0", levelFlag.DefValue)

	requiredAnnotation := levelFlag.Annotations["cobra_annotation_bash_completion_one_required_flag"]
	assert.Nil(t, requiredAnnotation, "level should be optional for validate")
}

func TestValidateIsAddedToRoot(t *testing.T) {
	found := false
	for _, cmd := range rootCmd.Commands() {
		if cmd.Name() == "validate" {
			found = true
			break
		}
	}
	assert.True(t, found, "validate command should be added to root command")
}

func TestValidateCommandExample(t *testing.T) {
	// Verify the command has example usage documentation
	assert.Contains(t, validateCmd.Long, "Example:")
	assert.Contains(t, validateCmd.Long, "isaload validate")
}

func TestValidateCommandChecks(t *testing.T) {
	// Verify the command documents the validation checks
	doc := validateCmd.Long
	assert.Contains(t, doc, "Checks performed")
	assert.Contains(t, doc, "Configuration")
	assert.Contains(t, doc, "registry")
	assert.Contains(t, doc, "Load order")
	assert.Contains(t, doc, "artifact presence")
}

func TestValidateCommandOffline(t *testing.T) {
	// Verify the command documents that it never contacts the database
	assert.Contains(t, validateCmd.Long, "without contacting the")
}

// ============================================================================
// Phase 3: CLI Execution Tests
// ============================================================================

// TestValidateCmd_Execute_MissingConfig tests that a missing config file
// fails validation
func TestValidateCmd_Execute_MissingConfig(t *testing.T) {
	origCfgFile := cfgFile
	defer func() {
		cfgFile = origCfgFile
		rootCmd.SetArgs(nil)
	}()

	rootCmd.SetArgs([]string{"validate", "--config", "/tmp/nonexistent_isaload_config.yaml"})
	err := rootCmd.Execute()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
}

// TestValidateCmd_Execute_ValidConfig tests that a valid config passes even
// with every artifact missing
func TestValidateCmd_Execute_ValidConfig(t *testing.T) {
	origCfgFile := cfgFile
	defer func() {
		cfgFile = origCfgFile
		rootCmd.SetArgs(nil)
	}()

	configFile := writeTestConfig(t)

	rootCmd.SetArgs([]string{"validate", "--config", configFile})
	err := rootCmd.Execute()
	assert.NoError(t, err)
}

// TestValidateCmd_Execute_InvalidLevel tests execution with a level outside
// the registry
func TestValidateCmd_Execute_InvalidLevel(t *testing.T) {
	origCfgFile := cfgFile
	origValidateLevel := validateLevel
	defer func() {
		cfgFile = origCfgFile
		validateLevel = origValidateLevel
		rootCmd.SetArgs(nil)
	}()

	configFile := writeTestConfig(t)

	rootCmd.SetArgs([]string{"validate", "--level", "9", "--config", configFile})
	err := rootCmd.Execute()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown dataset level")
}
