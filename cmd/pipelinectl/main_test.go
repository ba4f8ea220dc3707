package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	definitionPath = ""
	jsonOutput = false
	validateFrom, validateTo, validatePhone, validateEmail = "", "", "", ""
	validateOfferSent = false
	t.Setenv("PIPELINE_CONFIG_PATH", "")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestCheckConfigDefault(t *testing.T) {
	out, err := run(t, "check-config")
	require.NoError(t, err)
	assert.Contains(t, out, "offer_sent")
	assert.Contains(t, out, "6 stages")
}

func TestCheckConfigJSON(t *testing.T) {
	out, err := run(t, "check-config", "--json")
	require.NoError(t, err)

	var summaries []stageSummary
	require.NoError(t, json.Unmarshal([]byte(out), &summaries))
	require.NotEmpty(t, summaries)
	assert.Equal(t, "lead", summaries[0].Name)
}

func TestCheckConfigRejectsBrokenDefinition(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("stages:\n  - name: lead\n    category: active\ntransitions:\n  - from: lead\n    to: [nowhere]\n"), 0o600))

	_, err := run(t, "check-config", "--definition", path)
	assert.Error(t, err)
}

func TestValidateRejected(t *testing.T) {
	out, err := run(t, "validate", "--from", "needs_analysis", "--to", "offer_sent")
	assert.ErrorIs(t, err, errTransitionRejected)
	assert.Contains(t, out, "rejected")
}

func TestValidateAllowed(t *testing.T) {
	out, err := run(t, "validate", "--from", "needs_analysis", "--to", "offer_sent", "--offer-sent")
	require.NoError(t, err)
	assert.Contains(t, out, "allowed")
}

func TestValidateUnknownStage(t *testing.T) {
	_, err := run(t, "validate", "--from", "nowhere", "--to", "lead")
	require.Error(t, err)
	assert.NotErrorIs(t, err, errTransitionRejected)
}
