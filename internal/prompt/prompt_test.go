package prompt

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/m2tx/margin_agent/assets"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedPersona(t *testing.T) {
	p, err := Parse(assets.Persona)
	require.NoError(t, err)

	instruction := p.SystemInstruction()
	assert.Contains(t, instruction, "You are HVAC Margin Rescue Agent.")
	assert.Contains(t, instruction, "1. scan:")
	assert.Contains(t, instruction, "2. investigate:")
	assert.Contains(t, instruction, "3. act:")
	assert.Contains(t, instruction, "4. converse:")
	assert.Contains(t, instruction, "did not come from a tool result")
	assert.Contains(t, instruction, "owner, an urgency and its dollar impact")
	assert.Contains(t, instruction, "Style: plain-English, concise, financially actionable")
}

func TestParse_Invalid(t *testing.T) {
	_, err := Parse([]byte("name: [unterminated"))
	assert.ErrorContains(t, err, "parse persona")

	_, err = Parse([]byte("style: terse\n"))
	require.Error(t, err)
	assert.ErrorContains(t, err, "name is required")
	assert.ErrorContains(t, err, "mission is required")
	assert.ErrorContains(t, err, "at least one phase")
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "persona.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
name: Test Agent
mission: Keep margins safe.
phases:
  - name: scan
    instruction: Look around.
`), 0o600))

	p, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "You are Test Agent.\nKeep margins safe.\n\nWork in this loop:\n1. scan: Look around.", p.SystemInstruction())

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
