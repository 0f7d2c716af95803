package prove

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseResultSucceedsWithPrecomputedFields(t *testing.T) {
	raw := `{"program_hash": "1", "program_output": ["2","3"], "program_output_hash": "4", "serialized_proof": ["5"]}`
	result, ok := ParseResult(raw)
	assert.True(t, ok)
	assert.Equal(t, "1", result.ProgramHash.String())
	assert.Equal(t, "4", result.ProgramOutputHash.String())
	assert.Len(t, result.ProgramOutput, 2)
}

func TestParseResultFailsWithoutPrecomputedFields(t *testing.T) {
	raw := `{"some_other_field": true}`
	_, ok := ParseResult(raw)
	assert.False(t, ok)
}

func TestParseResultFailsOnMalformedJSON(t *testing.T) {
	_, ok := ParseResult("not json")
	assert.False(t, ok)
}
