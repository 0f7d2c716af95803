package prove

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFieldElementDecimalAndHex(t *testing.T) {
	dec, err := ParseFieldElement("12345")
	require.NoError(t, err)
	assert.Equal(t, "12345", dec.String())

	hex, err := ParseFieldElement("0x3039")
	require.NoError(t, err)
	assert.Equal(t, "12345", hex.String())
}

func TestFieldElementJSONRoundTrip(t *testing.T) {
	fe := FieldElementFromInt64(42)
	data, err := json.Marshal(fe)
	require.NoError(t, err)
	assert.Equal(t, `"42"`, string(data))

	var back FieldElement
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, fe.String(), back.String())
}

func TestParseFieldElementInvalid(t *testing.T) {
	_, err := ParseFieldElement("not-a-number")
	assert.Error(t, err)
}
