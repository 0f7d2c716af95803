package prove

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrepareInput(t *testing.T) {
	assert.Equal(t, "[]", PrepareInput(nil))
	assert.Equal(t, "[1]", PrepareInput([]FieldElement{FieldElementFromInt64(1)}))
	assert.Equal(t, "[1 2 3 4]", PrepareInput([]FieldElement{
		FieldElementFromInt64(1),
		FieldElementFromInt64(2),
		FieldElementFromInt64(3),
		FieldElementFromInt64(4),
	}))
}
