package masking

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskPersonalData(t *testing.T) {
	out := MaskPersonalData(map[string]any{
		"email":           "anna.nowak@example.com",
		"contract_number": "K/2024/17",
		"holder": map[string]any{
			"phone": "+48 600 100 200",
		},
	})

	assert.Equal(t, "****com", out["email"])
	assert.Equal(t, "K/2024/17", out["contract_number"])
	assert.Equal(t, "****200", out["holder"].(map[string]any)["phone"])
}

func TestMaskValueShortInput(t *testing.T) {
	assert.Equal(t, "****", MaskValue("abc"))
	assert.Equal(t, "", MaskValue("  "))
	assert.Nil(t, MaskPersonalData(nil))
}
