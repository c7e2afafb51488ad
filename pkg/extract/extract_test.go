package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"  Cholesterol -  Total ", "cholesterol - total"},
		{"HDL\tCholesterol", "hdl cholesterol"},
		{"wbc", "wbc"},
	}

	for _, tt := range tests {
		if got := CleanName(tt.input); got != tt.expected {
			t.Errorf("CleanName(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestValidName(t *testing.T) {
	tests := []struct {
		name     string
		expected bool
	}{
		{"hdl cholesterol", true},
		{"blood sugar fasting", true},
		{"cholesterol", false},
		{"high normal", false},
		{"high borderline normal", false},
	}

	for _, tt := range tests {
		if got := validName(tt.name); got != tt.expected {
			t.Errorf("validName(%q) = %v, want %v", tt.name, got, tt.expected)
		}
	}
}

func TestGenericStrategyExtract(t *testing.T) {
	text := "Serum Creatinine : 1.1 mg/dL Blood Sugar Fasting : 95 mg/dL"

	res, err := NewGenericStrategy().Extract(text)
	require.NoError(t, err)
	require.Len(t, res.Candidates, 2)

	assert.Equal(t, "serum creatinine", res.Candidates[0].Name)
	assert.Equal(t, "1.1", res.Candidates[0].Value)
	assert.Equal(t, "mg/dL", res.Candidates[0].Unit)

	assert.Equal(t, "blood sugar fasting", res.Candidates[1].Name)
	assert.Equal(t, "95", res.Candidates[1].Value)
}

func TestGenericStrategyDropsGenericAndSingleWordNames(t *testing.T) {
	text := "High Normal : 42 mg/dL Cholesterol : 180 mg/dL"

	res, err := NewGenericStrategy().Extract(text)
	require.NoError(t, err)

	assert.Empty(t, res.Candidates)
	assert.Equal(t, 2, res.Dropped)
}

func TestGenericStrategyDeduplicatesWithinDocument(t *testing.T) {
	text := "SERUM CREATININE : 1.1 mg/dL repeat panel Serum  Creatinine : 1.2 mg/dL"

	res, err := NewGenericStrategy().Extract(text)
	require.NoError(t, err)

	count := 0
	for _, c := range res.Candidates {
		if c.Name == "serum creatinine" {
			count++
		}
	}
	assert.Equal(t, 1, count, "equivalent names must collapse to one candidate")
}

func TestTabularStrategyExtract(t *testing.T) {
	text := `Hemoglobin : 13.2 g/dL (12-16) [HPLC]
WBC : 7600 /uL
Platelet Count | 250000 /uL
Remarks :
Borderline :  1.5 x`

	res, err := NewTabularStrategy().Extract(text)
	require.NoError(t, err)
	require.Len(t, res.Candidates, 3)

	hb := res.Candidates[0]
	assert.Equal(t, "hemoglobin", hb.Name)
	assert.Equal(t, "13.2", hb.Value)
	assert.Equal(t, "g/dL", hb.Unit)
	assert.Equal(t, "12-16", hb.ReferenceRange)
	assert.Equal(t, "HPLC", hb.Method)

	wbc := res.Candidates[1]
	assert.Equal(t, "wbc", wbc.Name)
	assert.Equal(t, "7600", wbc.Value)
	assert.Equal(t, "/uL", wbc.Unit)

	// "Remarks :" has no value, "Borderline" is a bare range adjective.
	assert.Equal(t, 2, res.Dropped)
}

func TestRegistrySelect(t *testing.T) {
	generic := NewGenericStrategy()
	tabular := NewTabularStrategy()

	reg := NewRegistry(generic)
	reg.Register("tabular", tabular)

	assert.Equal(t, tabular, reg.Select("Tabular"))
	assert.Equal(t, generic, reg.Select(""))
	assert.Equal(t, generic, reg.Select("unknown-vendor"))
}
