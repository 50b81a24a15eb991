package idhash

import (
	"testing"
	"time"

	"policy-shock-lab/internal/domain"
)

func baseSpec() domain.ModelSpec {
	return domain.ModelSpec{
		ModelType:     domain.ModelTypeOLS,
		Frequency:     domain.FrequencyDaily,
		OutcomeSeries: "SP500_RETURN",
		RateSeries:    "DFF",
		ShockLags:     []int{0, 1, 2},
		Controls:      []string{domain.ControlLaggedOutcome},
		SampleStart:   domain.Date(2020, 1, 2),
		SampleEnd:     domain.Date(2025, 6, 30),
	}
}

func TestComputeModelID_Deterministic(t *testing.T) {
	spec := baseSpec()

	first := ComputeModelID(spec)
	if len(first) != 64 {
		t.Errorf("ComputeModelID() length = %d, want 64", len(first))
	}

	for i := 0; i < 10; i++ {
		if got := ComputeModelID(spec); got != first {
			t.Errorf("ComputeModelID() not deterministic: %s != %s", got, first)
		}
	}
}

func TestComputeModelID_DifferentInputs(t *testing.T) {
	base := ComputeModelID(baseSpec())

	spec := baseSpec()
	spec.ModelType = domain.ModelTypePanelFE
	if ComputeModelID(spec) == base {
		t.Error("different model type should produce different hash")
	}

	spec = baseSpec()
	spec.ShockLags = []int{0, 1}
	if ComputeModelID(spec) == base {
		t.Error("different lag structure should produce different hash")
	}

	spec = baseSpec()
	spec.SampleEnd = spec.SampleEnd.Add(24 * time.Hour)
	if ComputeModelID(spec) == base {
		t.Error("different sample window should produce different hash")
	}
}
