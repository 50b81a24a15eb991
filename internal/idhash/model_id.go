package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"policy-shock-lab/internal/domain"
)

// ComputeModelID computes a deterministic model_id using SHA256.
// Formula: SHA256(model_type|frequency|outcome|rate|lags|controls|start|end)
// Returns hex-encoded hash (64 characters). Identical specs over identical
// sample windows hash to the same ID.
func ComputeModelID(spec domain.ModelSpec) string {
	lags := make([]string, len(spec.ShockLags))
	for i, lag := range spec.ShockLags {
		lags[i] = fmt.Sprintf("%d", lag)
	}

	data := fmt.Sprintf("%s|%s|%s|%s|%s|%s|%s|%s",
		spec.ModelType,
		spec.Frequency,
		spec.OutcomeSeries,
		spec.RateSeries,
		strings.Join(lags, ","),
		strings.Join(spec.Controls, ","),
		spec.SampleStart.Format("2006-01-02"),
		spec.SampleEnd.Format("2006-01-02"),
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
