package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync/atomic"
	"time"
)

// Counter for the fallback when crypto/rand is unavailable
var idCounter uint64

// GenerateExperimentID generates an experiment ID with a timestamp prefix
func GenerateExperimentID() string {
	timestamp := time.Now().Format("20060102-150405")
	b := make([]byte, 4)
	_, err := rand.Read(b)
	if err != nil {
		count := atomic.AddUint64(&idCounter, 1)
		return fmt.Sprintf("exp-%s-%x", timestamp, count)
	}
	return fmt.Sprintf("exp-%s-%s", timestamp, hex.EncodeToString(b))
}

// GenerateTrialID generates a trial ID scoped to an experiment
func GenerateTrialID(experimentID string, seq int) string {
	return fmt.Sprintf("%s-trial-%04d", experimentID, seq)
}
