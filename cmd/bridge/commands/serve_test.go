package commands

import (
	"testing"
	"time"

	"github.com/nexus-wa-bridge/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestWriteTimeout_OutlastsBatchDeadline(t *testing.T) {
	for _, batch := range []time.Duration{30 * time.Second, 5 * time.Minute, 20 * time.Minute} {
		got := writeTimeout(config.Verification{BatchTimeout: batch})
		assert.Greater(t, got, batch)
	}
}

func TestWriteTimeout_DefaultsFitAFullBatch(t *testing.T) {
	v := config.Load().Verification

	// Pacing alone for a full batch, plus one answered query per entry at 200ms.
	pacing := time.Duration(v.MaxBatch/v.PaceEvery) * v.PaceDelay
	typical := pacing + time.Duration(v.MaxBatch)*200*time.Millisecond

	assert.Greater(t, v.BatchTimeout, typical)
	assert.Greater(t, writeTimeout(v), v.BatchTimeout)
}
