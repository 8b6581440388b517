package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kayf-project/retriever/internal/core/domain"
)

func item(sig, server string, score float64, ts time.Time) domain.ResultItem {
	return domain.ResultItem{Signature: sig, ServerID: server, Score: score, Timestamp: ts}
}

func TestMergePrefersHigherScore(t *testing.T) {
	now := time.Now()
	merged := mergeResultItems([][]domain.ResultItem{
		{item("sig-a", "s1", 0.5, now)},
		{item("sig-a", "s2", 0.9, now.Add(-time.Hour))},
	}, 10)

	require.Len(t, merged, 1)
	assert.Equal(t, "s2", merged[0].ServerID)
	assert.Equal(t, 0.9, merged[0].Score)
}

func TestMergeTieBreaksOnNewerTimestamp(t *testing.T) {
	older := time.Now().Add(-time.Hour)
	newer := time.Now()
	merged := mergeResultItems([][]domain.ResultItem{
		{item("sig-a", "s1", 0.5, older)},
		{item("sig-a", "s2", 0.5, newer)},
	}, 10)

	require.Len(t, merged, 1)
	assert.Equal(t, "s2", merged[0].ServerID)
}

func TestMergeOrdersByScoreAndTruncates(t *testing.T) {
	now := time.Now()
	merged := mergeResultItems([][]domain.ResultItem{
		{item("sig-a", "s1", 0.2, now), item("sig-b", "s1", 0.8, now)},
		{item("sig-c", "s2", 0.5, now), item("sig-d", "s2", 0.9, now)},
	}, 3)

	require.Len(t, merged, 3)
	assert.Equal(t, "sig-d", merged[0].Signature)
	assert.Equal(t, "sig-b", merged[1].Signature)
	assert.Equal(t, "sig-c", merged[2].Signature)
}

func TestMergeProvenanceOrdering(t *testing.T) {
	provenance := mergeProvenance("s1", true, [][]string{
		{"s2", "s3"},
		{"s3", "s4"},
	})
	assert.Equal(t, []string{"s1", "s2", "s3", "s4"}, provenance)

	// No local contribution leaves the entry server out.
	provenance = mergeProvenance("s1", false, [][]string{{"s2"}})
	assert.Equal(t, []string{"s2"}, provenance)
}
