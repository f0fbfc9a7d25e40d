package temporal

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeDropsCollinearLinearSample(t *testing.T) {
	t.Parallel()

	samples := []Instant{sample(0, 0), sample(5, 50), sample(10, 100)}
	seq, err := NewSequence(samples, true, true, Linear)
	require.NoError(t, err)

	assert.Equal(t, 2, seq.NumInstants(), "the collinear midpoint should be dropped on construction")
}

func TestNormalizeKeepsDivergingSample(t *testing.T) {
	t.Parallel()

	samples := []Instant{sample(0, 0), sample(5, 999), sample(10, 100)}
	seq, err := NewSequence(samples, true, true, Linear)
	require.NoError(t, err)

	assert.Equal(t, 3, seq.NumInstants(), "a value that breaks the line must be kept")
}

func TestNormalizeDropsRepeatedStepSample(t *testing.T) {
	t.Parallel()

	samples := []Instant{sample(0, 7), sample(5, 7), sample(10, 7)}
	seq, err := NewSequence(samples, true, true, Step)
	require.NoError(t, err)

	assert.Equal(t, 2, seq.NumInstants())
}

func TestNormalizeIsIdempotent(t *testing.T) {
	t.Parallel()

	samples := []Instant{sample(0, 0), sample(5, 50), sample(10, 100)}
	seq, err := NewSequence(samples, true, true, Linear)
	require.NoError(t, err)

	once := Normalize(seq)
	twice := Normalize(once)
	assert.Equal(t, once.NumInstants(), twice.NumInstants())
}

// TestNormalizeSurvivingSamplesMatchExactly diffs the surviving endpoints
// field by field rather than just counting them, the way the pack's own
// deep-equality checks compare whole structs instead of individual fields.
func TestNormalizeSurvivingSamplesMatchExactly(t *testing.T) {
	t.Parallel()

	samples := []Instant{sample(0, 0), sample(5, 50), sample(10, 100)}
	seq, err := NewSequence(samples, true, true, Linear)
	require.NoError(t, err)

	want := []Instant{sample(0, 0), sample(10, 100)}
	got := make([]Instant, seq.NumInstants())
	for i := range got {
		got[i] = seq.InstantAt(i)
	}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("surviving samples mismatch (-want +got):\n%s", diff)
	}
}
