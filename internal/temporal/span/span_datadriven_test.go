package span

import (
	"fmt"
	"testing"

	"github.com/cockroachdb/datadriven"
	"github.com/stretchr/testify/require"

	"github.com/dogwalking/mobility-core/internal/temporal/basetype"
)

// TestDataDrivenPredicates exercises Span construction and the pairwise
// predicates (Overlaps, Adjacent, Contains, StrictlyLeft/Right) against
// scripted int64 spans, the same datadriven.Walk/RunTest/ScanArgs shape
// used elsewhere in this stack to drive scripted input sequences.
func TestDataDrivenPredicates(t *testing.T) {
	datadriven.Walk(t, "testdata", func(t *testing.T, path string) {
		spans := make(map[string]Span)

		datadriven.RunTest(t, path, func(t *testing.T, d *datadriven.TestData) string {
			switch d.Cmd {
			case "span":
				var name string
				var lo, hi int64
				var loInc, hiInc bool
				d.ScanArgs(t, "name", &name)
				d.ScanArgs(t, "lo", &lo)
				d.ScanArgs(t, "hi", &hi)
				d.ScanArgs(t, "loinc", &loInc)
				d.ScanArgs(t, "hiinc", &hiInc)

				sp, err := New(basetype.NewInt64(lo), basetype.NewInt64(hi), loInc, hiInc)
				if err != nil {
					return fmt.Sprintf("error: %v\n", err)
				}
				spans[name] = sp
				lbrace, rbrace := "(", ")"
				if loInc {
					lbrace = "["
				}
				if hiInc {
					rbrace = "]"
				}
				return fmt.Sprintf("%s%d, %d%s\n", lbrace, lo, hi, rbrace)

			case "predicate":
				var aName, bName string
				d.ScanArgs(t, "a", &aName)
				d.ScanArgs(t, "b", &bName)
				a, ok := spans[aName]
				require.True(t, ok, "undefined span %q", aName)
				b, ok := spans[bName]
				require.True(t, ok, "undefined span %q", bName)

				overlaps, err := a.Overlaps(b)
				require.NoError(t, err)
				adjacent, err := a.Adjacent(b)
				require.NoError(t, err)
				contains, err := a.Contains(b)
				require.NoError(t, err)
				left, err := a.StrictlyLeft(b)
				require.NoError(t, err)
				right, err := a.StrictlyRight(b)
				require.NoError(t, err)

				return fmt.Sprintf(
					"overlaps=%t adjacent=%t contains=%t strictlyleft=%t strictlyright=%t\n",
					overlaps, adjacent, contains, left, right,
				)

			default:
				t.Fatalf("unknown command %q", d.Cmd)
				return ""
			}
		})
	})
}
