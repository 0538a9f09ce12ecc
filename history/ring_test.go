package history

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewRingSizesSlotsForMaxOrderPlusTwo(t *testing.T) {
	r := NewRing(2, 3)
	require.Equal(t, 4, r.Len())
	require.Equal(t, 2, r.MaxOrder())
	for i := 0; i < r.Len(); i++ {
		require.Len(t, r.At(i).Solution, 3)
	}
}

func TestCurrentIsAliasForSlotZero(t *testing.T) {
	r := NewRing(1, 1)
	r.At(0).Time = 5
	require.Equal(t, 5.0, r.Current().Time)
}

func TestShiftRotatesWithoutReallocating(t *testing.T) {
	r := NewRing(1, 1)
	r.At(0).Time = 1
	r.At(0).Solution[0] = 10
	r.At(1).Time = 0

	r.Shift()
	require.Equal(t, 1.0, r.At(1).Time)
	require.Equal(t, 10.0, r.At(1).Solution[0])
	// slot 0 is now the old oldest slot, reused as is (its Time was 0).
	require.Equal(t, 0.0, r.At(0).Time)
}

func TestShiftPreservesUnderlyingSolutionBackingArrays(t *testing.T) {
	r := NewRing(1, 2)
	original := r.At(2).Solution // the slot about to become slot 0
	r.Shift()
	require.Same(t, &original[0], &r.At(0).Solution[0])
}

func TestTimesReturnsLeadingSlotsInRingOrder(t *testing.T) {
	r := NewRing(2, 1)
	r.At(0).Time = 3
	r.At(1).Time = 2
	r.At(2).Time = 1
	r.At(3).Time = 0

	require.Equal(t, []float64{3, 2, 1}, r.Times(3))
}

func TestTimesClampsToRingLength(t *testing.T) {
	r := NewRing(1, 1)
	require.Len(t, r.Times(100), r.Len())
}

func TestResetZeroesEverySlot(t *testing.T) {
	r := NewRing(1, 2)
	r.At(0).Time = 1
	r.At(0).Delta = 2
	r.At(0).Order = 3
	r.At(0).Solution[0] = 4

	r.Reset()
	require.Equal(t, 0.0, r.At(0).Time)
	require.Equal(t, 0.0, r.At(0).Delta)
	require.Equal(t, 0, r.At(0).Order)
	require.Equal(t, 0.0, r.At(0).Solution[0])
}
