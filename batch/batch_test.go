package batch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Split_PartitionsWithoutOverlapOrOmission(t *testing.T) {
	items := []int{1, 2, 3, 4, 5, 6, 7}

	batches, err := Split(items, 3)
	require.NoError(t, err)
	require.Len(t, batches, 3)

	var flattened []int
	for _, b := range batches {
		assert.LessOrEqual(t, len(b), 3)
		assert.NotEmpty(t, b)
		flattened = append(flattened, b...)
	}
	assert.Equal(t, items, flattened)
}

func Test_Split_ExactMultiple(t *testing.T) {
	batches, err := Split([]string{"a", "b", "c", "d"}, 2)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"a", "b"}, {"c", "d"}}, batches)
}

func Test_Split_Empty(t *testing.T) {
	batches, err := Split([]int{}, 5)
	require.NoError(t, err)
	assert.Empty(t, batches)
}

func Test_Split_RejectsNonPositiveSize(t *testing.T) {
	_, err := Split([]int{1}, 0)
	assert.Error(t, err)
}

func Test_Split_AppendDoesNotClobberNextBatch(t *testing.T) {
	items := []int{1, 2, 3, 4}
	batches, err := Split(items, 2)
	require.NoError(t, err)

	_ = append(batches[0], 99)
	assert.Equal(t, []int{3, 4}, batches[1])
}
