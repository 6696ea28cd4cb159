package entropy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fishkms/internal/models"
)

func TestDemoSource_Sample(t *testing.T) {
	src := DemoSource{}

	first, err := src.Sample(context.Background())
	require.NoError(t, err)
	second, err := src.Sample(context.Background())
	require.NoError(t, err)

	assert.Equal(t, models.StatusDemo, first.Status)
	assert.Zero(t, first.Score)
	assert.Len(t, first.Bytes, 32)
	assert.NotEqual(t, first.Bytes, second.Bytes)
	assert.Equal(t, models.ModeDemo, src.Mode())
}
