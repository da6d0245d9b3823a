package postgres

import (
	"testing"
	"time"

	"fraud-viewer/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChartImagesRoundTrip(t *testing.T) {
	images := map[domain.ChartTarget]string{
		domain.TargetFraudDistribution: "/static/results/fraud_distribution.png",
	}

	encoded, err := encodeImages(images)
	require.NoError(t, err)

	s, ok := encoded.(string)
	require.True(t, ok)

	decoded, err := decodeImages([]byte(s))
	require.NoError(t, err)
	assert.Equal(t, images, decoded)
}

func TestEmptyChartImagesAreNull(t *testing.T) {
	encoded, err := encodeImages(nil)
	require.NoError(t, err)
	assert.Nil(t, encoded)

	decoded, err := decodeImages(nil)
	require.NoError(t, err)
	assert.Nil(t, decoded)
}

func TestNullTime(t *testing.T) {
	assert.False(t, nullTime(time.Time{}).Valid)
	assert.True(t, nullTime(time.Unix(1, 0)).Valid)
}

func TestSchemaCreatesSubmissionsTable(t *testing.T) {
	assert.Contains(t, schema, "CREATE TABLE IF NOT EXISTS submissions")
}
