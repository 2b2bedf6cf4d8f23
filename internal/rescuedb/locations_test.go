package rescuedb

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogSearchLocationGroupsNearbySearches(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, s.LogSearchLocation(ctx, 17.3862, 78.4862, 10000))
	require.NoError(t, s.LogSearchLocation(ctx, 17.3871, 78.4858, 5000))
	require.NoError(t, s.LogSearchLocation(ctx, 40.4168, -3.7038, 10000))

	logs, err := s.GetLocationLogs(ctx, 0)
	require.NoError(t, err)
	require.Len(t, logs, 2)

	assert.Equal(t, 17.39, logs[0].Latitude)
	assert.Equal(t, 78.49, logs[0].Longitude)
	assert.EqualValues(t, 2, logs[0].SearchCount)
	assert.Equal(t, 5000.0, logs[0].Distance)
	assert.False(t, logs[0].LastSearch.IsZero())
	assert.False(t, logs[0].LastSearch.Before(logs[0].SearchTime))

	limited, err := s.GetLocationLogs(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestGetPopularLocationHeatmap(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	// Neighbouring cells at two decimals are about 1.06 km apart here.
	require.NoError(t, s.LogSearchLocation(ctx, 17.39, 78.49, 10000))
	require.NoError(t, s.LogSearchLocation(ctx, 17.39, 78.49, 10000))
	require.NoError(t, s.LogSearchLocation(ctx, 17.39, 78.48, 20000))
	require.NoError(t, s.LogSearchLocation(ctx, 40.42, -3.70, 10000))

	heat, err := s.GetPopularLocationHeatmap(ctx, 0)
	require.NoError(t, err)
	require.Len(t, heat, 2)

	assert.EqualValues(t, 3, heat[0].SearchCount)
	assert.Equal(t, 20000.0, heat[0].Radius)
	assert.InDelta(t, 78.4867, heat[0].Longitude, 0.001)
	assert.EqualValues(t, 1, heat[1].SearchCount)

	top, err := s.GetPopularLocationHeatmap(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, top, 1)
}
