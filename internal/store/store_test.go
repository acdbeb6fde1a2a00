package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"edgestats-backend/internal/edge"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T {
	return &v
}

func openTestStore(t testing.TB) Store {
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		s.Close()
	})
	return s
}

func TestPutLatest(t *testing.T) {
	s := openTestStore(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := s.Latest(ctx, "8478402")
	require.ErrorIs(t, err, ErrNotFound)

	first := edge.Aggregate{}
	first.Overview = []edge.StatRow{
		{Label: "Shots on Goal", PlayerValue: ptr(100.0), LeagueAverage: ptr(50.0), Percentile: ptr(80.0)},
	}
	second := edge.Aggregate{}
	second.Overview = []edge.StatRow{
		{Label: "Shots on Goal", PlayerValue: ptr(120.0), Tooltip: ptr("11/14/2024 @ OTT")},
	}
	second.RadarChart = &edge.RadarChart{
		Config: map[string]any{"levels": 4.0},
		Items:  []edge.RadarChartItem{{AxisLabel: "Shots", Value: 71, ValueLabel: "71st"}},
	}
	second.ZoneTime = []edge.StatRow{{Label: "Offensive Zone", PlayerValue: ptr(49.8)}}

	expected := edge.NewTargetSet(edge.TargetOverview)
	now := time.Unix(1731600000, 0)

	_, err = s.Put(ctx, "8478402", now, first, expected)
	require.NoError(t, err)
	id, err := s.Put(ctx, "8478402", now.Add(time.Hour), second, expected)
	require.NoError(t, err)
	_, err = s.Put(ctx, "8477934", now.Add(2*time.Hour), first, expected)
	require.NoError(t, err)

	latest, err := s.Latest(ctx, "8478402")
	require.NoError(t, err)
	require.Equal(t, id, latest.ID)
	require.Equal(t, "8478402", latest.PlayerID)
	require.True(t, latest.FetchedAt.Equal(now.Add(time.Hour)))
	require.True(t, latest.Complete)
	require.Equal(t, map[edge.Target]int{
		edge.TargetOverview: 1,
		edge.TargetZoneTime: 1,
	}, latest.Sections)

	diff := cmp.Diff(second, latest.Aggregate)
	require.Empty(t, diff)
}

func TestHistoryAndPrune(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	all := edge.NewTargetSet(edge.AllTargets()...)
	now := time.Unix(1731600000, 0)

	for i := 0; i < 3; i++ {
		agg := edge.Aggregate{}
		agg.ShotSpeed = []edge.StatRow{{Label: "Top Shot Speed (mph)", PlayerValue: ptr(90.0 + float64(i))}}
		_, err := s.Put(ctx, "8478402", now.Add(time.Duration(i)*time.Hour), agg, all)
		require.NoError(t, err)
	}

	history, err := s.History(ctx, "8478402", 2)
	require.NoError(t, err)
	require.Len(t, history, 2)
	require.Equal(t, 92.0, *history[0].Aggregate.ShotSpeed[0].PlayerValue)
	require.Equal(t, 91.0, *history[1].Aggregate.ShotSpeed[0].PlayerValue)
	require.False(t, history[0].Complete)

	err = s.Prune(ctx, "8478402", now.Add(90*time.Minute))
	require.NoError(t, err)

	history, err = s.History(ctx, "8478402", 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
}

func TestOpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "edge.db")

	s, err := Open(path)
	require.NoError(t, err)
	_, err = s.Put(context.Background(), "8478402", time.Now(), edge.Aggregate{}, edge.NewTargetSet())
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	latest, err := s.Latest(context.Background(), "8478402")
	require.NoError(t, err)
	require.Empty(t, latest.Sections)
	require.True(t, latest.Complete)
}

func TestOpenEmpty(t *testing.T) {
	_, err := Open("")
	require.Error(t, err)
}
