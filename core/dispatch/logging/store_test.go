package logging

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/binfleet/core/events"
)

func TestLogQueryMatches(t *testing.T) {
	now := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	r := DecisionRecord{Timestamp: now, Kind: events.KindRoute, DriverIDs: []string{"d1"}, OrderIDs: []string{"o1", "o2"}}
	assert.True(t, LogQuery{}.Matches(r))
	assert.True(t, LogQuery{SubjectID: "o2"}.Matches(r))
	assert.False(t, LogQuery{SubjectID: "v1"}.Matches(r))
	assert.False(t, LogQuery{Kind: events.KindQuote}.Matches(r))
	assert.False(t, LogQuery{Start: now.Add(time.Second)}.Matches(r))
	assert.False(t, LogQuery{End: now.Add(-time.Second)}.Matches(r))
	assert.True(t, LogQuery{Start: now, End: now}.Matches(r))
}

func TestOpenBackends(t *testing.T) {
	dir := t.TempDir()
	cases := []Config{
		{Backend: "memory"},
		{Backend: "jsonl", Path: filepath.Join(dir, "d.jsonl")},
		{Backend: "rotating", Path: filepath.Join(dir, "r", "d.jsonl"), MaxBackups: 2},
		{Backend: "sqlite", Path: filepath.Join(dir, "d.db")},
	}
	for _, cfg := range cases {
		t.Run(cfg.Backend, func(t *testing.T) {
			store, err := Open(cfg)
			require.NoError(t, err)
			defer func() { _ = store.Close() }()
			ctx := context.Background()
			now := time.Now()
			require.NoError(t, store.Append(ctx, DecisionRecord{ID: "a", Timestamp: now, Kind: events.KindQuote}))
			require.NoError(t, store.Append(ctx, DecisionRecord{ID: "b", Timestamp: now.Add(time.Second), Kind: events.KindRoute, DriverIDs: []string{"d9"}}))
			out, err := store.Query(ctx, LogQuery{SubjectID: "d9"})
			require.NoError(t, err)
			require.Len(t, out, 1)
			assert.Equal(t, "b", out[0].ID)
			all, err := store.Query(ctx, LogQuery{})
			require.NoError(t, err)
			assert.Len(t, all, 2)
		})
	}
	_, err := Open(Config{Backend: "kafka"})
	assert.Error(t, err)
}

func TestConfigDefaults(t *testing.T) {
	var c Config
	c.SetDefaults()
	assert.Equal(t, Config{Backend: "jsonl", Path: "decisions.jsonl"}, c)
	s := Config{Backend: "sqlite"}
	s.SetDefaults()
	assert.Equal(t, "decisions.db", s.Path)
	m := Config{Backend: "memory"}
	m.SetDefaults()
	assert.NoError(t, m.Validate())
	assert.Empty(t, m.Path)
}
