package cache

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		in   string
		want Command
	}{
		{"updateGene", CommandUpdateGene},
		{"UPDATEGENE", CommandUpdateGene},
		{"reset", CommandReset},
		{" enable ", CommandEnable},
		{"disable", CommandDisable},
		{"getStatus", CommandStatus},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseCommand(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseCommand("flush")
	assert.ErrorIs(t, err, ErrUnknownCommand)
	_, err = ParseCommand("")
	assert.ErrorIs(t, err, ErrUnknownCommand)
}

func TestHub_PublishInOrder(t *testing.T) {
	var (
		h   Hub
		got []string
	)
	record := func(name string) Subscriber {
		return SubscriberFunc(func(_ context.Context, ev Event) error {
			got = append(got, name+":"+ev.String())
			return nil
		})
	}
	h.Subscribe("genes", record("genes"))
	h.Subscribe("alterations", record("alterations"))

	require.NoError(t, h.Publish(context.Background(), UpdateGene(673)))
	require.NoError(t, h.Publish(context.Background(), Reset()))

	assert.Equal(t, []string{"genes", "alterations"}, h.Subscribers())
	assert.Equal(t, []string{
		"genes:update(673)",
		"alterations:update(673)",
		"genes:reset",
		"alterations:reset",
	}, got)
}

func TestHub_PublishJoinsErrors(t *testing.T) {
	var h Hub
	boom := errors.New("boom")
	applied := false
	h.Subscribe("bad", SubscriberFunc(func(context.Context, Event) error { return boom }))
	h.Subscribe("good", SubscriberFunc(func(context.Context, Event) error {
		applied = true
		return nil
	}))

	err := h.Publish(context.Background(), Reset())
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "bad")
	assert.True(t, applied)
}

func TestGeneStore_EvictAndClear(t *testing.T) {
	loads := 0
	s := newGeneStore("alterations", NewMetrics("test"), func(_ context.Context, id int) ([]int, error) {
		loads++
		return []int{id}, nil
	})
	ctx := context.Background()

	for range 3 {
		v, err := s.get(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, []int{1}, v)
	}
	assert.Equal(t, 1, loads)

	_, err := s.get(ctx, 2)
	require.NoError(t, err)
	require.NoError(t, s.Apply(ctx, UpdateGene(1)))
	assert.Equal(t, []int{2}, s.genes())

	require.NoError(t, s.Apply(ctx, Reset()))
	assert.Empty(t, s.genes())
	_, ok := s.peek(2)
	assert.False(t, ok)
}
