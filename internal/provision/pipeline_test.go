package provision

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunStepsHaltsOnFatalFailure(t *testing.T) {
	var ran []string
	boom := errors.New("boom")
	steps := []Step{
		{Name: "one", Fatal: true, Run: func(ctx context.Context) error { ran = append(ran, "one"); return nil }},
		{Name: "two", Fatal: true, Run: func(ctx context.Context) error { ran = append(ran, "two"); return boom }},
		{Name: "three", Fatal: true, Run: func(ctx context.Context) error { ran = append(ran, "three"); return nil }},
	}

	err := runSteps(context.Background(), zerolog.Nop(), steps)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.ErrorContains(t, err, "two")
	assert.Equal(t, []string{"one", "two"}, ran)
}

func TestRunStepsContinuesPastNonFatalFailure(t *testing.T) {
	var ran []string
	steps := []Step{
		{Name: "one", Fatal: false, Run: func(ctx context.Context) error { ran = append(ran, "one"); return errors.New("ignored") }},
		{Name: "two", Fatal: true, Run: func(ctx context.Context) error { ran = append(ran, "two"); return nil }},
	}

	err := runSteps(context.Background(), zerolog.Nop(), steps)
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two"}, ran)
}

func TestRunStepsStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var ran []string
	steps := []Step{
		{Name: "one", Fatal: true, Run: func(ctx context.Context) error { ran = append(ran, "one"); return nil }},
	}

	err := runSteps(ctx, zerolog.Nop(), steps)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, ran)
}
