package order

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusTransitions(t *testing.T) {
	cases := []struct {
		from    Status
		to      Status
		allowed bool
	}{
		{StatusPending, StatusConfirmed, true},
		{StatusPending, StatusCancelled, true},
		{StatusPending, StatusPreparing, false},
		{StatusPending, StatusServed, false},
		{StatusPending, StatusCompleted, false},
		{StatusConfirmed, StatusPreparing, true},
		{StatusConfirmed, StatusCancelled, true},
		{StatusConfirmed, StatusReady, false},
		{StatusPreparing, StatusReady, true},
		{StatusPreparing, StatusCancelled, true},
		{StatusPreparing, StatusServed, false},
		{StatusReady, StatusServed, true},
		{StatusReady, StatusCancelled, true},
		{StatusReady, StatusCompleted, false},
		{StatusServed, StatusCompleted, true},
		{StatusServed, StatusCancelled, true},
		{StatusServed, StatusReady, false},
		{StatusCompleted, StatusCancelled, false},
		{StatusCompleted, StatusPending, false},
		{StatusCancelled, StatusPending, false},
		{StatusCancelled, StatusConfirmed, false},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.allowed, tc.from.CanTransitionTo(tc.to),
			"%s -> %s", tc.from, tc.to)
	}
}

func TestStatusTerminal(t *testing.T) {
	assert.True(t, StatusCompleted.Terminal())
	assert.True(t, StatusCancelled.Terminal())
	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusServed.Terminal())
}

func TestStatusValid(t *testing.T) {
	assert.True(t, StatusPending.Valid())
	assert.True(t, StatusCancelled.Valid())
	assert.False(t, Status("shipped").Valid())
}

func TestTypeValid(t *testing.T) {
	assert.True(t, TypeDineIn.Valid())
	assert.True(t, TypeTakeout.Valid())
	assert.True(t, TypeDelivery.Valid())
	assert.False(t, Type("drive_through").Valid())
}
