package service

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/readypixelgo/venue-booking/internal/apperr"
	"github.com/readypixelgo/venue-booking/internal/model"
)

func publicSlot(t *testing.T, av *PublicAvailability, label string) bool {
	t.Helper()
	for _, s := range av.Slots {
		if s.Time == label {
			return s.Available
		}
	}
	t.Fatalf("slot %s missing from public view", label)
	return false
}

func stateOf(t *testing.T, sched *Schedule, label string) model.SlotState {
	t.Helper()
	for _, s := range sched.Slots {
		if s.TimeSlot == label {
			return s
		}
	}
	t.Fatalf("slot %s missing from schedule", label)
	return model.SlotState{}
}

func requireKind(t *testing.T, err error, kind apperr.Kind) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, kind, apperr.KindOf(err), "unexpected error: %v", err)
}
