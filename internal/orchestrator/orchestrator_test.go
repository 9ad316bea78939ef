package orchestrator_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vincent99/chessboard/internal/orchestrator"
)

func TestStateStringer(t *testing.T) {
	cases := map[orchestrator.State]string{
		orchestrator.StateBoot:     "BOOT",
		orchestrator.StateMenu:     "MENU",
		orchestrator.StateSettings: "SETTINGS",
		orchestrator.StateGame:     "GAME",
		orchestrator.StateIdle:     "IDLE",
		orchestrator.StateShutdown: "SHUTDOWN",
	}
	for state, want := range cases {
		require.Equal(t, want, state.String())
	}
}
