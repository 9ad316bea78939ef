package controller_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vincent99/chessboard/internal/controller"
)

type fakeController struct {
	active      bool
	activations int
}

func (f *fakeController) Activate()   { f.active = true; f.activations++ }
func (f *fakeController) Deactivate() { f.active = false }

type fakeClock struct{ paused int }

func (f *fakeClock) Pause() { f.paused++ }

func TestManagerStartsLocal(t *testing.T) {
	local, remote := &fakeController{}, &fakeController{}
	clk := &fakeClock{}
	m := controller.NewManager(local, remote, clk, nil)

	require.Equal(t, controller.ModeLocal, m.Mode())
	require.True(t, local.active)
	require.False(t, remote.active)
}

func TestAppFrameSwitchesToRemoteAndPausesClock(t *testing.T) {
	local, remote := &fakeController{}, &fakeController{}
	clk := &fakeClock{}
	m := controller.NewManager(local, remote, clk, nil)

	m.OnAppFrame()

	require.Equal(t, controller.ModeRemote, m.Mode())
	require.False(t, local.active)
	require.True(t, remote.active)
	require.Equal(t, 1, clk.paused)
}

func TestAppDisconnectReturnsToLocal(t *testing.T) {
	local, remote := &fakeController{}, &fakeController{}
	clk := &fakeClock{}
	m := controller.NewManager(local, remote, clk, nil)
	m.OnAppFrame()

	m.OnAppDisconnect()

	require.Equal(t, controller.ModeLocal, m.Mode())
	require.True(t, local.active)
	require.False(t, remote.active)
}

func TestSwitchToSameModeIsNoOp(t *testing.T) {
	local, remote := &fakeController{}, &fakeController{}
	clk := &fakeClock{}
	m := controller.NewManager(local, remote, clk, nil)

	m.SelectLocal()

	require.Equal(t, 1, local.activations)
	require.Equal(t, 0, clk.paused)
}

func TestShadowRelayForwardsAndComparesOnlyWhenEnabled(t *testing.T) {
	var forwarded [][]byte
	var diffs int
	r := controller.NewShadowRelay(func(b []byte) error {
		forwarded = append(forwarded, b)
		return nil
	}, func(ours, shadow []byte) {
		diffs++
	})

	r.Forward([]byte{0x01})
	require.Empty(t, forwarded, "disabled relay must not forward")

	r.SetEnabled(true)
	r.Forward([]byte{0x01})
	require.Len(t, forwarded, 1)

	r.Compare([]byte{0x01}, []byte{0x02})
	require.Equal(t, 1, diffs)

	r.SetEnabled(false)
	r.Compare([]byte{0x01}, []byte{0x02})
	require.Equal(t, 1, diffs, "disabled relay must not log diffs")
}
