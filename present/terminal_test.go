package present

import (
	"context"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func simulationTerminal(t *testing.T, cols, rows int) (*Terminal, tcell.SimulationScreen) {
	t.Helper()
	screen := tcell.NewSimulationScreen("UTF-8")
	require.NoError(t, screen.Init())
	screen.SetSize(cols, rows)
	term := NewTerminal(screen, zaptest.NewLogger(t))
	t.Cleanup(term.Close)
	return term, screen
}

func TestTerminalResolution(t *testing.T) {
	term, _ := simulationTerminal(t, 80, 24)
	w, h := term.Resolution()
	assert.Equal(t, 80, w)
	assert.Equal(t, 48, h)
}

func TestTerminalDrawHalfBlocks(t *testing.T) {
	term, screen := simulationTerminal(t, 2, 2)

	// column 0 lit on top of each cell, column 1 lit below
	frame := []byte{
		255, 0,
		0, 255,
		255, 0,
		0, 255,
	}
	require.NoError(t, term.Draw(frame, 2, 4))

	_, litOverDark := HalfBlock(255, 0)
	_, darkOverLit := HalfBlock(0, 255)
	for y := 0; y < 2; y++ {
		r, _, style, _ := screen.GetContent(0, y)
		assert.Equal(t, upperHalf, r)
		assert.Equal(t, litOverDark, style, "row %d col 0", y)
		_, _, style, _ = screen.GetContent(1, y)
		assert.Equal(t, darkOverLit, style, "row %d col 1", y)
	}
}

func TestTerminalDrawScales(t *testing.T) {
	term, screen := simulationTerminal(t, 4, 1)

	require.NoError(t, term.Draw([]byte{255, 0}, 2, 1))

	_, lit := HalfBlock(255, 255)
	_, dark := HalfBlock(0, 0)
	for x, want := range []tcell.Style{lit, lit, dark, dark} {
		_, _, style, _ := screen.GetContent(x, 0)
		assert.Equal(t, want, style, "col %d", x)
	}

	assert.ErrorIs(t, term.Draw([]byte{1, 2, 3}, 2, 2), ErrFrameSize)
}

func TestKeyAction(t *testing.T) {
	tests := []struct {
		key  tcell.Key
		r    rune
		want Action
	}{
		{tcell.KeyUp, 0, ActionForward},
		{tcell.KeyDown, 0, ActionBackward},
		{tcell.KeyLeft, 0, ActionTurnLeft},
		{tcell.KeyRight, 0, ActionTurnRight},
		{tcell.KeyEscape, 0, ActionQuit},
		{tcell.KeyCtrlC, 0, ActionQuit},
		{tcell.KeyRune, 'w', ActionForward},
		{tcell.KeyRune, 'S', ActionBackward},
		{tcell.KeyRune, 'a', ActionTurnLeft},
		{tcell.KeyRune, 'd', ActionTurnRight},
		{tcell.KeyRune, 'q', ActionStrafeLeft},
		{tcell.KeyRune, 'e', ActionStrafeRight},
		{tcell.KeyRune, 'x', ActionQuit},
		{tcell.KeyRune, 'z', ActionNone},
		{tcell.KeyTab, 0, ActionNone},
	}
	for _, tt := range tests {
		ev := tcell.NewEventKey(tt.key, tt.r, tcell.ModNone)
		assert.Equal(t, tt.want, KeyAction(ev), "key %v rune %q", tt.key, tt.r)
	}
}

// receiveActions collects n actions, dropping the ActionNone values that
// precede the first key.
func receiveActions(t *testing.T, actions <-chan Action, n int) []Action {
	t.Helper()
	var got []Action
	timeout := time.After(2 * time.Second)
	for len(got) < n {
		select {
		case a := <-actions:
			if len(got) == 0 && a == ActionNone {
				continue
			}
			got = append(got, a)
		case <-timeout:
			t.Fatalf("timed out after %v", got)
		}
	}
	return got
}

func TestTerminalPoll(t *testing.T) {
	term, screen := simulationTerminal(t, 10, 5)

	actions := make(chan Action, 8)
	done := make(chan error, 1)
	go func() { done <- term.Poll(context.Background(), actions) }()

	screen.InjectKey(tcell.KeyRune, 'z', tcell.ModNone)
	screen.InjectKey(tcell.KeyRune, 'w', tcell.ModNone)
	require.NoError(t, screen.PostEvent(tcell.NewEventResize(20, 6)))
	screen.InjectKey(tcell.KeyRune, 'd', tcell.ModNone)
	screen.InjectKey(tcell.KeyEscape, 0, tcell.ModNone)

	got := receiveActions(t, actions, 4)
	assert.Equal(t, []Action{ActionForward, ActionNone, ActionTurnRight, ActionQuit}, got)

	term.Close()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Poll did not return after Close")
	}
}

func TestTerminalPollStopsWhenCancelled(t *testing.T) {
	term, screen := simulationTerminal(t, 10, 5)

	ctx, cancel := context.WithCancel(context.Background())
	// nobody reads, so Poll blocks on its first send
	actions := make(chan Action)
	done := make(chan error, 1)
	go func() { done <- term.Poll(ctx, actions) }()

	screen.InjectKey(tcell.KeyRune, 'w', tcell.ModNone)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Poll did not return after cancel")
	}
}

func TestTerminalRunUntilQuit(t *testing.T) {
	term, screen := simulationTerminal(t, 10, 5)

	var handled []Action
	done := make(chan error, 1)
	go func() {
		done <- term.Run(context.Background(), time.Millisecond, func(a Action) {
			if a != ActionNone {
				handled = append(handled, a)
			}
		}, func() error { return nil })
	}()

	screen.InjectKey(tcell.KeyRune, 'w', tcell.ModNone)
	screen.InjectKey(tcell.KeyRune, 'q', tcell.ModNone)
	screen.InjectKey(tcell.KeyRune, 'x', tcell.ModNone)
	screen.InjectKey(tcell.KeyRune, 's', tcell.ModNone)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after the quit key")
	}
	// Run has returned, so the loop goroutine no longer touches these
	assert.Equal(t, []Action{ActionForward, ActionStrafeLeft}, handled)
}

func TestTerminalRunTickResult(t *testing.T) {
	term, _ := simulationTerminal(t, 10, 5)
	err := term.Run(context.Background(), time.Millisecond, func(Action) {}, func() error {
		return ErrQuit
	})
	assert.NoError(t, err)

	term, _ = simulationTerminal(t, 10, 5)
	err = term.Run(context.Background(), time.Millisecond, func(Action) {}, func() error {
		return ErrFrameSize
	})
	assert.ErrorIs(t, err, ErrFrameSize)
}

func TestTerminalRunStopsWithContext(t *testing.T) {
	term, _ := simulationTerminal(t, 10, 5)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, term.Run(ctx, time.Hour, func(Action) {}, func() error { return nil }))
}
