package present

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// upperHalf draws the top sample as foreground and the bottom one as background.
const upperHalf = '▀'

// ErrQuit ends a Run session without reporting a failure.
var ErrQuit = errors.New("terminal session quit")

// Action is a viewer command decoded from terminal input.
type Action int

const (
	ActionNone Action = iota
	ActionForward
	ActionBackward
	ActionTurnLeft
	ActionTurnRight
	ActionStrafeLeft
	ActionStrafeRight
	ActionQuit
)

// Terminal presents frames in a tcell screen, two frame rows per cell.
type Terminal struct {
	screen    tcell.Screen
	log       *zap.Logger
	closeOnce sync.Once
}

// OpenTerminal initialises the process terminal.
func OpenTerminal(log *zap.Logger) (*Terminal, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, err
	}
	if err := screen.Init(); err != nil {
		return nil, err
	}
	return NewTerminal(screen, log), nil
}

// NewTerminal wraps an initialised screen.
func NewTerminal(screen tcell.Screen, log *zap.Logger) *Terminal {
	if log == nil {
		log = zap.NewNop()
	}
	screen.HideCursor()
	screen.Clear()
	return &Terminal{screen: screen, log: log.Named("terminal")}
}

// Resolution is the frame size that maps one sample onto each half cell.
func (t *Terminal) Resolution() (int, int) {
	cols, rows := t.screen.Size()
	return cols, rows * 2
}

// Draw scales the frame onto the screen and shows it.
func (t *Terminal) Draw(frame []byte, width, height int) error {
	img, err := Gray(frame, width, height)
	if err != nil {
		return err
	}
	cols, rows := t.screen.Size()
	if cols <= 0 || rows <= 0 {
		return nil
	}
	if cols != width || rows*2 != height {
		img = Scale(img, cols, rows*2)
	}
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			r, style := HalfBlock(img.GrayAt(x, 2*y).Y, img.GrayAt(x, 2*y+1).Y)
			t.screen.SetContent(x, y, r, nil, style)
		}
	}
	t.screen.Show()
	return nil
}

// Status writes a line of text over the top row of the last drawn frame.
func (t *Terminal) Status(text string) {
	style := tcell.StyleDefault.Foreground(tcell.ColorYellow).Background(tcell.ColorBlack)
	x := 0
	for _, r := range text {
		t.screen.SetContent(x, 0, r, nil, style)
		x++
	}
	t.screen.Show()
}

// Poll forwards decoded actions until ctx is done or the screen is finalised.
// Resize events are forwarded as ActionNone so the caller redraws.
func (t *Terminal) Poll(ctx context.Context, out chan<- Action) error {
	for {
		ev := t.screen.PollEvent()
		if ev == nil {
			return nil
		}
		var action Action
		switch ev := ev.(type) {
		case *tcell.EventKey:
			action = KeyAction(ev)
			if action == ActionNone {
				continue
			}
		case *tcell.EventResize:
			t.screen.Sync()
			cols, rows := t.screen.Size()
			t.log.Debug("terminal resized", zap.Int("cols", cols), zap.Int("rows", rows))
		default:
			continue
		}
		select {
		case out <- action:
		case <-ctx.Done():
			return nil
		}
	}
}

// Run reads input on one goroutine and ticks frames on another until a quit
// key is pressed, onTick returns an error or ctx is done. onAction sees every
// other action, including the ActionNone sent on resize. Returning ErrQuit
// from onTick ends the session cleanly. The terminal is closed on return.
func (t *Terminal) Run(ctx context.Context, interval time.Duration, onAction func(Action), onTick func() error) error {
	actions := make(chan Action, 16)
	grp, ctx := errgroup.WithContext(ctx)
	grp.Go(func() error {
		return t.Poll(ctx, actions)
	})
	grp.Go(func() error {
		// closing the screen is what unblocks Poll
		defer t.Close()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case a := <-actions:
				if a == ActionQuit {
					return ErrQuit
				}
				onAction(a)
			case <-ticker.C:
				if err := onTick(); err != nil {
					return err
				}
			}
		}
	})
	if err := grp.Wait(); err != nil && !errors.Is(err, ErrQuit) {
		return err
	}
	return nil
}

// Close restores the terminal and unblocks Poll. It may be called more than
// once.
func (t *Terminal) Close() {
	t.closeOnce.Do(t.screen.Fini)
}

// HalfBlock returns the rune and style for a cell whose upper half shows top
// and lower half shows bottom.
func HalfBlock(top, bottom uint8) (rune, tcell.Style) {
	style := tcell.StyleDefault.
		Foreground(tcell.NewRGBColor(int32(top), int32(top), int32(top))).
		Background(tcell.NewRGBColor(int32(bottom), int32(bottom), int32(bottom)))
	return upperHalf, style
}

// KeyAction maps WASD, QE strafing, arrow keys and the quit keys.
func KeyAction(ev *tcell.EventKey) Action {
	switch ev.Key() {
	case tcell.KeyUp:
		return ActionForward
	case tcell.KeyDown:
		return ActionBackward
	case tcell.KeyLeft:
		return ActionTurnLeft
	case tcell.KeyRight:
		return ActionTurnRight
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return ActionQuit
	case tcell.KeyRune:
		switch ev.Rune() {
		case 'w', 'W':
			return ActionForward
		case 's', 'S':
			return ActionBackward
		case 'a', 'A':
			return ActionTurnLeft
		case 'd', 'D':
			return ActionTurnRight
		case 'q', 'Q':
			return ActionStrafeLeft
		case 'e', 'E':
			return ActionStrafeRight
		case 'x', 'X':
			return ActionQuit
		}
	}
	return ActionNone
}
