package graphic

import (
	"context"
	"sync"

	"github.com/noriah/voxcap"

	"github.com/nsf/termbox-go"
)

// Display draws magnitudes as bars mirrored around a center base line.
type Display struct {
	mu sync.Mutex

	barWidth   int
	spaceWidth int
	binWidth   int
	baseThick  int
	invertDraw bool
	styles     Styles

	running  bool
	restore  func()
	pollDone chan struct{}
}

var _ voxcap.Output = (*Display)(nil)

// NewDisplay returns a display with the default sizes and styles. Init must be
// called before it draws anything.
func NewDisplay() *Display {
	d := &Display{
		baseThick: 1,
		styles:    DefaultStyles(),
	}

	d.SetSizes(2, 1)

	return d
}

// Init takes over the terminal.
func (d *Display) Init() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running {
		return nil
	}

	restore, err := prepareTerminal()
	if err != nil {
		return err
	}

	if err := termbox.Init(); err != nil {
		restore()
		return err
	}

	termbox.SetInputMode(termbox.InputAlt)
	termbox.SetOutputMode(termbox.Output256)
	termbox.HideCursor()
	termbox.Clear(d.styles.Background, d.styles.Background)

	d.restore = restore
	d.running = true

	return nil
}

// Close gives the terminal back. Draw does nothing afterwards.
func (d *Display) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.running {
		return nil
	}

	d.running = false

	termbox.Close()
	d.restore()

	return nil
}

// Start polls terminal events until the user quits or Stop is called. The
// returned context is canceled when polling ends.
func (d *Display) Start(ctx context.Context) context.Context {
	dispCtx, dispCancel := context.WithCancel(ctx)

	d.pollDone = make(chan struct{})
	go d.eventPoller(dispCtx, dispCancel)

	return dispCtx
}

// Stop ends event polling and waits for the poller to return.
func (d *Display) Stop() error {
	if d.pollDone == nil {
		return nil
	}

	select {
	case <-d.pollDone:
		return nil
	default:
	}

	// Interrupt blocks until a poll receives it
	go termbox.Interrupt()

	<-d.pollDone

	return nil
}

func (d *Display) eventPoller(ctx context.Context, fn context.CancelFunc) {
	defer close(d.pollDone)
	defer fn()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		ev := termbox.PollEvent()

		switch ev.Type {
		case termbox.EventKey:
			switch ev.Key {
			case termbox.KeyCtrlC, termbox.KeyEsc:
				return

			case termbox.KeyArrowUp:
				d.SetSizes(d.sizes().bar+1, d.sizes().space)

			case termbox.KeyArrowDown:
				d.SetSizes(d.sizes().bar-1, d.sizes().space)

			case termbox.KeyArrowRight:
				d.SetSizes(d.sizes().bar, d.sizes().space+1)

			case termbox.KeyArrowLeft:
				d.SetSizes(d.sizes().bar, d.sizes().space-1)

			default:
				switch ev.Ch {
				case 'q', 'Q':
					return
				case 'i', 'I':
					d.SetInvertDraw(!d.invert())
				}
			}

		case termbox.EventInterrupt, termbox.EventError:
			return
		}
	}
}

// SetSizes sets the bar and space widths in columns.
func (d *Display) SetSizes(bar, space int) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if bar < 1 {
		bar = 1
	}

	if space < 0 {
		space = 0
	}

	d.barWidth = bar
	d.spaceWidth = space
	d.binWidth = bar + space
}

// SetBase sets the thickness of the center line.
func (d *Display) SetBase(size int) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if size < 0 {
		size = 0
	}

	d.baseThick = size
}

// SetStyles sets the colors.
func (d *Display) SetStyles(styles Styles) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.styles = styles
}

// SetInvertDraw draws the bars right to left.
func (d *Display) SetInvertDraw(invert bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.invertDraw = invert
}

func (d *Display) invert() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.invertDraw
}

func (d *Display) sizes() layout {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.layout(0, 0, 0)
}

func (d *Display) layout(width, height, count int) layout {
	return layout{
		width:  width,
		height: height,
		count:  count,
		bar:    d.barWidth,
		space:  d.spaceWidth,
		base:   d.baseThick,
		invert: d.invertDraw,
	}
}

// Draw draws one frame.
func (d *Display) Draw(mags []float64, status voxcap.Status) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.running {
		return nil
	}

	bg := d.styles.Background

	if err := termbox.Clear(bg, bg); err != nil {
		return err
	}

	width, height := termbox.Size()

	// bottom row holds the status line
	lay := d.layout(width, height-1, len(mags))

	drawMirrored(lay, mags, d.styles)
	drawStatus(0, height-1, statusLine(status), d.styles)

	return termbox.Flush()
}
