package graphic

import (
	"fmt"
	"math"
	"time"

	"github.com/noriah/voxcap"

	"github.com/nsf/termbox-go"
)

// BarRune is the block bars are drawn with.
const BarRune rune = '█'

// layout holds the geometry of one frame.
type layout struct {
	width  int
	height int
	count  int
	bar    int
	space  int
	base   int
	invert bool
}

// center returns the first and one past the last row of the base line.
func (l layout) center() (int, int) {
	start := (l.height - l.base) / 2
	if start < 0 {
		start = 0
	}

	stop := start + l.base
	if stop > l.height {
		stop = l.height
	}

	return start, stop
}

// firstColumn returns the column of the first bar so the bars sit centered.
func (l layout) firstColumn() int {
	total := (l.bar+l.space)*l.count - l.space
	if total >= l.width || total < 0 {
		return 0
	}

	return (l.width - total) / 2
}

// binAt returns the magnitude index drawn at position pos.
func (l layout) binAt(pos int) int {
	if l.invert {
		return l.count - 1 - pos
	}
	return pos
}

// span returns the number of rows a magnitude reaches away from the base line,
// out of limit rows.
func span(mag float64, limit int) int {
	if math.IsNaN(mag) || mag <= 0 || limit <= 0 {
		return 0
	}

	if mag > 1 {
		mag = 1
	}

	return int(math.Round(mag * float64(limit)))
}

func drawMirrored(l layout, mags []float64, styles Styles) {
	centerStart, centerStop := l.center()

	// rows available above the base, and the same count below it
	limit := centerStart
	if below := l.height - centerStop; below < limit {
		limit = below
	}

	xCol := l.firstColumn()

	for pos := 0; pos < l.count; pos++ {
		rows := span(mags[l.binAt(pos)], limit)

		for lCol := xCol + l.bar; xCol < lCol && xCol < l.width; xCol++ {
			for xRow := centerStart - rows; xRow < centerStart; xRow++ {
				termbox.SetCell(xCol, xRow, BarRune, styles.Foreground, styles.Background)
			}

			for xRow := centerStart; xRow < centerStop; xRow++ {
				termbox.SetCell(xCol, xRow, BarRune, styles.Center, styles.Background)
			}

			for xRow := centerStop; xRow < centerStop+rows; xRow++ {
				termbox.SetCell(xCol, xRow, BarRune, styles.Foreground, styles.Background)
			}
		}

		xCol += l.space
	}
}

func statusLine(status voxcap.Status) string {
	return fmt.Sprintf(" %5.1f dB  %s", status.Volume, status.Duration.Truncate(100*time.Millisecond))
}

func drawStatus(x, y int, line string, styles Styles) {
	for _, r := range line {
		termbox.SetCell(x, y, r, styles.Foreground, styles.Background)
		x++
	}
}
