package display

// Canvas is a braille dot grid: each terminal cell holds 2x4 dots, which is
// the densest plotting resolution an ordinary terminal offers. Dot (0,0) is
// the top-left pixel.
type Canvas struct {
	cellsW int
	cellsH int
	cells  []uint8
}

// brailleBits maps (x%2, y%4) to the dot bit inside a braille cell.
var brailleBits = [2][4]uint8{
	{0x01, 0x02, 0x04, 0x40},
	{0x08, 0x10, 0x20, 0x80},
}

// NewCanvas creates a canvas of cellsW x cellsH terminal cells, i.e.
// cellsW*2 x cellsH*4 pixels.
func NewCanvas(cellsW, cellsH int) *Canvas {
	return &Canvas{
		cellsW: cellsW,
		cellsH: cellsH,
		cells:  make([]uint8, cellsW*cellsH),
	}
}

// PixelWidth returns the canvas width in dots.
func (c *Canvas) PixelWidth() int { return c.cellsW * 2 }

// PixelHeight returns the canvas height in dots.
func (c *Canvas) PixelHeight() int { return c.cellsH * 4 }

// Set turns on the dot at (x, y); out-of-range dots are ignored.
func (c *Canvas) Set(x, y int) {
	if x < 0 || y < 0 || x >= c.PixelWidth() || y >= c.PixelHeight() {
		return
	}
	c.cells[(y/4)*c.cellsW+x/2] |= brailleBits[x%2][y%4]
}

// VLine draws a vertical dot run from y0 to y1 inclusive, in either order.
func (c *Canvas) VLine(x, y0, y1 int) {
	if y0 > y1 {
		y0, y1 = y1, y0
	}
	for y := y0; y <= y1; y++ {
		c.Set(x, y)
	}
}

// Line draws a straight segment between two dots.
func (c *Canvas) Line(x0, y0, x1, y1 int) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	err := dx + dy
	for {
		c.Set(x0, y0)
		if x0 == x1 && y0 == y1 {
			return
		}
		if e2 := 2 * err; e2 >= dy {
			err += dy
			x0 += sx
		} else {
			err += dx
			y0 += sy
		}
	}
}

// MarkColumn draws a dotted full-height column, used for markers.
func (c *Canvas) MarkColumn(x int) {
	for y := 0; y < c.PixelHeight(); y += 2 {
		c.Set(x, y)
	}
}

// Rows renders the canvas as one string per cell row.
func (c *Canvas) Rows() []string {
	rows := make([]string, c.cellsH)
	line := make([]rune, c.cellsW)
	for cy := 0; cy < c.cellsH; cy++ {
		for cx := 0; cx < c.cellsW; cx++ {
			bits := c.cells[cy*c.cellsW+cx]
			if bits == 0 {
				line[cx] = ' '
			} else {
				line[cx] = rune(0x2800 + int(bits))
			}
		}
		rows[cy] = string(line)
	}
	return rows
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
