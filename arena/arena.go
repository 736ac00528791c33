// Package arena provides the static tile grid the simulation runs on:
// wall collision queries, spawn points, flag bases, and power-up anchors.
// It is pure data plus geometry, with no dependency on the game state types.
package arena

import (
	"fmt"
	"math"
	"strings"
)

// Point is a position in world units.
type Point struct {
	X, Y float64
}

// Arena is an immutable tile grid with anchor points in world units.
// World coordinates are tile coordinates scaled by TileSize, so the same
// grid serves both the 2D (pixel-sized tiles) and 3D (metre-sized tiles)
// modes.
type Arena struct {
	Width    int // tiles
	Height   int // tiles
	TileSize float64

	solid []bool

	blueSpawns   []Point
	redSpawns    []Point
	blueBase     Point
	redBase      Point
	powerUpSpots []Point
}

// Grid legend for Parse.
const (
	cellWall      = '#'
	cellFloor     = '.'
	cellBlueSpawn = 'b'
	cellRedSpawn  = 'r'
	cellBlueBase  = 'B'
	cellRedBase   = 'R'
	cellPowerUp   = '*'
)

// defaultGrid is the shipped arena: a mirrored 25x19 layout with a walled
// mid-lane, three spawn nooks per side and three power-up anchors.
var defaultGrid = []string{
	"#########################",
	"#.......#.......#.......#",
	"#.b.....#...*...#.....r.#",
	"#.b.....#.......#.....r.#",
	"#.b.....###...###.....r.#",
	"#.......#.......#.......#",
	"#.......#.......#.......#",
	"####.####.......####.####",
	"#.......................#",
	"#..B........*........R..#",
	"#.......................#",
	"####.####.......####.####",
	"#.......#.......#.......#",
	"#.......#.......#.......#",
	"#.b.....###...###.....r.#",
	"#.b.....#.......#.....r.#",
	"#.b.....#...*...#.....r.#",
	"#.......#.......#.......#",
	"#########################",
}

// Default returns the built-in arena scaled to the given tile size.
func Default(tileSize float64) *Arena {
	a, err := Parse(defaultGrid, tileSize)
	if err != nil {
		// The shipped grid is validated by tests; a parse failure here is a
		// programming error, not a runtime condition.
		panic(err)
	}
	return a
}

// Parse builds an arena from an ASCII grid. Every row must have the same
// width, and the grid must contain both flag bases and at least one spawn
// point per team.
func Parse(rows []string, tileSize float64) (*Arena, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("arena: empty grid")
	}
	w := len(rows[0])
	a := &Arena{
		Width:    w,
		Height:   len(rows),
		TileSize: tileSize,
		solid:    make([]bool, w*len(rows)),
	}

	haveBlueBase, haveRedBase := false, false
	for ty, row := range rows {
		if len(row) != w {
			return nil, fmt.Errorf("arena: row %d has width %d, want %d", ty, len(row), w)
		}
		for tx, c := range row {
			center := a.TileCenter(tx, ty)
			switch c {
			case cellWall:
				a.solid[ty*w+tx] = true
			case cellFloor:
			case cellBlueSpawn:
				a.blueSpawns = append(a.blueSpawns, center)
			case cellRedSpawn:
				a.redSpawns = append(a.redSpawns, center)
			case cellBlueBase:
				a.blueBase = center
				haveBlueBase = true
			case cellRedBase:
				a.redBase = center
				haveRedBase = true
			case cellPowerUp:
				a.powerUpSpots = append(a.powerUpSpots, center)
			default:
				return nil, fmt.Errorf("arena: unknown cell %q at %d,%d", string(c), tx, ty)
			}
		}
	}

	if !haveBlueBase || !haveRedBase {
		return nil, fmt.Errorf("arena: grid is missing a flag base")
	}
	if len(a.blueSpawns) == 0 || len(a.redSpawns) == 0 {
		return nil, fmt.Errorf("arena: grid is missing spawn points")
	}
	return a, nil
}

// TileCenter returns the world position of the center of tile (tx, ty).
func (a *Arena) TileCenter(tx, ty int) Point {
	return Point{
		X: (float64(tx) + 0.5) * a.TileSize,
		Y: (float64(ty) + 0.5) * a.TileSize,
	}
}

// SolidAt reports whether tile (tx, ty) is a wall. Out-of-bounds tiles are
// solid so entities can never escape the grid.
func (a *Arena) SolidAt(tx, ty int) bool {
	if tx < 0 || tx >= a.Width || ty < 0 || ty >= a.Height {
		return true
	}
	return a.solid[ty*a.Width+tx]
}

// SolidAtWorld reports whether the world position lies inside a wall tile.
func (a *Arena) SolidAtWorld(x, y float64) bool {
	return a.SolidAt(int(math.Floor(x/a.TileSize)), int(math.Floor(y/a.TileSize)))
}

// ResolveCircle pushes a circle of radius r at (x, y) out of any wall tiles
// it penetrates and returns the corrected position. For each overlapping
// tile the circle is moved along the separation vector by the penetration
// depth; if the center sits exactly inside a solid tile it is pushed out
// from the tile center instead.
func (a *Arena) ResolveCircle(x, y, r float64) (float64, float64) {
	ts := a.TileSize
	minTX := int(math.Floor((x - r) / ts))
	maxTX := int(math.Floor((x + r) / ts))
	minTY := int(math.Floor((y - r) / ts))
	maxTY := int(math.Floor((y + r) / ts))

	for ty := minTY; ty <= maxTY; ty++ {
		for tx := minTX; tx <= maxTX; tx++ {
			if !a.SolidAt(tx, ty) {
				continue
			}

			left := float64(tx) * ts
			top := float64(ty) * ts
			cx := clamp(x, left, left+ts)
			cy := clamp(y, top, top+ts)

			dx := x - cx
			dy := y - cy
			d := math.Hypot(dx, dy)
			if d >= r {
				continue
			}

			if d > 0 {
				depth := r - d
				x += dx / d * depth
				y += dy / d * depth
				continue
			}

			// Degenerate: center inside the tile. Push out through the tile
			// center far enough to clear the wall.
			center := a.TileCenter(tx, ty)
			ox := x - center.X
			oy := y - center.Y
			od := math.Hypot(ox, oy)
			if od == 0 {
				ox, oy, od = 0, -1, 1
			}
			x = center.X + ox/od*(ts/2+r)
			y = center.Y + oy/od*(ts/2+r)
		}
	}
	return x, y
}

// Blocked reports whether the straight segment between two world points
// crosses a wall tile. Used for bot line-of-sight checks; sampled at
// quarter-tile steps, which is fine for tile-sized geometry.
func (a *Arena) Blocked(x1, y1, x2, y2 float64) bool {
	dx := x2 - x1
	dy := y2 - y1
	dist := math.Hypot(dx, dy)
	if dist == 0 {
		return a.SolidAtWorld(x1, y1)
	}
	step := a.TileSize / 4
	steps := int(dist/step) + 1
	for i := 0; i <= steps; i++ {
		t := float64(i) / float64(steps)
		if a.SolidAtWorld(x1+dx*t, y1+dy*t) {
			return true
		}
	}
	return false
}

// BlueSpawns returns the blue team spawn points.
func (a *Arena) BlueSpawns() []Point { return a.blueSpawns }

// RedSpawns returns the red team spawn points.
func (a *Arena) RedSpawns() []Point { return a.redSpawns }

// BlueBase returns the blue flag base position.
func (a *Arena) BlueBase() Point { return a.blueBase }

// RedBase returns the red flag base position.
func (a *Arena) RedBase() Point { return a.redBase }

// PowerUpSpots returns the power-up anchor points.
func (a *Arena) PowerUpSpots() []Point { return a.powerUpSpots }

// WorldWidth returns the arena width in world units.
func (a *Arena) WorldWidth() float64 { return float64(a.Width) * a.TileSize }

// WorldHeight returns the arena height in world units.
func (a *Arena) WorldHeight() float64 { return float64(a.Height) * a.TileSize }

func (a *Arena) String() string {
	var b strings.Builder
	for ty := 0; ty < a.Height; ty++ {
		for tx := 0; tx < a.Width; tx++ {
			if a.solid[ty*a.Width+tx] {
				b.WriteByte('#')
			} else {
				b.WriteByte('.')
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
