// Package direction defines the eight compass directions a swipe can take and
// the geometry shared by gesture classification, attacks, and blocks.
package direction

import (
	"fmt"
	"math"
	"strings"
)

// Direction is one of the eight swipe directions, or None.
type Direction int

const (
	None Direction = iota
	Up
	Down
	Left
	Right
	UpLeft
	UpRight
	DownLeft
	DownRight
)

// All lists the eight real directions in index order.
var All = []Direction{Up, Down, Left, Right, UpLeft, UpRight, DownLeft, DownRight}

// ring is the clockwise compass ring starting at Up.
var ring = []Direction{Up, UpRight, Right, DownRight, Down, DownLeft, Left, UpLeft}

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case Up:
		return "Up"
	case Down:
		return "Down"
	case Left:
		return "Left"
	case Right:
		return "Right"
	case UpLeft:
		return "UpLeft"
	case UpRight:
		return "UpRight"
	case DownLeft:
		return "DownLeft"
	case DownRight:
		return "DownRight"
	default:
		return "None"
	}
}

// Parse returns the Direction named s, case-insensitively.
//
// Postcondition: returns an error for unknown names; "none" and "" parse to None.
func Parse(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return None, nil
	case "up":
		return Up, nil
	case "down":
		return Down, nil
	case "left":
		return Left, nil
	case "right":
		return Right, nil
	case "upleft", "up_left":
		return UpLeft, nil
	case "upright", "up_right":
		return UpRight, nil
	case "downleft", "down_left":
		return DownLeft, nil
	case "downright", "down_right":
		return DownRight, nil
	}
	return None, fmt.Errorf("direction.Parse: unknown direction %q", s)
}

// Index returns the position of d in All, or -1 for None.
func (d Direction) Index() int {
	for i, v := range All {
		if v == d {
			return i
		}
	}
	return -1
}

// IsDiagonal reports whether d is one of the four diagonals.
func (d Direction) IsDiagonal() bool {
	return d == UpLeft || d == UpRight || d == DownLeft || d == DownRight
}

// IsSide reports whether d is Left or Right.
func (d Direction) IsSide() bool { return d == Left || d == Right }

// Mirror maps an attack direction into the defender's facing frame.
// Left and Right swap, diagonals swap horizontally, Up, Down and None are unchanged.
func (d Direction) Mirror() Direction {
	switch d {
	case Left:
		return Right
	case Right:
		return Left
	case UpLeft:
		return UpRight
	case UpRight:
		return UpLeft
	case DownLeft:
		return DownRight
	case DownRight:
		return DownLeft
	default:
		return d
	}
}

// Opposite returns the direction pointing the other way.
func (d Direction) Opposite() Direction {
	switch d {
	case Up:
		return Down
	case Down:
		return Up
	case Left:
		return Right
	case Right:
		return Left
	case UpLeft:
		return DownRight
	case UpRight:
		return DownLeft
	case DownLeft:
		return UpRight
	case DownRight:
		return UpLeft
	default:
		return None
	}
}

// Axis returns the unit vector for d in y-up coordinates. None yields (0, 0).
func (d Direction) Axis() (x, y float64) {
	const s = math.Sqrt2 / 2
	switch d {
	case Up:
		return 0, 1
	case Down:
		return 0, -1
	case Left:
		return -1, 0
	case Right:
		return 1, 0
	case UpLeft:
		return -s, s
	case UpRight:
		return s, s
	case DownLeft:
		return -s, -s
	case DownRight:
		return s, -s
	default:
		return 0, 0
	}
}

// Project returns the signed length of (dx, dy) along d's axis.
func (d Direction) Project(dx, dy float64) float64 {
	ax, ay := d.Axis()
	return dx*ax + dy*ay
}

// Neighbor returns the ring neighbour of d, clockwise when step > 0 and
// counter-clockwise when step < 0. None is returned unchanged.
func (d Direction) Neighbor(step int) Direction {
	for i, v := range ring {
		if v == d {
			n := len(ring)
			return ring[((i+step)%n+n)%n]
		}
	}
	return d
}

const sector = 45.0

// Classify maps a displacement in y-up coordinates to a direction.
//
// Each direction owns a 45 degree sector centred on its axis. Sector ends are
// tested with sequential strict comparisons, so an angle exactly on a boundary
// belongs to the counter-clockwise-next sector (22.5 degrees is UpRight).
//
// Postcondition: a zero-length vector returns None.
func Classify(dx, dy float64) Direction {
	if dx == 0 && dy == 0 {
		return None
	}
	angle := math.Atan2(dy, dx) * 180 / math.Pi
	if angle < 0 {
		angle += 360
	}
	a0 := sector * 0.5
	a1 := a0 + sector
	a2 := a1 + sector
	a3 := a2 + sector
	a4 := a3 + sector
	a5 := a4 + sector
	a6 := a5 + sector
	a7 := a6 + sector

	if angle >= 360-a0 || angle < a0 {
		return Right
	}
	if angle < a1 {
		return UpRight
	}
	if angle < a2 {
		return Up
	}
	if angle < a3 {
		return UpLeft
	}
	if angle < a4 {
		return Left
	}
	if angle < a5 {
		return DownLeft
	}
	if angle < a6 {
		return Down
	}
	if angle < a7 {
		return DownRight
	}
	return None
}
