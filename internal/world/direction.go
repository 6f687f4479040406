package world

// Direction names one of the four horizontal neighbours of a chunk.
type Direction uint8

const (
	East Direction = iota
	West
	North
	South
)

// Directions lists the four neighbour slots in slot order.
var Directions = [...]Direction{East, West, North, South}

// Opposite returns the direction pointing back.
func (d Direction) Opposite() Direction {
	switch d {
	case East:
		return West
	case West:
		return East
	case North:
		return South
	default:
		return North
	}
}

// Offset returns the chunk grid step. East is +x and north is +z.
func (d Direction) Offset() (dx, dz int) {
	switch d {
	case East:
		return 1, 0
	case West:
		return -1, 0
	case North:
		return 0, 1
	default:
		return 0, -1
	}
}

func (d Direction) String() string {
	switch d {
	case East:
		return "east"
	case West:
		return "west"
	case North:
		return "north"
	case South:
		return "south"
	}
	return "unknown"
}

func (d Direction) alongX() bool {
	return d == East || d == West
}

// edge is the interior coordinate of the border row that faces d.
func (d Direction) edge(size int) int {
	if d == East || d == North {
		return size
	}
	return 1
}

// halo is the coordinate of the halo row on side d.
func (d Direction) halo(size int) int {
	if d == East || d == North {
		return size + 1
	}
	return 0
}
