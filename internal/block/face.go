package block

// Face names one of the six sides of a block.
type Face uint8

const (
	FaceTop Face = iota
	FaceBottom
	FaceNorth
	FaceSouth
	FaceEast
	FaceWest
)

// Faces lists every face in a fixed order.
var Faces = [...]Face{FaceTop, FaceBottom, FaceNorth, FaceSouth, FaceEast, FaceWest}

// Offset returns the unit step from a block to the neighbour behind the face.
// North is +z and east is +x.
func (f Face) Offset() (dx, dy, dz int) {
	switch f {
	case FaceTop:
		return 0, 1, 0
	case FaceBottom:
		return 0, -1, 0
	case FaceNorth:
		return 0, 0, 1
	case FaceSouth:
		return 0, 0, -1
	case FaceEast:
		return 1, 0, 0
	case FaceWest:
		return -1, 0, 0
	}
	return 0, 0, 0
}

func (f Face) String() string {
	switch f {
	case FaceTop:
		return "top"
	case FaceBottom:
		return "bottom"
	case FaceNorth:
		return "north"
	case FaceSouth:
		return "south"
	case FaceEast:
		return "east"
	case FaceWest:
		return "west"
	}
	return "unknown"
}
