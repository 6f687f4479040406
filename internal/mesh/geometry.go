package mesh

import "github.com/go-gl/mathgl/mgl32"

// Stream is one vertex/index/uv triple. Triangles index into Vertices and UVs,
// which always have equal length.
type Stream struct {
	Vertices  []mgl32.Vec3
	Triangles []int32
	UVs       []mgl32.Vec2
}

func newStream(vertices int) Stream {
	return Stream{
		Vertices:  make([]mgl32.Vec3, 0, vertices),
		Triangles: make([]int32, 0, vertices*2),
		UVs:       make([]mgl32.Vec2, 0, vertices),
	}
}

// Reset truncates the stream while keeping its capacity.
func (s *Stream) Reset() {
	s.Vertices = s.Vertices[:0]
	s.Triangles = s.Triangles[:0]
	s.UVs = s.UVs[:0]
}

// Len returns the number of vertices.
func (s *Stream) Len() int {
	return len(s.Vertices)
}

func (s *Stream) clone() Stream {
	return Stream{
		Vertices:  append([]mgl32.Vec3(nil), s.Vertices...),
		Triangles: append([]int32(nil), s.Triangles...),
		UVs:       append([]mgl32.Vec2(nil), s.UVs...),
	}
}

// quad appends four corners and the two triangles (0,1,2) (0,2,3).
func (s *Stream) quad(corners [4]mgl32.Vec3, uvs [4]mgl32.Vec2) {
	base := int32(len(s.Vertices))
	s.Vertices = append(s.Vertices, corners[:]...)
	s.UVs = append(s.UVs, uvs[:]...)
	s.Triangles = append(s.Triangles, base, base+1, base+2, base, base+2, base+3)
}

// Capacity is the number of vertices reserved up front per stream.
type Capacity struct {
	Solid   int
	Liquid  int
	Foliage int
}

// DefaultCapacity mirrors typical terrain chunk sizes.
var DefaultCapacity = Capacity{Solid: 16384, Liquid: 8192, Foliage: 4096}

// Geometry holds the three independent streams of one chunk.
type Geometry struct {
	Solid   Stream
	Liquid  Stream
	Foliage Stream
}

// NewGeometry allocates a geometry with reserved capacity.
func NewGeometry(c Capacity) *Geometry {
	return &Geometry{
		Solid:   newStream(c.Solid),
		Liquid:  newStream(c.Liquid),
		Foliage: newStream(c.Foliage),
	}
}

// Reset empties every stream.
func (g *Geometry) Reset() {
	g.Solid.Reset()
	g.Liquid.Reset()
	g.Foliage.Reset()
}

// Clone returns a deep copy sized to its content. Published geometry is
// always a clone so the builder can keep reusing its own buffers.
func (g *Geometry) Clone() *Geometry {
	return &Geometry{
		Solid:   g.Solid.clone(),
		Liquid:  g.Liquid.clone(),
		Foliage: g.Foliage.clone(),
	}
}

// Empty reports whether no stream has any vertex.
func (g *Geometry) Empty() bool {
	return g == nil || (g.Solid.Len() == 0 && g.Liquid.Len() == 0 && g.Foliage.Len() == 0)
}

// Vertices returns the total vertex count across streams.
func (g *Geometry) Vertices() int {
	if g == nil {
		return 0
	}
	return g.Solid.Len() + g.Liquid.Len() + g.Foliage.Len()
}
