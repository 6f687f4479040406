package block

// AtlasTiles is the number of tiles along each edge of the square texture atlas.
const AtlasTiles = 16

// WheatStages is the number of growth stages with a dedicated wheat tile.
const WheatStages = 8

// Tile addresses one square of the texture atlas.
type Tile struct {
	Col int
	Row int
}

// UV returns the atlas-space rectangle of the tile.
func (t Tile) UV() (u0, v0, u1, v1 float32) {
	const step = 1.0 / AtlasTiles
	u0 = float32(t.Col) * step
	v0 = float32(t.Row) * step
	return u0, v0, u0 + step, v0 + step
}

// Appearance captures which atlas tiles a block type uses for its faces.
// Tinted appearances shift their row by the column's biome.
type Appearance struct {
	Top    Tile
	Side   Tile
	Bottom Tile
	Tinted bool
}

// DefaultAppearances enumerates the built-in block visuals.
var DefaultAppearances = map[Type]Appearance{
	Bedrock:     uniform(Tile{Col: 11}),
	Stone:       uniform(Tile{Col: 0}),
	Cobblestone: uniform(Tile{Col: 1}),
	Dirt:        uniform(Tile{Col: 2}),
	GrassBlock: {
		Top:    Tile{Col: 0, Row: 1},
		Side:   Tile{Col: 3},
		Bottom: Tile{Col: 2},
	},
	Sand:      uniform(Tile{Col: 4}),
	Gravel:    uniform(Tile{Col: 5}),
	Log:       {Top: Tile{Col: 7}, Side: Tile{Col: 6}, Bottom: Tile{Col: 7}},
	Planks:    uniform(Tile{Col: 8}),
	Leaves:    tinted(Tile{Col: 1, Row: 1}),
	CoalOre:   uniform(Tile{Col: 9}),
	IronOre:   uniform(Tile{Col: 10}),
	Water:     uniform(Tile{Col: 12}),
	TallGrass: tinted(Tile{Col: 2, Row: 1}),
	Flower:    tinted(Tile{Col: 3, Row: 1}),
	Wheat:     uniform(Tile{Col: 0, Row: 5}),
}

func uniform(t Tile) Appearance {
	return Appearance{Top: t, Side: t, Bottom: t}
}

func tinted(t Tile) Appearance {
	return Appearance{Top: t, Side: t, Bottom: t, Tinted: true}
}

// TileFor picks the atlas tile for one face of a block. Grass tops follow the
// biome; wheat follows its growth stage.
func TileFor(t Type, f Face, biome Biome, stage int) Tile {
	app, ok := DefaultAppearances[t]
	if !ok {
		return Tile{}
	}
	var tile Tile
	switch f {
	case FaceTop:
		tile = app.Top
	case FaceBottom:
		tile = app.Bottom
	default:
		tile = app.Side
	}
	if app.Tinted || (t == GrassBlock && f == FaceTop) {
		if biome < biomeCount {
			tile.Row += int(biome)
		}
	}
	if t == Wheat {
		if stage < 0 {
			stage = 0
		}
		if stage >= WheatStages {
			stage = WheatStages - 1
		}
		tile.Col += stage
	}
	return tile
}
