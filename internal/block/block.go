package block

import (
	"fmt"
	"strings"
)

// Type is the dense per-cell block code stored in a chunk.
type Type uint8

const (
	Air Type = iota
	Bedrock
	Stone
	Cobblestone
	Dirt
	GrassBlock
	Sand
	Gravel
	Log
	Planks
	Leaves
	CoalOre
	IronOre
	Water
	TallGrass
	Flower
	Wheat

	typeCount
)

// Class selects the geometry stream a block type is meshed into.
type Class uint8

const (
	ClassNone Class = iota
	ClassSolid
	ClassLiquid
	ClassFoliage
)

var typeNames = [typeCount]string{
	Air:         "air",
	Bedrock:     "bedrock",
	Stone:       "stone",
	Cobblestone: "cobblestone",
	Dirt:        "dirt",
	GrassBlock:  "grass_block",
	Sand:        "sand",
	Gravel:      "gravel",
	Log:         "log",
	Planks:      "planks",
	Leaves:      "leaves",
	CoalOre:     "coal_ore",
	IronOre:     "iron_ore",
	Water:       "water",
	TallGrass:   "tall_grass",
	Flower:      "flower",
	Wheat:       "wheat",
}

// Types returns every known block type in code order.
func Types() []Type {
	out := make([]Type, 0, typeCount)
	for t := Type(0); t < typeCount; t++ {
		out = append(out, t)
	}
	return out
}

// Valid reports whether t is a known block code.
func (t Type) Valid() bool {
	return t < typeCount
}

func (t Type) String() string {
	if !t.Valid() {
		return fmt.Sprintf("block(%d)", uint8(t))
	}
	return typeNames[t]
}

// Parse resolves a block name case-insensitively.
func Parse(name string) (Type, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for t, n := range typeNames {
		if n == name {
			return Type(t), nil
		}
	}
	return Air, fmt.Errorf("unknown block type %q", name)
}

// Class returns the material class of the block.
func (t Type) Class() Class {
	switch t {
	case Air:
		return ClassNone
	case Water:
		return ClassLiquid
	case TallGrass, Flower, Wheat:
		return ClassFoliage
	}
	if !t.Valid() {
		return ClassNone
	}
	return ClassSolid
}

// Opaque reports whether the block fully hides the faces of its neighbours.
func (t Type) Opaque() bool {
	return t.Class() == ClassSolid && t != Leaves
}
