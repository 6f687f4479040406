package block

// ItemKind separates block items from other dropped items.
type ItemKind uint8

const (
	ItemNone ItemKind = iota
	ItemMaterial
	ItemSeeds
	ItemStick
)

func (k ItemKind) String() string {
	switch k {
	case ItemNone:
		return "none"
	case ItemMaterial:
		return "material"
	case ItemSeeds:
		return "seeds"
	case ItemStick:
		return "stick"
	}
	return "unknown"
}

// Drop describes what breaking a block yields.
type Drop struct {
	Item  ItemKind
	Block Type
	Count int
}

// DropFor returns the item spawned when a block of type t is destroyed. Most
// blocks drop themselves; a few are redirected to another block or to a
// non-material item.
func DropFor(t Type) Drop {
	switch t {
	case Air, Water, Bedrock:
		return Drop{Item: ItemNone}
	case GrassBlock:
		return Drop{Item: ItemMaterial, Block: Dirt, Count: 1}
	case Stone:
		return Drop{Item: ItemMaterial, Block: Cobblestone, Count: 1}
	case TallGrass:
		return Drop{Item: ItemSeeds, Count: 1}
	case Leaves:
		return Drop{Item: ItemStick, Count: 1}
	case Wheat:
		return Drop{Item: ItemSeeds, Count: 2}
	}
	if !t.Valid() {
		return Drop{Item: ItemNone}
	}
	return Drop{Item: ItemMaterial, Block: t, Count: 1}
}
