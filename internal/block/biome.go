package block

// Biome is sampled per column by world generation and tints foliage.
type Biome uint8

const (
	BiomePlains Biome = iota
	BiomeForest
	BiomeDesert
	BiomeTundra

	biomeCount
)

func (b Biome) String() string {
	switch b {
	case BiomePlains:
		return "plains"
	case BiomeForest:
		return "forest"
	case BiomeDesert:
		return "desert"
	case BiomeTundra:
		return "tundra"
	}
	return "unknown"
}
