package companion

// Rarity classifies how often a species shows up in encounters.
type Rarity string

const (
	RarityCommon    Rarity = "common"
	RarityUncommon  Rarity = "uncommon"
	RarityRare      Rarity = "rare"
	RarityLegendary Rarity = "legendary"
)

// BaseStats are the fixed template stats of a species.
type BaseStats struct {
	HP             int
	Attack         int
	Defense        int
	SpecialAttack  int
	SpecialDefense int
	Speed          int
}

// Species is the immutable template shared by every companion of the same kind.
// EvolutionLevel 0 means the species does not evolve.
type Species struct {
	ID              int
	Name            string
	Types           []string
	BaseStats       BaseStats
	EvolutionLevel  int
	EvolutionTarget int
	SpriteURL       string
	Rarity          Rarity
	Biomes          []string
}

// AppearsIn reports whether the species can be encountered in the given zone.
func (s Species) AppearsIn(zoneID string) bool {
	for _, b := range s.Biomes {
		if b == zoneID {
			return true
		}
	}
	return false
}

// StarterSpeciesID is the species every new player receives.
const StarterSpeciesID = 25

var catalog = []Species{
	{
		ID:              StarterSpeciesID,
		Name:            "Pikachu",
		Types:           []string{"Electric"},
		BaseStats:       BaseStats{HP: 35, Attack: 55, Defense: 40, SpecialAttack: 50, SpecialDefense: 50, Speed: 90},
		EvolutionLevel:  16,
		EvolutionTarget: 26,
		Rarity:          RarityCommon,
		Biomes:          []string{"forest", "laboratory"},
	},
	{
		ID:        26,
		Name:      "Raichu",
		Types:     []string{"Electric"},
		BaseStats: BaseStats{HP: 60, Attack: 90, Defense: 55, SpecialAttack: 90, SpecialDefense: 80, Speed: 110},
		Rarity:    RarityUncommon,
		Biomes:    []string{"laboratory"},
	},
	{
		ID:              1,
		Name:            "Bulbasaur",
		Types:           []string{"Grass", "Poison"},
		BaseStats:       BaseStats{HP: 45, Attack: 49, Defense: 49, SpecialAttack: 65, SpecialDefense: 65, Speed: 45},
		EvolutionLevel:  16,
		EvolutionTarget: 2,
		Rarity:          RarityCommon,
		Biomes:          []string{"forest", "garden"},
	},
	{
		ID:              7,
		Name:            "Squirtle",
		Types:           []string{"Water"},
		BaseStats:       BaseStats{HP: 44, Attack: 48, Defense: 65, SpecialAttack: 50, SpecialDefense: 64, Speed: 43},
		EvolutionLevel:  16,
		EvolutionTarget: 8,
		Rarity:          RarityCommon,
		Biomes:          []string{"ocean"},
	},
	{
		ID:              74,
		Name:            "Geodude",
		Types:           []string{"Rock", "Ground"},
		BaseStats:       BaseStats{HP: 40, Attack: 80, Defense: 100, SpecialAttack: 30, SpecialDefense: 30, Speed: 20},
		EvolutionLevel:  25,
		EvolutionTarget: 75,
		Rarity:          RarityCommon,
		Biomes:          []string{"cave"},
	},
	{
		ID:              63,
		Name:            "Abra",
		Types:           []string{"Psychic"},
		BaseStats:       BaseStats{HP: 25, Attack: 20, Defense: 15, SpecialAttack: 105, SpecialDefense: 55, Speed: 90},
		EvolutionLevel:  16,
		EvolutionTarget: 64,
		Rarity:          RarityUncommon,
		Biomes:          []string{"library", "laboratory"},
	},
	{
		ID:        137,
		Name:      "Porygon",
		Types:     []string{"Normal"},
		BaseStats: BaseStats{HP: 65, Attack: 60, Defense: 70, SpecialAttack: 85, SpecialDefense: 75, Speed: 40},
		Rarity:    RarityRare,
		Biomes:    []string{"laboratory"},
	},
}

// SpeciesByID looks up a species template in the built-in catalog.
func SpeciesByID(id int) (Species, bool) {
	for _, s := range catalog {
		if s.ID == id {
			return s.clone(), true
		}
	}
	return Species{}, false
}

// SpeciesForZone returns the catalog species that can appear in zoneID.
func SpeciesForZone(zoneID string) []Species {
	var out []Species
	for _, s := range catalog {
		if s.AppearsIn(zoneID) {
			out = append(out, s.clone())
		}
	}
	return out
}

// StarterSpecies returns the template used to seed a new player's first companion.
func StarterSpecies() Species {
	s, _ := SpeciesByID(StarterSpeciesID)
	return s
}

func (s Species) clone() Species {
	s.Types = append([]string(nil), s.Types...)
	s.Biomes = append([]string(nil), s.Biomes...)
	return s
}
