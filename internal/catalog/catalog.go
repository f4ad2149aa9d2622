package catalog

type Category string

const (
	CategoryBase     Category = "BASE"
	CategoryPower    Category = "POWER"
	CategoryBar      Category = "BAR"
	CategoryCompound Category = "COMPOUND"
	CategoryLabBase  Category = "LAB_BASE"
)

// Group is one display row: an ordered run of identifiers sharing a category and tier.
type Group struct {
	Category  Category
	Tier      int
	Resources []string
}

type Entry struct {
	ID       string
	Category Category
	Tier     int
	Index    int // position within its group
}

var groups = []Group{
	{Category: CategoryBase, Resources: []string{"energy", "U", "L", "K", "Z", "X", "O", "H", "G"}},
	{Category: CategoryPower, Resources: []string{"power", "ops"}},
	{Category: CategoryBar, Resources: []string{
		"battery", "utrium_bar", "lemergium_bar", "keanium_bar", "zynthium_bar",
		"purifier", "oxidant", "reductant", "ghodium_melt",
	}},

	// Commodities, one tier per color chain.
	{Category: CategoryCompound, Tier: 0, Resources: []string{"composite", "crystal", "liquid"}},
	{Category: CategoryCompound, Tier: 1, Resources: []string{"silicon", "wire", "switch", "transistor", "microchip", "circuit", "device"}},
	{Category: CategoryCompound, Tier: 2, Resources: []string{"metal", "alloy", "tube", "fixtures", "frame", "hydraulics", "machine"}},
	{Category: CategoryCompound, Tier: 3, Resources: []string{"mist", "condensate", "concentrate", "extract", "spirit", "emanation", "essence"}},
	{Category: CategoryCompound, Tier: 4, Resources: []string{"biomass", "cell", "phlegm", "tissue", "muscle", "organoid", "organism"}},

	// Lab reagents. G is listed again here so the lab block reads as a complete chain.
	{Category: CategoryLabBase, Tier: 0, Resources: []string{"OH", "ZK", "UL", "G"}},
	{Category: CategoryLabBase, Tier: 1, Resources: []string{"UH", "UH2O", "XUH2O", "UO", "UHO2", "XUHO2", "utrium"}},
	{Category: CategoryLabBase, Tier: 2, Resources: []string{"ZH", "ZH2O", "XZH2O", "ZO", "ZHO2", "XZHO2", "zynthium"}},
	{Category: CategoryLabBase, Tier: 3, Resources: []string{"KH", "KH2O", "XKH2O", "KO", "KHO2", "XKHO2", "keanium"}},
	{Category: CategoryLabBase, Tier: 4, Resources: []string{"LH", "LH2O", "XLH2O", "LO", "LHO2", "XLHO2", "lemergium"}},
	{Category: CategoryLabBase, Tier: 5, Resources: []string{"GH", "GH2O", "XGH2O", "GO", "GHO2", "XGHO2", "ghodium"}},
}

var (
	entries []Entry
	byID    map[string]Entry
)

func init() {
	byID = make(map[string]Entry, 96)
	for _, g := range groups {
		for i, id := range g.Resources {
			e := Entry{ID: id, Category: g.Category, Tier: g.Tier, Index: i}
			entries = append(entries, e)
			if _, dup := byID[id]; !dup {
				byID[id] = e
			}
		}
	}
}

// Groups returns the display groups in declaration order. Callers must not mutate the result.
func Groups() []Group { return groups }

// GroupsOf returns the groups of one category ordered by tier.
func GroupsOf(c Category) []Group {
	var out []Group
	for _, g := range groups {
		if g.Category == c {
			out = append(out, g)
		}
	}
	return out
}

func Entries() []Entry { return entries }

// Lookup returns the first entry declared for id.
func Lookup(id string) (Entry, bool) {
	e, ok := byID[id]
	return e, ok
}

// Widest returns the length of the longest group.
func Widest() int {
	n := 0
	for _, g := range groups {
		if len(g.Resources) > n {
			n = len(g.Resources)
		}
	}
	return n
}
