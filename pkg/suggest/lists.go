package suggest

import "strings"

// Kind says where a category gets its backing list from.
type Kind int

const (
	KindStatic Kind = iota
	KindNames
	KindSets
	KindTypes
)

func (k Kind) String() string {
	switch k {
	case KindNames:
		return "names"
	case KindSets:
		return "sets"
	case KindTypes:
		return "types"
	default:
		return "static"
	}
}

// Category binds one or more query prefixes to a backing list.
type Category struct {
	Name string
	Keys []string
	Kind Kind
	// Values is the backing list of a KindStatic category.
	Values []string
	// FoldAccents makes "Aether" match "Æther Vial".
	FoldAccents bool
}

var (
	Rarities = []string{"mythic", "rare", "uncommon", "common", "special", "token", "oversize"}

	Colors = []string{
		"white", "blue", "black", "red", "green", "colorless",
		"azorius", "gruul", "dimir", "orzhov", "izzet", "rakdos", "golgari", "simic", "selesnya", "boros",
		"bant", "esper", "jund", "grixis", "naya",
		"abzan", "jeskai", "sultai", "mardu", "temur",
		"quandrix", "witherbloom", "lorehold", "silverquill", "prismari",
		"ink", "glint", "dune", "witch", "yore",
		"chaos", "aggression", "altruism", "growth", "artifice",
		"wubrg", "rainbow",
	}

	Conditions = []string{"NM", "SP", "LP", "MP", "HP", "PO", "DMG"}

	Finishes = []string{"foil", "nonfoil", "etched"}

	Properties = []string{"reserved", "token", "oversize", "funny", "wcd", "commander", "sldpromo"}

	Languages = []string{"jp", "jpn", "ph", "phrexian"}

	Frames = []string{"fullart", "fa", "extendedart", "ea", "showcase", "sc", "borderless", "bd", "reskin", "gold", "retro"}

	Promos = []string{
		"arenaleague", "boosterfun", "bundle", "buyabox", "concept", "confettifoil",
		"doublerainbow", "draculaseries", "draftweekend", "embossed", "galaxyfoil",
		"gameday", "gilded", "glossy", "godzillaseries", "halofoil", "intropack",
		"promo", "judgegift", "neonink", "oilslick", "playpromo", "playerrewards",
		"poster", "prerelease", "promopack", "release", "schinesealtart", "scroll",
		"serialized", "silverfoil", "starterdeck", "stepandcompleat", "surgefoil",
		"textured", "thick", "wizardsplaynetwork",
	}
)

// DefaultCategories returns the category table used by search boxes.
// The empty key selects card names.
func DefaultCategories() []Category {
	return []Category{
		{Name: "names", Keys: []string{"", "n", "name"}, Kind: KindNames, FoldAccents: true},
		{Name: "sets", Keys: []string{"s", "se", "edition"}, Kind: KindSets},
		{Name: "types", Keys: []string{"t", "type"}, Kind: KindTypes},
		{Name: "rarity", Keys: []string{"r", "rarity"}, Kind: KindStatic, Values: Rarities},
		{Name: "color", Keys: []string{"c", "color", "ci", "identity"}, Kind: KindStatic, Values: Colors},
		{Name: "condition", Keys: []string{"cond", "condr", "condb"}, Kind: KindStatic, Values: Conditions},
		{Name: "finish", Keys: []string{"f", "finish"}, Kind: KindStatic, Values: Finishes},
		{Name: "is", Keys: []string{"is"}, Kind: KindStatic, Values: concat(Properties, Frames, Promos, Languages)},
	}
}

func concat(lists ...[]string) []string {
	var out []string
	for _, l := range lists {
		out = append(out, l...)
	}
	return out
}

// normalizeKey lowercases a prefix the way category keys are stored.
func normalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}
