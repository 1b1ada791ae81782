package match

import "strings"

// CuisineAliases maps a canonical cuisine key to the substrings that count
// as a match in vendor copy. Aliases follow the product locale (Norwegian)
// with English fallbacks. Matching is plain substring containment, not
// tokenized; short aliases can false-positive inside longer words, which is
// an accepted trade-off for keeping the rule cheap and transparent.
var CuisineAliases = map[string][]string{
	"norwegian":      {"norsk", "skandinavisk", "norwegian"},
	"indian":         {"indisk", "indian"},
	"pakistani":      {"pakistansk", "pakistani"},
	"middle-eastern": {"midtøsten", "middle eastern", "arabisk", "libanesisk"},
	"mediterranean":  {"middelhavet", "mediterranean", "gresk", "tyrkisk"},
	"asian":          {"asiatisk", "asian", "kinesisk", "japansk", "thai"},
	"african":        {"afrikansk", "african", "etiopisk"},
	"mexican":        {"meksikansk", "mexican", "latin"},
	"italian":        {"italiensk", "italian", "pasta"},
	"french":         {"fransk", "french"},
	"american":       {"amerikansk", "american", "bbq", "grill"},
	"fusion":         {"fusion", "moderne"},
	"mixed":          {"blandet", "mixed", "variert"},
}

// MatchCuisines returns the subset of the requested canonical cuisine keys
// whose aliases occur (case-insensitively) in the description or business
// name. Keys without an alias entry match on the key itself. Order follows
// the requested keys; each key is reported at most once.
func MatchCuisines(keys []string, description, businessName string) []string {
	desc := strings.ToLower(description)
	name := strings.ToLower(businessName)

	var matched []string
	for _, key := range keys {
		aliases, ok := CuisineAliases[key]
		if !ok {
			aliases = []string{key}
		}
		for _, alias := range aliases {
			if strings.Contains(desc, alias) || strings.Contains(name, alias) {
				matched = append(matched, key)
				break
			}
		}
	}
	return matched
}
