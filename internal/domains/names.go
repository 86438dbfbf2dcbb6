package domains

import (
	"fmt"
	"math/rand"
)

// Word lists for generated hostnames. Short, readable, unembarrassing.
var (
	adjectives = []string{
		"brave", "calm", "clever", "cosmic", "crisp", "eager", "fancy",
		"gentle", "golden", "happy", "humble", "jolly", "lively", "lucky",
		"mellow", "nimble", "polite", "proud", "quiet", "rapid", "shiny",
		"silent", "smooth", "sunny", "swift", "tidy", "vivid", "warm",
		"wise", "witty",
	}
	nouns = []string{
		"badger", "canyon", "cedar", "comet", "coral", "crane", "dune",
		"eagle", "falcon", "fjord", "garden", "glacier", "harbor", "heron",
		"island", "lagoon", "lantern", "maple", "meadow", "orchid", "otter",
		"pebble", "pine", "prairie", "raven", "reef", "river", "sparrow",
		"summit", "willow",
	}
)

// NewHostname allocates a random adjective-noun-number hostname under the
// given zone, e.g. "brave-eagle-4821.example". One draw only; if the
// registry reports the name as taken, the caller fails the creation
// rather than retrying silently.
func NewHostname(zone string) string {
	adj := adjectives[rand.Intn(len(adjectives))]
	noun := nouns[rand.Intn(len(nouns))]
	n := 1000 + rand.Intn(9000)
	return fmt.Sprintf("%s-%s-%d.%s", adj, noun, n, zone)
}
