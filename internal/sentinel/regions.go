package sentinel

import (
	"strings"

	"github.com/paulmach/orb"

	"github.com/safe-ro/safe-ro/internal/utils"
)

func bound(minLon, minLat, maxLon, maxLat float64) orb.Bound {
	return orb.Bound{Min: orb.Point{minLon, minLat}, Max: orb.Point{maxLon, maxLat}}
}

// Regions monitored by default.
var Regions = map[string]orb.Bound{
	"Fagaras":   bound(24.5, 45.5, 25.5, 46.0),
	"Iasi":      bound(27.5, 47.0, 27.8, 47.3),
	"Timisoara": bound(21.1, 45.6, 21.4, 45.9),
	"Craiova":   bound(23.7, 44.2, 24.0, 44.5),
	"Constanta": bound(28.5, 44.1, 28.8, 44.4),
	"Baia Mare": bound(23.4, 47.5, 23.7, 47.8),
	"Bucuresti": bound(25.9, 44.3, 26.2, 44.6),
	"Cluj":      bound(23.5, 46.7, 23.8, 47.0),
}

// Region looks a region up ignoring case.
func Region(name string) (string, orb.Bound, bool) {
	for key, b := range Regions {
		if strings.EqualFold(key, strings.TrimSpace(name)) {
			return key, b, true
		}
	}
	return "", orb.Bound{}, false
}

func RegionNames() []string {
	return utils.GetSortedKeys(Regions, true)
}
