package gamestate

import (
	"strconv"
	"strings"
)

// Races as used in function ids and catalogs.
const (
	RaceTerran  = "terran"
	RaceProtoss = "protoss"
	RaceZerg    = "zerg"
	RaceUnknown = "unknown"
)

// Races lists the playable races in detection order.
var Races = []string{RaceTerran, RaceProtoss, RaceZerg}

var commonUnitIDs = map[int]string{
	// Protoss
	105: "Zealot", 106: "Stalker", 107: "Sentry", 108: "Adept", 109: "HighTemplar",
	110: "DarkTemplar", 111: "Archon", 113: "Phoenix", 114: "VoidRay", 115: "Oracle",
	116: "Tempest", 117: "Carrier", 118: "Interceptor", 119: "WarpPrism", 120: "Observer",
	121: "Immortal", 122: "Colossus", 123: "Disruptor",
	// Terran
	48: "SCV", 49: "Marine", 50: "Marauder", 51: "Reaper", 52: "Ghost", 53: "Hellion",
	54: "Hellbat", 55: "SiegeTank", 56: "Thor", 57: "Medivac", 58: "Viking", 59: "Banshee",
	60: "Raven", 61: "Battlecruiser", 62: "Liberator",
	// Zerg
	104: "Drone", 11: "Zergling", 12: "Baneling", 13: "Roach", 14: "Ravager", 15: "Hydralisk",
	16: "Lurker", 17: "Mutalisk", 18: "Corruptor", 19: "Viper", 20: "SwarmHost",
	21: "Ultralisk", 22: "Infestor", 23: "Queen", 24: "Overlord",
}

// UnitName maps a numeric unit type to its name, or the decimal id when unknown.
func UnitName(unitType int) string {
	if name, ok := commonUnitIDs[unitType]; ok {
		return name
	}
	return strconv.Itoa(unitType)
}

var raceKeywords = map[string][]string{
	RaceProtoss: {"zealot", "stalker", "phoenix", "immortal", "archon", "sentry", "hightemplar", "darktemplar",
		"colossus", "observer", "warp prism", "carrier", "tempest", "void ray", "protoss"},
	RaceTerran: {"marine", "marauder", "reaper", "ghost", "hellbat", "siegetank", "thor", "medivac", "viking",
		"banshee", "raven", "battlecruiser", "liberator", "terran"},
	RaceZerg: {"zergling", "baneling", "roach", "ravager", "hydralisk", "lurker", "mutalisk", "corruptor",
		"viper", "ultralisk", "infestor", "swarm host", "brood lord", "queen", "drone", "overlord", "zerg"},
}

// DetectRace returns the race of the first unit whose name carries a known
// keyword. Protoss keywords are tested before Terran and Zerg for each unit.
func DetectRace(units []UnitInfo) (string, bool) {
	for _, u := range units {
		name := strings.ToLower(u.Name())
		for _, race := range []string{RaceProtoss, RaceTerran, RaceZerg} {
			for _, kw := range raceKeywords[race] {
				if strings.Contains(name, kw) {
					return race, true
				}
			}
		}
	}
	return RaceUnknown, false
}

// RaceOf infers a race from free text by looking for a race name, in
// Terran, Protoss, Zerg order.
func RaceOf(text string) string {
	lower := strings.ToLower(text)
	for _, race := range Races {
		if strings.Contains(lower, race) {
			return race
		}
	}
	return ""
}

// RacePrefixed turns "Marine" into "TerranMarine" for the given race.
func RacePrefixed(race, base string) string {
	if race == "" || race == RaceUnknown {
		return base
	}
	return strings.ToUpper(race[:1]) + race[1:] + base
}

// StripRacePrefix removes a leading Terran, Protoss or Zerg.
func StripRacePrefix(name string) (string, bool) {
	for _, prefix := range []string{"Terran", "Protoss", "Zerg"} {
		if strings.HasPrefix(name, prefix) && len(name) > len(prefix) {
			return name[len(prefix):], true
		}
	}
	return name, false
}
