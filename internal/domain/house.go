package domain

import "strings"

// HouseKey identifies one of the four fixed houses.
type HouseKey string

const (
	Gryffindor HouseKey = "GRYFFINDOR"
	Hufflepuff HouseKey = "HUFFLEPUFF"
	Ravenclaw  HouseKey = "RAVENCLAW"
	Slytherin  HouseKey = "SLYTHERIN"
)

// SentinelRoleName is the role held by members that have not been sorted yet.
const SentinelRoleName = "Muggles"

// House describes one sortable house. Immutable after process start.
type House struct {
	Key         HouseKey
	Name        string
	Emoji       string
	Color       int
	Traits      string
	Description string
}

// Houses is the registry in iteration order. Order matters: the guild scan
// resolves multi-role members by first match over this slice.
var Houses = []House{
	{
		Key:         Gryffindor,
		Name:        "Gryffindor",
		Emoji:       "🦁",
		Color:       0x740001,
		Traits:      "Courage, Bravery, Determination",
		Description: "Where dwell the brave at heart. Their daring, nerve, and chivalry set Gryffindors apart.",
	},
	{
		Key:         Hufflepuff,
		Name:        "Hufflepuff",
		Emoji:       "🦡",
		Color:       0xFFD800,
		Traits:      "Loyalty, Patience, Hard Work",
		Description: "Where they are just and loyal. Patient Hufflepuffs are true and unafraid of toil.",
	},
	{
		Key:         Ravenclaw,
		Name:        "Ravenclaw",
		Emoji:       "🦅",
		Color:       0x0E1A40,
		Traits:      "Intelligence, Wisdom, Creativity",
		Description: "Where those of wit and learning will always find their kind. If you have a ready mind.",
	},
	{
		Key:         Slytherin,
		Name:        "Slytherin",
		Emoji:       "🐍",
		Color:       0x1A472A,
		Traits:      "Ambition, Cunning, Leadership",
		Description: "Those cunning folk use any means to achieve their ends. Resourceful and ambitious.",
	},
}

// HouseByKey returns the house for key. The second return is false for keys
// outside the registry.
func HouseByKey(key HouseKey) (House, bool) {
	for _, h := range Houses {
		if h.Key == key {
			return h, true
		}
	}
	return House{}, false
}

// ParseHouseKey normalizes free-form input ("gryffindor", " SLYTHERIN ") into
// a registry key.
func ParseHouseKey(raw string) (HouseKey, bool) {
	key := HouseKey(strings.ToUpper(strings.TrimSpace(raw)))
	if _, ok := HouseByKey(key); !ok {
		return "", false
	}
	return key, true
}
