package stats

import (
	"encoding/json"
	"fmt"
)

// Entity identifies one playable character on the cabinet.
// Values match the character ids sent by the cabinet stream.
type Entity int

const (
	GoldQueen   Entity = 1
	BlueQueen   Entity = 2
	GoldStripes Entity = 3
	BlueStripes Entity = 4
	GoldAbs     Entity = 5
	BlueAbs     Entity = 6
	GoldSkulls  Entity = 7
	BlueSkulls  Entity = 8
	GoldChecks  Entity = 9
	BlueChecks  Entity = 10
)

// Entities lists every tracked character in cabinet order.
var Entities = []Entity{
	GoldQueen,
	BlueQueen,
	GoldStripes,
	BlueStripes,
	GoldAbs,
	BlueAbs,
	GoldSkulls,
	BlueSkulls,
	GoldChecks,
	BlueChecks,
}

var entityNames = map[Entity]string{
	GoldQueen:   "gold_queen",
	BlueQueen:   "blue_queen",
	GoldStripes: "gold_stripes",
	BlueStripes: "blue_stripes",
	GoldAbs:     "gold_abs",
	BlueAbs:     "blue_abs",
	GoldSkulls:  "gold_skulls",
	BlueSkulls:  "blue_skulls",
	GoldChecks:  "gold_checks",
	BlueChecks:  "blue_checks",
}

// Valid reports whether e is one of the ten known characters.
func (e Entity) Valid() bool {
	return e >= GoldQueen && e <= BlueChecks
}

// IsQueen reports whether e is the primary role of its team.
// Kills of a queen are counted as queen_kills for the attacker.
func (e Entity) IsQueen() bool {
	return e == GoldQueen || e == BlueQueen
}

// Team returns "gold" or "blue", or "" for an unknown entity.
func (e Entity) Team() string {
	if !e.Valid() {
		return ""
	}
	if e%2 == 1 {
		return "gold"
	}
	return "blue"
}

func (e Entity) String() string {
	if name, ok := entityNames[e]; ok {
		return name
	}
	return fmt.Sprintf("entity(%d)", int(e))
}

// Statistic is one of the counters kept per entity.
type Statistic string

const (
	Kills      Statistic = "kills"
	QueenKills Statistic = "queen_kills"
	OtherKills Statistic = "other_kills"
	Deaths     Statistic = "deaths"
)

// Statistics lists every counter kind in report order.
var Statistics = []Statistic{Kills, QueenKills, OtherKills, Deaths}

// Valid reports whether s is a known counter kind.
func (s Statistic) Valid() bool {
	switch s {
	case Kills, QueenKills, OtherKills, Deaths:
		return true
	default:
		return false
	}
}

// Key addresses a single counter.
type Key struct {
	Entity    Entity
	Statistic Statistic
}

// Change is the payload delivered to change subscribers.
type Change struct {
	Entity    Entity    `json:"character"`
	Statistic Statistic `json:"statistic"`
	Value     int       `json:"value"`
}

// CounterSet holds the four counters of one entity.
type CounterSet map[Statistic]int

// State maps every entity to its counters.
type State map[Entity]CounterSet

// NewState returns a zeroed state covering every entity and statistic.
func NewState() State {
	state := make(State, len(Entities))
	for _, e := range Entities {
		counters := make(CounterSet, len(Statistics))
		for _, s := range Statistics {
			counters[s] = 0
		}
		state[e] = counters
	}
	return state
}

// Copy returns a deep copy of the state.
func (s State) Copy() State {
	out := make(State, len(s))
	for e, counters := range s {
		cp := make(CounterSet, len(counters))
		for k, v := range counters {
			cp[k] = v
		}
		out[e] = cp
	}
	return out
}

// MarshalJSON encodes the state keyed by character id, matching the
// shape consumers of the stat stream keep on their side.
func (s State) MarshalJSON() ([]byte, error) {
	out := make(map[string]CounterSet, len(s))
	for e, counters := range s {
		out[fmt.Sprintf("%d", int(e))] = counters
	}
	return json.Marshal(out)
}
