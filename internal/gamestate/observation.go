package gamestate

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Alliance codes as reported by the game client.
const (
	AllianceSelf    = 1
	AllianceAlly    = 2
	AllianceNeutral = 3
	AllianceEnemy   = 4
)

// UnitInfo is one entry of an observation's unit_info list.
type UnitInfo struct {
	UnitName  string    `json:"unit_name"`
	UnitType  int       `json:"unit_type,omitempty"`
	Tag       uint64    `json:"tag,omitempty"`
	Alliance  int       `json:"alliance"`
	Health    float64   `json:"health"`
	MaxHealth float64   `json:"max_health"`
	Shield    float64   `json:"shield,omitempty"`
	MaxShield float64   `json:"max_shield,omitempty"`
	Energy    float64   `json:"energy"`
	Position  []float64 `json:"position,omitempty"`
}

// Observation is the per-tick input handed over by the agent loop.
type Observation struct {
	UnitInfo  []UnitInfo `json:"unit_info"`
	Text      string     `json:"text,omitempty"`
	Step      int        `json:"step,omitempty"`
	Minerals  float64    `json:"minerals,omitempty"`
	Vespene   float64    `json:"vespene,omitempty"`
	GameStage string     `json:"game_stage,omitempty"`
}

// Friendly reports whether the unit belongs to the controlled player. Every
// other alliance code counts as hostile for scoring purposes.
func (u UnitInfo) Friendly() bool { return u.Alliance == AllianceSelf }

// Name returns the unit name, falling back to the well-known unit id table.
func (u UnitInfo) Name() string {
	if u.UnitName != "" {
		return u.UnitName
	}
	return UnitName(u.UnitType)
}

// BaseType strips the instance suffix: "Marine_3" becomes "Marine".
func (u UnitInfo) BaseType() string {
	return BaseType(u.Name())
}

// X and Y return the position components, zero when absent.
func (u UnitInfo) X() float64 {
	if len(u.Position) > 0 {
		return u.Position[0]
	}
	return 0
}

func (u UnitInfo) Y() float64 {
	if len(u.Position) > 1 {
		return u.Position[1]
	}
	return 0
}

// BaseType returns the part of a unit instance name before the first underscore.
func BaseType(name string) string {
	if i := strings.IndexByte(name, '_'); i >= 0 {
		return name[:i]
	}
	return name
}

// Split partitions the observation into friendly and hostile units.
func (o Observation) Split() (friendly, enemy []UnitInfo) {
	for _, u := range o.UnitInfo {
		if u.Friendly() {
			friendly = append(friendly, u)
		} else {
			enemy = append(enemy, u)
		}
	}
	return friendly, enemy
}

func LoadObservation(path string) (Observation, error) {
	var obs Observation
	data, err := os.ReadFile(path)
	if err != nil {
		return obs, fmt.Errorf("failed to read observation: %w", err)
	}
	if err := json.Unmarshal(data, &obs); err != nil {
		return obs, fmt.Errorf("failed to decode observation: %w", err)
	}
	return obs, nil
}
