package unitdata

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

const stalkerYAML = `
version: 1.0.0
name: Stalker
race: protoss
description: Mobile Protoss ranged unit with Blink.
capabilities: [ground, mechanical]
cost: {mineral: 125, vespene: 50, supply: 2}
unit_stats: {health: 80, shield: 80, armor: 1, speed: 4.13}
abilities:
  blink: {name: Blink, researched: false}
strong_against: [Zergling]
methods:
  - name: move_to
    returns: bool
    params: [{name: target_position, type: Position}]
  - name: blink_to
    params: [{name: target, type: Zergling}]
`

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadFile_YAML(t *testing.T) {
	path := writeFile(t, t.TempDir(), "stalker.yaml", stalkerYAML)
	defs, err := NewLoader(nil, true).LoadFile(path)
	require.NoError(t, err)
	require.Len(t, defs, 1)

	d := defs[0]
	assert.Equal(t, "Protoss", d.Race)
	assert.Equal(t, "ProtossStalker", d.UniqueID())
	assert.Equal(t, 80.0, d.Stats.Shield)
	assert.Equal(t, path, d.Source)
	assert.Equal(t, "Blink", d.Abilities["blink"].Name)
}

func TestLoadFile_JSONList(t *testing.T) {
	body := `[
		{"name": "Zergling", "race": "Zerg", "description": "fast", "cost": {"mineral": 25, "vespene": 0, "supply": 0.5}, "unit_stats": {"health": 35, "armor": 0, "speed": 4.13}},
		{"id": "ZergRoach", "race": "zerg", "description": "armored", "cost": {"mineral": 75, "vespene": 25, "supply": 2}, "unit_stats": {"health": 145, "armor": 1, "speed": 3.15}}
	]`
	path := writeFile(t, t.TempDir(), "zerg.json", body)
	defs, err := NewLoader(nil, true).LoadFile(path)
	require.NoError(t, err)
	require.Len(t, defs, 2)
	assert.Equal(t, "ZergZergling", defs[0].UniqueID())
	assert.Equal(t, "Roach", defs[1].Name)
}

func TestLoadFile_DevModeErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := NewLoader(nil, true).LoadFile(filepath.Join(dir, "absent.yaml"))
	assert.ErrorIs(t, err, ErrUnitFileNotFound)

	_, err = NewLoader(nil, true).LoadFile(writeFile(t, dir, "empty.yaml", "# nothing here\n"))
	assert.ErrorIs(t, err, ErrUnitDataMissing)

	incomplete := writeFile(t, dir, "probe.yaml", "name: Probe\nrace: protoss\nversion: 2.0.0\ncost: {mineral: 50}\n")
	_, err = NewLoader(nil, true).LoadFile(incomplete)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "ProtossProbe", verr.Unit)
	assert.Contains(t, verr.Problems, `unsupported version "2.0.0"`)
	assert.Contains(t, verr.Problems, "missing description")
	assert.Contains(t, verr.Problems, "missing cost.vespene")
	assert.Contains(t, verr.Problems, "missing unit_stats.health")
	assert.NotContains(t, verr.Problems, "missing cost.mineral")
}

func TestLoadFile_LenientModeFillsDefaults(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	path := writeFile(t, t.TempDir(), "probe.yaml", "name: Probe\nrace: aliens\ncapabilities: [teleport]\n")

	defs, err := NewLoader(zap.New(core), false).LoadFile(path)
	require.NoError(t, err)
	require.Len(t, defs, 1)
	assert.Equal(t, "unit description", defs[0].Description)
	assert.Equal(t, "Unknown", defs[0].Race)
	assert.Equal(t, DefaultVersion, defs[0].Version)
	require.Equal(t, 1, logs.FilterMessage("unit definition incomplete, using defaults").Len())
}

func TestLoad_CandidateFileNames(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "siege_tank.yaml", `
name: SiegeTank
race: terran
description: tank
cost: {mineral: 150, vespene: 125, supply: 3}
unit_stats: {health: 175, armor: 1, speed: 3.15}
`)
	d, err := NewLoader(nil, true).Load(dir, "SiegeTank")
	require.NoError(t, err)
	assert.Equal(t, "TerranSiegeTank", d.UniqueID())

	_, err = NewLoader(nil, true).Load(dir, "Thor")
	assert.ErrorIs(t, err, ErrUnitFileNotFound)

	d, err = NewLoader(nil, false).Load(dir, "Thor")
	require.NoError(t, err)
	assert.Equal(t, Default("Thor"), d)
}

func TestCandidateFiles(t *testing.T) {
	names := candidateFiles("HighTemplar")
	assert.Contains(t, names, "HighTemplar.yaml")
	assert.Contains(t, names, "High_Templar.json")
	assert.Contains(t, names, "high_templar.yml")
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "protoss/stalker.yaml", stalkerYAML)
	writeFile(t, dir, "zerg/units.json", `[{"name": "Zergling", "race": "zerg", "description": "fast", "cost": {"mineral": 25, "vespene": 0, "supply": 0.5}, "unit_stats": {"health": 35, "armor": 0, "speed": 4.13}}]`)
	writeFile(t, dir, "notes.txt", "ignored")
	writeFile(t, dir, "testdata/broken.yaml", "name: [")
	writeFile(t, dir, "broken.yaml", "name: [")

	defs, err := NewLoader(nil, false).LoadDir(dir)
	require.NoError(t, err)
	require.Len(t, defs, 2)
	assert.Equal(t, "ProtossStalker", defs[0].UniqueID())
	assert.Equal(t, "ZergZergling", defs[1].UniqueID())

	_, err = NewLoader(nil, true).LoadDir(dir)
	assert.Error(t, err)
}

func TestLoadDir_SampleCatalog(t *testing.T) {
	defs, err := NewLoader(nil, true).LoadDir(filepath.Join("..", "..", "data", "units"))
	require.NoError(t, err)
	ids := make([]string, len(defs))
	for i, d := range defs {
		ids[i] = d.UniqueID()
	}
	assert.Equal(t, []string{
		"TerranMarauder", "TerranMarine", "TerranMedivac", "TerranSiegeTank",
		"ZergBaneling", "ZergRoach", "ZergZergling",
	}, ids)
}
