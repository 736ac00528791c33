package arena

import (
	"fmt"
	"io/fs"
	"strings"

	"github.com/lafriks/go-tiled"
)

// TMX layer and object group names recognized by LoadTMX.
const (
	wallsLayerName    = "walls"
	spawnsGroupName   = "Spawns"
	flagsGroupName    = "Flags"
	powerUpsGroupName = "PowerUps"
	teamPropName      = "team"
)

// LoadTMX builds an arena from a Tiled map. The tile layer named "walls"
// marks solid tiles, and the object groups "Spawns", "Flags" and "PowerUps"
// carry the anchor points; spawn and flag objects need a "team" property of
// "blue" or "red". Object positions are converted from map pixels to world
// units using the given tile size.
func LoadTMX(fsys fs.FS, path string, tileSize float64) (*Arena, error) {
	m, err := tiled.LoadFile(path, tiled.WithFileSystem(fsys))
	if err != nil {
		return nil, fmt.Errorf("load tmx %s: %w", path, err)
	}

	a := &Arena{
		Width:    m.Width,
		Height:   m.Height,
		TileSize: tileSize,
		solid:    make([]bool, m.Width*m.Height),
	}

	// Anything a layer marks with a tile is treated as solid; maps with a
	// single combined layer just name it "walls".
	haveWalls := false
	for _, layer := range m.Layers {
		if layer.Name != wallsLayerName {
			continue
		}
		haveWalls = true
		for ty := 0; ty < m.Height; ty++ {
			for tx := 0; tx < m.Width; tx++ {
				tile := layer.Tiles[ty*m.Width+tx]
				if !tile.IsNil() {
					a.solid[ty*m.Width+tx] = true
				}
			}
		}
	}
	if !haveWalls {
		return nil, fmt.Errorf("load tmx %s: no %q tile layer", path, wallsLayerName)
	}

	// Object coordinates are in map pixels; rescale to world units.
	scale := tileSize / float64(m.TileWidth)

	haveBlueBase, haveRedBase := false, false
	for _, og := range m.ObjectGroups {
		for _, o := range og.Objects {
			p := Point{X: o.X * scale, Y: o.Y * scale}
			switch og.Name {
			case spawnsGroupName:
				team := o.Properties.GetString(teamPropName)
				switch strings.ToLower(team) {
				case "blue":
					a.blueSpawns = append(a.blueSpawns, p)
				case "red":
					a.redSpawns = append(a.redSpawns, p)
				default:
					return nil, fmt.Errorf("load tmx %s: spawn %q has bad team %q", path, o.Name, team)
				}
			case flagsGroupName:
				team := o.Properties.GetString(teamPropName)
				switch strings.ToLower(team) {
				case "blue":
					a.blueBase = p
					haveBlueBase = true
				case "red":
					a.redBase = p
					haveRedBase = true
				default:
					return nil, fmt.Errorf("load tmx %s: flag %q has bad team %q", path, o.Name, team)
				}
			case powerUpsGroupName:
				a.powerUpSpots = append(a.powerUpSpots, p)
			}
		}
	}

	if !haveBlueBase || !haveRedBase {
		return nil, fmt.Errorf("load tmx %s: missing a flag base object", path)
	}
	if len(a.blueSpawns) == 0 || len(a.redSpawns) == 0 {
		return nil, fmt.Errorf("load tmx %s: missing spawn objects", path)
	}
	return a, nil
}
