package biome

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

const tableSchemaURL = "mem://terrain/biomes.schema.json"

const tableSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["biomes"],
  "properties": {
    "biomes": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["name", "commonness", "regions"],
        "properties": {
          "name": {"type": "string", "minLength": 1},
          "commonness": {"type": "number", "minimum": 0},
          "height_multiplier": {"type": "number"},
          "height_curve": {
            "type": "object",
            "properties": {
              "keys": {
                "type": "array",
                "items": {
                  "type": "object",
                  "required": ["time", "value"],
                  "properties": {
                    "time": {"type": "number"},
                    "value": {"type": "number"},
                    "in_tangent": {"type": "number"},
                    "out_tangent": {"type": "number"}
                  }
                }
              }
            }
          },
          "regions": {
            "type": "array",
            "items": {
              "type": "object",
              "required": ["name", "max_height", "color"],
              "properties": {
                "name": {"type": "string"},
                "max_height": {"type": "number", "minimum": 0, "maximum": 1},
                "color": {"type": "string", "pattern": "^#[0-9a-fA-F]{6}$"}
              }
            }
          }
        }
      }
    }
  }
}`

var compiledSchema = jsonschema.MustCompileString(tableSchemaURL, tableSchema)

type fileTable struct {
	Biomes []fileBiome `yaml:"biomes"`
}

type fileBiome struct {
	Name             string       `yaml:"name"`
	Commonness       float64      `yaml:"commonness"`
	HeightMultiplier *float64     `yaml:"height_multiplier"`
	HeightCurve      *HeightCurve `yaml:"height_curve"`
	Regions          []fileRegion `yaml:"regions"`
}

type fileRegion struct {
	Name      string  `yaml:"name"`
	MaxHeight float64 `yaml:"max_height"`
	Color     string  `yaml:"color"`
}

// Load reads a biome table from a YAML file.
func Load(path string) (Table, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read biomes: %w", err)
	}
	table, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return table, nil
}

// Parse validates raw YAML against the table schema and decodes it. The
// returned table is not normalised.
func Parse(raw []byte) (Table, error) {
	if err := validateSchema(raw); err != nil {
		return nil, err
	}

	var ft fileTable
	if err := yaml.Unmarshal(raw, &ft); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTable, err)
	}

	table := make(Table, 0, len(ft.Biomes))
	for _, fb := range ft.Biomes {
		d := &Definition{
			Name:             fb.Name,
			Commonness:       fb.Commonness,
			HeightMultiplier: 1,
			HeightCurve:      LinearCurve(),
		}
		if fb.HeightMultiplier != nil {
			d.HeightMultiplier = *fb.HeightMultiplier
		}
		if fb.HeightCurve != nil && len(fb.HeightCurve.Keys) > 0 {
			d.HeightCurve = fb.HeightCurve.Clone()
		}
		for _, fr := range fb.Regions {
			c, err := colorful.Hex(strings.TrimSpace(fr.Color))
			if err != nil {
				return nil, fmt.Errorf("%w: biome %q region %q: %v", ErrInvalidTable, fb.Name, fr.Name, err)
			}
			d.Regions = append(d.Regions, AltitudeRegion{Name: fr.Name, MaxHeight: fr.MaxHeight, Color: c})
		}
		table = append(table, d)
	}

	if err := table.Validate(); err != nil {
		return nil, err
	}
	return table, nil
}

// validateSchema runs the YAML document through the JSON schema. YAML is
// converted to its JSON form first so numbers reach the validator as the
// types it expects.
func validateSchema(raw []byte) error {
	var doc interface{}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidTable, err)
	}
	asJSON, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidTable, err)
	}
	var normalized interface{}
	if err := json.Unmarshal(asJSON, &normalized); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidTable, err)
	}
	if err := compiledSchema.Validate(normalized); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidTable, err)
	}
	return nil
}
