// Package contracts holds the JSON schemas of the files under the data root.
package contracts

import (
	"embed"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"imperium_gate/internal/domain"
)

//go:embed schemas/*.json
var schemaFS embed.FS

type Kind string

const (
	KindProject  Kind = "project"
	KindManifest Kind = "manifest"
	// KindOther covers files with no contract (consolidated summaries, splitter indexes).
	KindOther Kind = ""
)

var compiled = map[Kind]*jsonschema.Schema{
	KindProject:  mustCompile("project.v1.json"),
	KindManifest: mustCompile("manifest.v1.json"),
}

func mustCompile(name string) *jsonschema.Schema {
	f, err := schemaFS.Open("schemas/" + name)
	if err != nil {
		panic(fmt.Sprintf("open schema %s: %v", name, err))
	}
	defer f.Close()

	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft7
	if err := c.AddResource(name, f); err != nil {
		panic(fmt.Sprintf("add schema %s: %v", name, err))
	}
	return c.MustCompile(name)
}

// KindOf classifies a data-root file by name.
func KindOf(path string) Kind {
	base := filepath.Base(path)
	switch {
	case base == domain.ManifestFile:
		return KindManifest
	case base == domain.ConsolidatedFile, strings.HasSuffix(base, domain.ChunksIndexExt):
		return KindOther
	case strings.HasSuffix(strings.ToLower(base), ".json"):
		return KindProject
	}
	return KindOther
}

// Validate checks body against the schema of kind. A project file may hold a
// single object or an array of them; each element is checked.
func Validate(kind Kind, body []byte) error {
	schema, ok := compiled[kind]
	if !ok {
		return nil
	}
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return fmt.Errorf("not valid JSON: %w", err)
	}
	if arr, isArr := v.([]any); isArr && kind == KindProject {
		for i, it := range arr {
			if err := schema.Validate(it); err != nil {
				return fmt.Errorf("item %d: %w", i, err)
			}
		}
		return nil
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	return nil
}
