package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"

	"docarchive/internal/archive"
)

// LoadArchiveFile reads archive options from a TOML file. Keys may sit at the
// top level or under an [archive] table:
//
//	[archive]
//	name = "archives"
//	overrideRemove = true
//	exclude = ["roles", "role-assignment"]
//	restoreOriginalId = true
func LoadArchiveFile(path string) (archive.Options, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return archive.Options{}, fmt.Errorf("read archive config: %w", err)
	}

	var data map[string]any
	if err := toml.Unmarshal(raw, &data); err != nil {
		return archive.Options{}, fmt.Errorf("parse archive config %s: %w", path, err)
	}

	if table, ok := data["archive"]; ok {
		section, isTable := table.(map[string]any)
		if !isTable || len(data) > 1 {
			return archive.Options{}, fmt.Errorf("parse archive config %s: [archive] must be the only table", path)
		}
		data = section
	}

	opts, err := archive.ParseOptions(data)
	if err != nil {
		return archive.Options{}, fmt.Errorf("archive config %s: %w", path, err)
	}
	return opts, nil
}
