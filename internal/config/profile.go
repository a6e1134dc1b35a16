package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	boxerrors "github.com/boxsync/boxsync/internal/errors"
)

// Profile is a named push/fetch preset from the profiles file. Dir and
// FolderID pair a local directory with a remote folder; the remaining
// fields carry the default policy flags for that pair.
type Profile struct {
	Dir       string   `yaml:"dir"`
	FolderID  string   `yaml:"folder_id"`
	Overwrite bool     `yaml:"overwrite"`
	Delete    bool     `yaml:"delete"`
	Exclude   []string `yaml:"exclude"`
}

type profilesFile struct {
	Profiles map[string]Profile `yaml:"profiles"`
}

// LoadProfiles reads the profiles file at path. A missing file is not an
// error and yields an empty map, so commands can report a lookup failure
// instead of a parse failure.
func LoadProfiles(path string) (map[string]Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]Profile{}, nil
		}

		return nil, fmt.Errorf("reading profiles file: %w", err)
	}

	var pf profilesFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("parsing profiles file %s: %w", path, err)
	}

	for name, p := range pf.Profiles {
		if p.Dir == "" {
			return nil, fmt.Errorf("profile %q: dir is required", name)
		}

		if p.FolderID == "" {
			return nil, fmt.Errorf("profile %q: folder_id is required", name)
		}
	}

	if pf.Profiles == nil {
		pf.Profiles = map[string]Profile{}
	}

	return pf.Profiles, nil
}

// Profile looks up a named profile from the configured profiles file.
func (c *Config) Profile(name string) (*Profile, error) {
	profiles, err := LoadProfiles(c.ProfilesFile)
	if err != nil {
		return nil, err
	}

	p, ok := profiles[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (file %s)", boxerrors.ErrProfileNotFound, name, c.ProfilesFile)
	}

	return &p, nil
}
