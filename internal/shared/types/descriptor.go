package types

import "sort"

// Action is a secondary launch entry declared by a descriptor ("New Window")
type Action struct {
	ID   string   `json:"id" toml:"id" yaml:"id"`
	Name string   `json:"name" toml:"name" yaml:"name"`
	Exec string   `json:"exec,omitempty" toml:"exec" yaml:"exec"`
	Args []string `json:"args,omitempty" toml:"args" yaml:"args"`
}

// IconSource points at an icon image; rendering happens elsewhere
type IconSource struct {
	Path string `json:"path" toml:"path" yaml:"path"`
	Size int    `json:"size" toml:"size" yaml:"size"`
	MIME string `json:"mime,omitempty" toml:"mime" yaml:"mime"`
}

// IconSet holds the icon variants of one application
type IconSet []IconSource

// Lookup returns the smallest icon at least size pixels wide, or the
// largest one available when none is big enough.
func (s IconSet) Lookup(size int) (IconSource, bool) {
	if len(s) == 0 {
		return IconSource{}, false
	}

	sorted := make(IconSet, len(s))
	copy(sorted, s)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Size < sorted[j].Size })

	for _, icon := range sorted {
		if icon.Size >= size {
			return icon, true
		}
	}
	return sorted[len(sorted)-1], true
}

// Descriptor is the read-only record of an installed application
type Descriptor struct {
	ID             string            `json:"id" toml:"id" yaml:"id"`
	Name           string            `json:"name" toml:"name" yaml:"name"`
	GenericName    string            `json:"generic_name,omitempty" toml:"generic_name" yaml:"generic_name"`
	Description    string            `json:"description,omitempty" toml:"description" yaml:"description"`
	Icons          IconSet           `json:"icons,omitempty" toml:"icons" yaml:"icons"`
	Exec           string            `json:"exec" toml:"exec" yaml:"exec"`
	Args           []string          `json:"args,omitempty" toml:"args" yaml:"args"`
	Env            map[string]string `json:"env,omitempty" toml:"env" yaml:"env"`
	WorkingDir     string            `json:"working_dir,omitempty" toml:"working_dir" yaml:"working_dir"`
	Terminal       bool              `json:"terminal,omitempty" toml:"terminal" yaml:"terminal"`
	StartupWMClass string            `json:"startup_wm_class,omitempty" toml:"startup_wm_class" yaml:"startup_wm_class"`
	MultiInstance  bool              `json:"multi_instance,omitempty" toml:"multi_instance" yaml:"multi_instance"`
	NoDisplay      bool              `json:"no_display,omitempty" toml:"no_display" yaml:"no_display"`
	Actions        []Action          `json:"actions,omitempty" toml:"actions" yaml:"actions"`
}

// Action finds a declared action by id
func (d *Descriptor) Action(id string) (Action, bool) {
	for _, a := range d.Actions {
		if a.ID == id {
			return a, true
		}
	}
	return Action{}, false
}

// DescriptorMetadata contains summary information about a descriptor
type DescriptorMetadata struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	GenericName   string   `json:"generic_name,omitempty"`
	Description   string   `json:"description,omitempty"`
	Icon          string   `json:"icon,omitempty"`
	MultiInstance bool     `json:"multi_instance"`
	Actions       []string `json:"actions,omitempty"`
}

// ToMetadata extracts metadata from a descriptor
func (d *Descriptor) ToMetadata() DescriptorMetadata {
	meta := DescriptorMetadata{
		ID:            d.ID,
		Name:          d.Name,
		GenericName:   d.GenericName,
		Description:   d.Description,
		MultiInstance: d.MultiInstance,
	}
	if icon, ok := d.Icons.Lookup(48); ok {
		meta.Icon = icon.Path
	}
	for _, a := range d.Actions {
		meta.Actions = append(meta.Actions, a.ID)
	}
	return meta
}

// RegistryStats contains descriptor catalog statistics
type RegistryStats struct {
	TotalDescriptors int `json:"total_descriptors"`
	Hidden           int `json:"hidden"`
	Failed           int `json:"failed"`
}
