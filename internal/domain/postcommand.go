package domain

import "gopkg.in/yaml.v3"

// PostCommandItem is one entry of a project's post_commands list. It is
// either a raw shell string, a structured command, or a file-replace
// action — the three shapes the YAML list accepts side by side.
type PostCommandItem struct {
	Raw string `yaml:"-" json:"-"`

	Command         string            `yaml:"command,omitempty" json:"command,omitempty"`
	WorkingDir      string            `yaml:"working_dir,omitempty" json:"working_dir,omitempty"`
	Condition       string            `yaml:"condition,omitempty" json:"condition,omitempty"`
	ContinueOnError bool              `yaml:"continue_on_error,omitempty" json:"continue_on_error,omitempty"`
	Environment     map[string]string `yaml:"environment,omitempty" json:"environment,omitempty"`

	File            string `yaml:"file,omitempty" json:"file,omitempty"`
	Pattern         string `yaml:"pattern,omitempty" json:"pattern,omitempty"`
	Replacement     string `yaml:"replacement,omitempty" json:"replacement,omitempty"`
	CreateIfMissing bool   `yaml:"create_if_missing,omitempty" json:"create_if_missing,omitempty"`
}

// IsReplace reports whether this item is a file-replace action rather than
// a shell command.
func (i *PostCommandItem) IsReplace() bool {
	return i.File != ""
}

// ShellCommand returns the command text to execute, covering both the raw
// string shape and the structured command shape.
func (i *PostCommandItem) ShellCommand() string {
	if i.Raw != "" {
		return i.Raw
	}
	return i.Command
}

// UnmarshalYAML accepts either a bare scalar string or a mapping.
func (i *PostCommandItem) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		i.Raw = value.Value
		return nil
	}
	type plain PostCommandItem
	var p plain
	if err := value.Decode(&p); err != nil {
		return err
	}
	*i = PostCommandItem(p)
	return nil
}

// MarshalYAML renders a raw-string item back as a scalar, and a structured
// item as a mapping, so a file round-tripped through the resolver reads
// the way it was written.
func (i PostCommandItem) MarshalYAML() (interface{}, error) {
	if i.Raw != "" {
		return i.Raw, nil
	}
	type plain PostCommandItem
	return plain(i), nil
}
