package rule

// yamlRule is one mapping line. Field names follow the text format's
// "dest source span" order.
type yamlRule struct {
	Dest   uint64 `yaml:"dest"`
	Source uint64 `yaml:"source"`
	Span   uint64 `yaml:"span"`
}

// yamlStage is a named table of rules.
type yamlStage struct {
	Name  string     `yaml:"name"`
	Rules []yamlRule `yaml:"rules"`
}

// yamlAlmanacFile represents the top-level structure of an almanac YAML file.
type yamlAlmanacFile struct {
	Name   string      `yaml:"name,omitempty"`
	Seeds  []uint64    `yaml:"seeds"`
	Stages []yamlStage `yaml:"stages"`
}
