package project

import (
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// migrations upgrade a file from the version they are keyed by to the next one. They work on
// the YAML tree so that unknown keys survive the upgrade.
var migrations = map[int]func(p *parser, mapping *yaml.Node) error{ //nolint:gochecknoglobals // registry.
	1: migrateV1,
}

func (p *parser) migrate(mapping *yaml.Node) error {
	version, err := p.version(mapping)
	if err != nil {
		return err
	}
	for ; version < Version; version++ {
		migration, ok := migrations[version]
		if !ok {
			return p.errorAt(lookup(mapping, "version"), fmt.Sprintf("no migration from version %d", version))
		}
		if err = migration(p, mapping); err != nil {
			return err
		}
		lookup(mapping, "version").Value = strconv.Itoa(version + 1)
	}
	return nil
}

// lawSystemDays maps the version 1 law system to the number of days of the case.
var lawSystemDays = map[string]int{ //nolint:gochecknoglobals // lookup table.
	"1": 1, // single trial
	"2": 2, // two day trial
	"3": 3, // three day trial
}

// migrateV1 replaces the law_system key with days and assigns a case id, which version 1 files
// did not have.
func migrateV1(p *parser, mapping *yaml.Node) error {
	if lookup(mapping, "id") == nil {
		mapping.Content = append(mapping.Content, stringNode("id"), stringNode(uuid.NewString()))
	}
	return migrateLawSystem(p, mapping)
}

func migrateLawSystem(p *parser, mapping *yaml.Node) error {
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		key, value := mapping.Content[i], mapping.Content[i+1]
		if key.Value != "law_system" {
			continue
		}
		days, ok := lawSystemDays[value.Value]
		if !ok {
			return p.errorAt(value, fmt.Sprintf("unknown law system %q", value.Value))
		}
		key.Value = "days"
		value.Value = strconv.Itoa(days)
		value.Tag = "!!int"
		return nil
	}
	if lookup(mapping, "days") == nil {
		return p.errorAt(mapping, "missing law_system")
	}
	return nil
}

func stringNode(value string) *yaml.Node {
	node := &yaml.Node{} //nolint:exhaustruct // scalar node.
	node.SetString(value)
	return node
}
