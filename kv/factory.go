package kv

import (
	"encoding/json"
	"errors"
)

// Factory builds a Database from its JSON-decoded options. Grounded on the
// teacher's db.GenericFactory pattern, trimmed to the two backends this
// module ships: durable leveldb and ephemeral memory.
type Factory interface {
	NewDatabase() (Database, error)
}

var FactoryRegistry = map[string]func() Factory{}

// RegisterFactory lets the kv/leveldb and kv/memory packages plug
// themselves into the registry without this package importing them back
// (which would create an import cycle).
func RegisterFactory(name string, newFactory func() Factory) {
	FactoryRegistry[name] = newFactory
}

type factoryType struct {
	Type string `json:"type"`
}

// GenericFactory decodes `{"type": "...", "options": {...}}` into the
// concrete Factory registered under that type name.
type GenericFactory struct {
	factoryType
	Factory Factory
}

func (self *GenericFactory) NewDatabase() (Database, error) {
	return self.Factory.NewDatabase()
}

func (self *GenericFactory) UnmarshalJSON(b []byte) error {
	if err := json.Unmarshal(b, &self.factoryType); err != nil {
		return err
	}
	newFactory, ok := FactoryRegistry[self.Type]
	if !ok {
		return errors.New("kv: unknown factory type: " + self.Type)
	}
	self.Factory = newFactory()
	wrapper := struct {
		Options interface{} `json:"options"`
	}{Options: self.Factory}
	return json.Unmarshal(b, &wrapper)
}
