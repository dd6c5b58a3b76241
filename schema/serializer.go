package schema

import (
	"strings"
	"sync"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// typeRewrites normalizes abstract tags before they are turned into caster names
var typeRewrites = map[DataType]string{
	DateTime:      "date_time",
	Timestamp:     "date_time",
	DateTimePoint: "integer",
	Enumerable:    "value",
	Text:          "string",
	"bool":        "boolean",
	"int":         "integer",
}

// zoned casters are bound to a time location
var zonedCasters = map[string]bool{
	"DateTime": true,
	"Date":     true,
	"Time":     true,
}

// CasterName converts an abstract tag to its caster class name, datetime => DateTime
func CasterName(tag DataType) string {
	name := strings.ToLower(strings.TrimSpace(string(tag)))
	if rewrite, ok := typeRewrites[DataType(name)]; ok {
		name = rewrite
	}

	caser := cases.Title(language.Und)
	var buf strings.Builder
	for _, segment := range strings.Split(name, "_") {
		buf.WriteString(caser.String(segment))
	}
	return buf.String()
}

// CasterRegistry maps caster class names to factories and caches built casters
type CasterRegistry struct {
	factories sync.Map
	casters   sync.Map
}

// NewCasterRegistry returns a registry with the builtin casters
func NewCasterRegistry() *CasterRegistry {
	registry := &CasterRegistry{}
	registry.Register("String", func(*time.Location) Caster { return stringCaster{} })
	registry.Register("Integer", func(*time.Location) Caster { return integerCaster{} })
	registry.Register("Float", func(*time.Location) Caster { return floatCaster{} })
	registry.Register("Decimal", func(*time.Location) Caster { return decimalCaster{} })
	registry.Register("Boolean", func(*time.Location) Caster { return booleanCaster{} })
	registry.Register("Value", func(*time.Location) Caster { return valueCaster{} })
	registry.Register("Binary", func(*time.Location) Caster { return binaryCaster{} })
	registry.Register("Json", func(*time.Location) Caster { return jsonCaster{} })
	registry.Register("Uuid", func(*time.Location) Caster { return uuidCaster{} })
	registry.Register("DateTime", func(loc *time.Location) Caster { return dateTimeCaster{location: loc} })
	registry.Register("Date", func(loc *time.Location) Caster { return dateCaster{location: loc} })
	registry.Register("Time", func(loc *time.Location) Caster { return timeCaster{location: loc} })
	return registry
}

// Register registers a caster factory under a class name, replacing any previous one
func (r *CasterRegistry) Register(name string, factory CasterFactory) {
	r.factories.Store(name, factory)
	r.casters.Range(func(key, _ interface{}) bool {
		if k := key.(string); k == name || strings.HasPrefix(k, name+"@") {
			r.casters.Delete(key)
		}
		return true
	})
}

// Lookup returns the factory registered for a class name
func (r *CasterRegistry) Lookup(name string) (CasterFactory, bool) {
	v, ok := r.factories.Load(name)
	if !ok {
		return nil, false
	}
	return v.(CasterFactory), true
}

// Resolve returns the caster for an abstract tag, a nil location means UTC
func (r *CasterRegistry) Resolve(tag DataType, location *time.Location) (Caster, error) {
	name := CasterName(tag)
	if location == nil {
		location = time.UTC
	}

	key := name
	if zonedCasters[name] {
		key = name + "@" + location.String()
	}

	if v, ok := r.casters.Load(key); ok {
		return v.(Caster), nil
	}

	factory, ok := r.Lookup(name)
	if !ok || name == "" {
		return nil, &UnknownTypeError{Tag: tag}
	}

	v, _ := r.casters.LoadOrStore(key, factory(location))
	return v.(Caster), nil
}

// DefaultCasters registry used when no registry is configured
var DefaultCasters = NewCasterRegistry()

// RegisterCaster registers a caster factory on DefaultCasters
func RegisterCaster(name string, factory CasterFactory) {
	DefaultCasters.Register(name, factory)
}

// Resolve resolves a tag against DefaultCasters
func Resolve(tag DataType, location *time.Location) (Caster, error) {
	return DefaultCasters.Resolve(tag, location)
}
