// Package backend keeps a registry of datacache.Backend implementations
// that can be constructed from configuration maps.
package backend

import (
	"context"
	"fmt"
	"sort"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"

	"github.com/bobg/datacache"
)

// Factory constructs a Backend from its configuration.
type Factory func(context.Context, map[string]interface{}) (datacache.Backend, error)

var registry = make(map[string]Factory)

// Register makes a Factory available under the given type name.
// Backend packages call it from init.
func Register(key string, f Factory) {
	registry[key] = f
}

// Names lists the registered type names in order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Create constructs a Backend of the named type.
func Create(ctx context.Context, key string, conf map[string]interface{}) (datacache.Backend, error) {
	f, ok := registry[key]
	if !ok {
		return nil, fmt.Errorf("key %s not found in registry", key)
	}
	return f(ctx, conf)
}

// FromConfig constructs a Backend whose type is named by conf's "type" entry.
func FromConfig(ctx context.Context, conf map[string]interface{}) (datacache.Backend, error) {
	typ, ok := conf["type"].(string)
	if !ok {
		return nil, errors.New(`missing "type" parameter`)
	}
	return Create(ctx, typ, conf)
}

// Nested constructs the Backend described by conf's "nested" entry.
// Wrapping backends use it.
func Nested(ctx context.Context, conf map[string]interface{}) (datacache.Backend, error) {
	nested, ok := conf["nested"].(map[string]interface{})
	if !ok {
		return nil, errors.New(`missing "nested" parameter`)
	}
	if _, ok := nested["type"].(string); !ok {
		return nil, errors.New(`"nested" parameter missing "type"`)
	}
	b, err := FromConfig(ctx, nested)
	return b, errors.Wrap(err, "creating nested backend")
}

// Decode copies the parameters in conf into the struct pointed to by out,
// using mapstructure tags.
// Unrecognized parameters (such as "type" and "nested") are ignored.
func Decode(conf map[string]interface{}, out interface{}) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return errors.Wrap(err, "creating config decoder")
	}
	return errors.Wrap(dec.Decode(conf), "decoding config")
}
