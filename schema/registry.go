// Copyright 2017 Keydap. All rights reserved.
// Licensed under the Apache License, Version 2.0, see LICENSE.

package schema

import (
	"strings"
	"sync"

	"github.com/pkg/errors"
)

// Process-wide default converters keyed by the attribute type tag.
// They are meant to be installed during program initialization, the
// registry freezes on first read so that concurrent validation never
// observes a mutating map.
type converterRegistry struct {
	mutex         sync.RWMutex
	frozen        bool
	serializers   map[string]ValueConverter
	deserializers map[string]ValueConverter
}

var defConverters = &converterRegistry{
	serializers:   make(map[string]ValueConverter),
	deserializers: make(map[string]ValueConverter),
}

// RegisterDefaultSerializer installs a process-wide serializer for all
// attributes of the given type (e.g. "datetime"). Returns an error when
// called after the first schema operation already read the registry.
func RegisterDefaultSerializer(typeTag string, fn ValueConverter) error {
	return defConverters.register(typeTag, fn, true)
}

// RegisterDefaultDeserializer installs a process-wide deserializer for
// all attributes of the given type. Same freezing rules as
// RegisterDefaultSerializer.
func RegisterDefaultDeserializer(typeTag string, fn ValueConverter) error {
	return defConverters.register(typeTag, fn, false)
}

func (cr *converterRegistry) register(typeTag string, fn ValueConverter, ser bool) error {
	typeTag = strings.ToLower(typeTag)
	if !exists(typeTag, validTypes) {
		return errors.Errorf("unknown attribute type '%s'", typeTag)
	}

	cr.mutex.Lock()
	defer cr.mutex.Unlock()

	if cr.frozen {
		return errors.New("default converter registry is frozen, converters must be registered during initialization")
	}

	if ser {
		cr.serializers[typeTag] = fn
	} else {
		cr.deserializers[typeTag] = fn
	}

	return nil
}

// DefaultSerializer returns the process-wide serializer registered for
// the given type tag, nil if none. The first call freezes the registry.
func DefaultSerializer(typeTag string) ValueConverter {
	return defConverters.get(typeTag, true)
}

// DefaultDeserializer returns the process-wide deserializer registered
// for the given type tag, nil if none. The first call freezes the registry.
func DefaultDeserializer(typeTag string) ValueConverter {
	return defConverters.get(typeTag, false)
}

func (cr *converterRegistry) get(typeTag string, ser bool) ValueConverter {
	cr.mutex.RLock()
	if cr.frozen {
		defer cr.mutex.RUnlock()
		if ser {
			return cr.serializers[strings.ToLower(typeTag)]
		}
		return cr.deserializers[strings.ToLower(typeTag)]
	}
	cr.mutex.RUnlock()

	cr.mutex.Lock()
	cr.frozen = true
	cr.mutex.Unlock()

	return cr.get(typeTag, ser)
}
