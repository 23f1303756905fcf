// Copyright 2017 Keydap. All rights reserved.
// Licensed under the Apache License, Version 2.0, see LICENSE.

package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConverterRegistry(t *testing.T) {
	upper := func(v interface{}) interface{} {
		if s, ok := v.(string); ok {
			return s + "!"
		}
		return v
	}

	require.Nil(t, RegisterDefaultSerializer("binary", upper))
	assert.NotNil(t, RegisterDefaultSerializer("no-such-type", upper))

	fn := DefaultSerializer("binary")
	require.NotNil(t, fn)
	assert.Equal(t, "abc!", fn("abc"))

	assert.Nil(t, DefaultSerializer("boolean"))

	// the first read froze the registry
	err := RegisterDefaultSerializer("string", upper)
	assert.NotNil(t, err)

	err = RegisterDefaultDeserializer("string", upper)
	assert.NotNil(t, err)
}
