package conv

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigGet(t *testing.T) {
	cfg := map[string]any{
		"int":       3,
		"float":     0.25,
		"int_str":   " 7 ",
		"float_str": "0.5",
		"bad":       "x",
		"whole":     4.9,
	}

	assert.Equal(t, 3, ConfigGetInt(cfg, "int", 1))
	assert.Equal(t, 7, ConfigGetInt(cfg, "int_str", 1))
	assert.Equal(t, 4, ConfigGetInt(cfg, "whole", 1))
	assert.Equal(t, 1, ConfigGetInt(cfg, "bad", 1))
	assert.Equal(t, 1, ConfigGetInt(cfg, "missing", 1))
	assert.Equal(t, 1, ConfigGetInt(nil, "int", 1))

	assert.Equal(t, 0.25, ConfigGetFloat64(cfg, "float", 0))
	assert.Equal(t, 3.0, ConfigGetFloat64(cfg, "int", 0))
	assert.Equal(t, 0.5, ConfigGetFloat64(cfg, "float_str", 0))
	assert.Equal(t, 0.1, ConfigGetFloat64(cfg, "bad", 0.1))
}
