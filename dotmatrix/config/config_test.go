package config

import (
	"testing"

	"github.com/BurntSushi/toml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "Z", cfg.Controls.A)
	assert.Equal(t, "Enter", cfg.Controls.Start)
	assert.Equal(t, 4, cfg.Display.Scale)
	assert.Equal(t, 0, cfg.Speed.FastForwardMultiplier)
}

func TestConfigParsing(t *testing.T) {
	raw := `
[controls]
up = "W"
down = "S"
left = "A"
right = "D"
a = "K"
b = "J"
select = "Space"
start = "Enter"

[display]
scale = 2
palette = "Pocket"
scanlines = true

[speed]
fast_forward_multiplier = 4
`
	var cfg Config
	require.NoError(t, toml.Unmarshal([]byte(raw), &cfg))

	assert.Equal(t, "W", cfg.Controls.Up)
	assert.Equal(t, "K", cfg.Controls.A)
	assert.Equal(t, 2, cfg.Display.Scale)
	assert.True(t, cfg.Display.Scanlines)
	assert.Equal(t, 4, cfg.Speed.FastForwardMultiplier)
}
