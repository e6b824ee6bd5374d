package hdmi

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config names every capture signal the analyzer consumes. Captures from
// different builds of the design expose different probe names; a YAML file
// overrides the defaults.
type Config struct {
	Segmenter   SegmenterConfig `yaml:"segmenter"`
	VerticalBus string          `yaml:"verticalBus"`
	HSyncSignal string          `yaml:"hsyncSignal"`
	VSyncSignal string          `yaml:"vsyncSignal"`
}

func DefaultConfig() Config {
	return Config{
		Segmenter:   DefaultSegmenterConfig(),
		VerticalBus: "vertical_counter",
		HSyncSignal: "video_hsync",
		VSyncSignal: "video_vsync",
	}
}

// LoadConfig reads a YAML analyzer configuration, with defaults applied to
// omitted fields.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	f, err := os.Open(path)
	if err != nil {
		return cfg, err
	}
	defer f.Close()
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if cfg.Segmenter.MaxSamples <= 0 {
		cfg.Segmenter.MaxSamples = MaxIslandSamples
	}
	if len(cfg.Segmenter.ChannelBuses) == 0 {
		cfg.Segmenter.ChannelBuses = DefaultSegmenterConfig().ChannelBuses
	}
	return cfg, nil
}
