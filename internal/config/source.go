package config

import (
	"fmt"
	"maps"

	"github.com/nao1215/boardwatch/internal/extract"
)

// MarkerConfig overrides individual markers. Empty fields keep the base
// marker.
type MarkerConfig struct {
	Preamble    string `yaml:"preamble,omitempty"`
	HeaderStart string `yaml:"headerStart,omitempty"`
	HeaderEnd   string `yaml:"headerEnd,omitempty"`
	BodyStart   string `yaml:"bodyStart,omitempty"`
	BodyEnd     string `yaml:"bodyEnd,omitempty"`
}

func (m *MarkerConfig) apply(base extract.MarkerSet) (extract.MarkerSet, error) {
	pick := func(override string, marker extract.Marker) string {
		if override != "" {
			return override
		}
		return marker.String()
	}
	set, err := extract.NewMarkerSet(
		pick(m.Preamble, base.Preamble),
		pick(m.HeaderStart, base.HeaderStart),
		pick(m.HeaderEnd, base.HeaderEnd),
		pick(m.BodyStart, base.BodyStart),
		pick(m.BodyEnd, base.BodyEnd),
	)
	if err != nil {
		return extract.MarkerSet{}, fmt.Errorf("invalid marker override: %w", err)
	}
	return set, nil
}

// SourceConfig holds the settings for a single board.
type SourceConfig struct {
	// Cookie is sent with every request to the board.
	// Format: "name=value" or "name1=value1; name2=value2"
	Cookie string `yaml:"cookie,omitempty"`

	// Headers are extra HTTP headers for the board.
	Headers map[string]string `yaml:"headers,omitempty"`

	// Legacy selects the older table layout markers.
	Legacy bool `yaml:"legacy,omitempty"`

	// Markers overrides individual markers.
	Markers *MarkerConfig `yaml:"markers,omitempty"`

	// Exclude adds exclusion tokens for this board.
	Exclude []string `yaml:"exclude,omitempty"`
}

// File is the structure of the .boardwatch configuration file.
type File struct {
	// Sources maps board URLs to their settings.
	Sources map[string]SourceConfig `yaml:"sources,omitempty"`

	// Defaults apply to every board unless overridden.
	Defaults SourceConfig `yaml:"defaults,omitempty"`
}

// GetSourceConfig returns the settings for source: defaults overridden by
// the source's own entry. Headers are merged key by key and exclusion
// tokens are concatenated.
func (cf *File) GetSourceConfig(source string) SourceConfig {
	result := cf.Defaults
	result.Headers = maps.Clone(cf.Defaults.Headers)
	result.Exclude = append([]string(nil), cf.Defaults.Exclude...)

	sc, ok := cf.Sources[source]
	if !ok {
		return result
	}
	if sc.Cookie != "" {
		result.Cookie = sc.Cookie
	}
	if len(sc.Headers) > 0 {
		if result.Headers == nil {
			result.Headers = make(map[string]string, len(sc.Headers))
		}
		maps.Copy(result.Headers, sc.Headers)
	}
	if sc.Legacy {
		result.Legacy = true
	}
	if sc.Markers != nil {
		result.Markers = sc.Markers
	}
	result.Exclude = append(result.Exclude, sc.Exclude...)
	return result
}
