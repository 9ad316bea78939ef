// Package config loads the daemon's (section, key, value) configuration
// file over gopkg.in/ini.v1, spec.md §6: a built-in defaults file merged
// with an optional user override, preserving unknown keys untouched.
package config

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/ini.v1"
)

type SoundMode string

const (
	SoundOff       SoundMode = "off"
	SoundOn        SoundMode = "on"
	SoundMovesOnly SoundMode = "moves-only"
)

type UpdateChannel string

const (
	ChannelStable  UpdateChannel = "stable"
	ChannelNightly UpdateChannel = "nightly"
)

type BoardOrientation string

const (
	OrientationAuto       BoardOrientation = "auto"
	OrientationWhiteSouth BoardOrientation = "white-south"
	OrientationBlackSouth BoardOrientation = "black-south"
)

// Config holds every recognized option from spec.md §6. The underlying
// ini.File is kept so Save can round-trip unknown keys untouched.
type Config struct {
	Sound                   SoundMode
	InactivityTimeoutS      int
	InactivityWarningS      int
	LichessAPIToken         string
	LichessEloMin           int
	LichessEloMax           int
	MenuVisibility          map[string]bool
	UpdateChannel           UpdateChannel
	BoardOrientation        BoardOrientation
	DiscoverabilityWindowS  int

	file *ini.File
	path string
}

const section = "boardd"

func defaults() *Config {
	return &Config{
		Sound:                  SoundOn,
		InactivityTimeoutS:     900,
		InactivityWarningS:     120,
		LichessEloMin:          1000,
		LichessEloMax:          2000,
		MenuVisibility:         map[string]bool{},
		UpdateChannel:          ChannelStable,
		BoardOrientation:       OrientationAuto,
		DiscoverabilityWindowS: 120,
	}
}

// Load reads defaultsPath (the built-in defaults file, always present)
// and then overlays userPath if it exists, preserving any key userPath
// sets that this daemon doesn't recognize.
func Load(defaultsPath, userPath string) (*Config, error) {
	cfg := defaults()

	f, err := ini.LoadSources(ini.LoadOptions{Loose: true, AllowBooleanKeys: true}, defaultsPath)
	if err != nil {
		return nil, fmt.Errorf("config: load defaults %s: %w", defaultsPath, err)
	}
	if userPath != "" {
		if err := f.Append(userPath); err != nil {
			return nil, fmt.Errorf("config: load overrides %s: %w", userPath, err)
		}
	}
	cfg.file = f
	cfg.path = userPath
	cfg.applyFromFile()
	return cfg, nil
}

func (c *Config) applyFromFile() {
	sec := c.file.Section(section)

	if v := sec.Key("sound").String(); v != "" {
		c.Sound = SoundMode(v)
	}
	if v, err := sec.Key("inactivity_timeout_s").Int(); err == nil {
		c.InactivityTimeoutS = v
	}
	if v, err := sec.Key("inactivity_warning_s").Int(); err == nil {
		c.InactivityWarningS = v
	}
	if v := sec.Key("lichess_api_token").String(); v != "" {
		c.LichessAPIToken = v
	}
	if v := sec.Key("lichess_elo_range").String(); v != "" {
		if lo, hi, ok := parseEloRange(v); ok {
			c.LichessEloMin, c.LichessEloMax = lo, hi
		}
	}
	if v := sec.Key("menu_visibility").String(); v != "" {
		c.MenuVisibility = parseMenuSet(v)
	}
	if v := sec.Key("update_channel").String(); v != "" {
		c.UpdateChannel = UpdateChannel(v)
	}
	if v := sec.Key("board_orientation").String(); v != "" {
		c.BoardOrientation = BoardOrientation(v)
	}
	if v, err := sec.Key("discoverability_window_s").Int(); err == nil {
		c.DiscoverabilityWindowS = v
	}
}

func parseEloRange(s string) (lo, hi int, ok bool) {
	parts := strings.SplitN(s, "-", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	lo, errLo := strconv.Atoi(strings.TrimSpace(parts[0]))
	hi, errHi := strconv.Atoi(strings.TrimSpace(parts[1]))
	if errLo != nil || errHi != nil {
		return 0, 0, false
	}
	return lo, hi, true
}

func parseMenuSet(s string) map[string]bool {
	out := map[string]bool{}
	for _, id := range strings.Split(s, ",") {
		id = strings.TrimSpace(id)
		if id != "" {
			out[id] = true
		}
	}
	return out
}

// Save writes recognized keys back into the loaded ini.File's in-memory
// sections and persists to the user override path, leaving every
// unrecognized key that was already in the file untouched.
func (c *Config) Save() error {
	if c.file == nil || c.path == "" {
		return fmt.Errorf("config: no user override path to save to")
	}
	sec := c.file.Section(section)
	sec.Key("sound").SetValue(string(c.Sound))
	sec.Key("inactivity_timeout_s").SetValue(strconv.Itoa(c.InactivityTimeoutS))
	sec.Key("inactivity_warning_s").SetValue(strconv.Itoa(c.InactivityWarningS))
	sec.Key("lichess_api_token").SetValue(c.LichessAPIToken)
	sec.Key("lichess_elo_range").SetValue(fmt.Sprintf("%d-%d", c.LichessEloMin, c.LichessEloMax))

	ids := make([]string, 0, len(c.MenuVisibility))
	for id := range c.MenuVisibility {
		ids = append(ids, id)
	}
	sec.Key("menu_visibility").SetValue(strings.Join(ids, ","))
	sec.Key("update_channel").SetValue(string(c.UpdateChannel))
	sec.Key("board_orientation").SetValue(string(c.BoardOrientation))
	sec.Key("discoverability_window_s").SetValue(strconv.Itoa(c.DiscoverabilityWindowS))

	return c.file.SaveTo(c.path)
}
