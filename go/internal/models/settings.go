package models

import "time"

// Timer setting bounds, in milliseconds unless noted.
const (
	MinGameDuration   int64 = int64(time.Minute / time.Millisecond)
	MaxGameDuration   int64 = int64(60 * time.Minute / time.Millisecond)
	MinRounds               = 1
	MaxRounds               = 20
	MinSirenLength    int64 = 100
	MaxSirenLength    int64 = 10000
	MinSirenPause     int64 = 100
	MaxSirenPause     int64 = 10000
	MaxBreakFraction        = 0.5
	DefaultGame       int64 = int64(21 * time.Minute / time.Millisecond)
	DefaultBreak      int64 = int64(time.Minute / time.Millisecond)
	DefaultRounds           = 3
	DefaultSirenLen   int64 = 1000
	DefaultSirenPause int64 = 1000
)

// Settings configures one timer session. All durations are milliseconds.
type Settings struct {
	GameDuration      int64 `json:"gameDuration" yaml:"game_duration_ms"`
	BreakDuration     int64 `json:"breakDuration" yaml:"break_duration_ms"`
	NumRounds         int   `json:"numRounds" yaml:"num_rounds"`
	BreakTimerEnabled bool  `json:"breakTimerEnabled" yaml:"break_timer_enabled"`
	SirenLength       int64 `json:"sirenLength" yaml:"siren_length_ms"`
	SirenPause        int64 `json:"sirenPause" yaml:"siren_pause_ms"`
}

// SettingsPatch is a partial settings update. Nil fields keep their current value.
type SettingsPatch struct {
	GameDuration      *int64 `json:"gameDuration,omitempty"`
	BreakDuration     *int64 `json:"breakDuration,omitempty"`
	NumRounds         *int   `json:"numRounds,omitempty"`
	BreakTimerEnabled *bool  `json:"breakTimerEnabled,omitempty"`
	SirenLength       *int64 `json:"sirenLength,omitempty"`
	SirenPause        *int64 `json:"sirenPause,omitempty"`
}

// DefaultSettings returns the factory timer settings.
func DefaultSettings() Settings {
	return Settings{
		GameDuration:      DefaultGame,
		BreakDuration:     DefaultBreak,
		NumRounds:         DefaultRounds,
		BreakTimerEnabled: true,
		SirenLength:       DefaultSirenLen,
		SirenPause:        DefaultSirenPause,
	}
}

// Apply overlays the patch on s. The result is not clamped.
func (p SettingsPatch) Apply(s Settings) Settings {
	if p.GameDuration != nil {
		s.GameDuration = *p.GameDuration
	}
	if p.BreakDuration != nil {
		s.BreakDuration = *p.BreakDuration
	}
	if p.NumRounds != nil {
		s.NumRounds = *p.NumRounds
	}
	if p.BreakTimerEnabled != nil {
		s.BreakTimerEnabled = *p.BreakTimerEnabled
	}
	if p.SirenLength != nil {
		s.SirenLength = *p.SirenLength
	}
	if p.SirenPause != nil {
		s.SirenPause = *p.SirenPause
	}
	return s
}

// ClampSettings forces every field into its allowed range. The break limit is
// applied after the game duration is clamped.
func ClampSettings(s Settings) Settings {
	s.GameDuration = clamp(s.GameDuration, MinGameDuration, MaxGameDuration)
	s.NumRounds = int(clamp(int64(s.NumRounds), MinRounds, MaxRounds))
	s.BreakDuration = clamp(s.BreakDuration, 0, int64(float64(s.GameDuration)*MaxBreakFraction))
	s.SirenLength = clamp(s.SirenLength, MinSirenLength, MaxSirenLength)
	s.SirenPause = clamp(s.SirenPause, MinSirenPause, MaxSirenPause)
	return s
}

func clamp(v, lo, hi int64) int64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
