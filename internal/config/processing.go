package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/banshee-data/mocap.report/internal/filter"
	"github.com/banshee-data/mocap.report/internal/gapfill"
	"github.com/banshee-data/mocap.report/internal/kinetics"
)

// DefaultConfigPath is the path to the canonical processing defaults file.
const DefaultConfigPath = "config/processing.defaults.json"

// ProcessingConfig holds the gap-fill and force-plate tuning. Absent fields
// fall back to the defaults returned by the Get* methods, so partial files
// are safe.
type ProcessingConfig struct {
	// Gap filling
	InterpDegree           *int     `json:"interp_degree,omitempty"`
	SearchSpanOffset       *int     `json:"search_span_offset,omitempty"`
	MinNeededFrames        *int     `json:"min_needed_frames,omitempty"`
	PatternMinNeededFrames *int     `json:"pattern_min_needed_frames,omitempty"`
	FillBoundaryGaps       *bool    `json:"fill_boundary_gaps,omitempty"`
	SmoothingCutoffHz      *float64 `json:"smoothing_cutoff_hz,omitempty"` // unset or 0 disables smoothing
	SmoothingOrder         *int     `json:"smoothing_order,omitempty"`
	LogFills               *bool    `json:"log_fills,omitempty"`

	// Force plates
	FPThreshold        *float64  `json:"fp_threshold,omitempty"`
	FPFilterCutoffsHz  []float64 `json:"fp_filter_cutoffs_hz,omitempty"`
	FPFilterOrder      *int      `json:"fp_filter_order,omitempty"`
	COPNaNToNum        *bool     `json:"cop_nan_to_num,omitempty"`
	StrictChannelRoles *bool     `json:"strict_channel_roles,omitempty"`
}

// LoadProcessingConfig loads a ProcessingConfig from a JSON file.
// The file must have a .json extension and be under 1MB.
func LoadProcessingConfig(path string) (*ProcessingConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &ProcessingConfig{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// MustLoadDefaultConfig loads DefaultConfigPath from the current directory
// or one of its parents. Panics if the file cannot be loaded, intended for
// test setup.
func MustLoadDefaultConfig() *ProcessingConfig {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath, // from internal/config/
		"../../../" + DefaultConfigPath,
	}
	for _, path := range candidates {
		if cfg, err := LoadProcessingConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *ProcessingConfig) Validate() error {
	if c.InterpDegree != nil && *c.InterpDegree != 1 && *c.InterpDegree != 3 {
		return fmt.Errorf("interp_degree must be 1 or 3, got %d", *c.InterpDegree)
	}
	if c.SearchSpanOffset != nil && *c.SearchSpanOffset < 0 {
		return fmt.Errorf("search_span_offset must be non-negative, got %d", *c.SearchSpanOffset)
	}
	if c.MinNeededFrames != nil && *c.MinNeededFrames < 1 {
		return fmt.Errorf("min_needed_frames must be at least 1, got %d", *c.MinNeededFrames)
	}
	if c.PatternMinNeededFrames != nil && *c.PatternMinNeededFrames < 1 {
		return fmt.Errorf("pattern_min_needed_frames must be at least 1, got %d", *c.PatternMinNeededFrames)
	}
	if c.SmoothingCutoffHz != nil && *c.SmoothingCutoffHz < 0 {
		return fmt.Errorf("smoothing_cutoff_hz must be non-negative, got %f", *c.SmoothingCutoffHz)
	}
	if c.SmoothingOrder != nil && *c.SmoothingOrder < 1 {
		return fmt.Errorf("smoothing_order must be at least 1, got %d", *c.SmoothingOrder)
	}
	if c.FPThreshold != nil && *c.FPThreshold < 0 {
		return fmt.Errorf("fp_threshold must be non-negative, got %f", *c.FPThreshold)
	}
	for i, v := range c.FPFilterCutoffsHz {
		if v < 0 {
			return fmt.Errorf("fp_filter_cutoffs_hz[%d] must be non-negative, got %f", i, v)
		}
	}
	if c.FPFilterOrder != nil && *c.FPFilterOrder < 1 {
		return fmt.Errorf("fp_filter_order must be at least 1, got %d", *c.FPFilterOrder)
	}
	return nil
}

// GetInterpDegree returns the interp_degree value or the default.
func (c *ProcessingConfig) GetInterpDegree() int {
	if c.InterpDegree == nil {
		return 3
	}
	return *c.InterpDegree
}

// GetSearchSpanOffset returns the search_span_offset value or the default.
func (c *ProcessingConfig) GetSearchSpanOffset() int {
	if c.SearchSpanOffset == nil {
		return 5
	}
	return *c.SearchSpanOffset
}

// GetMinNeededFrames returns the min_needed_frames value or the default.
func (c *ProcessingConfig) GetMinNeededFrames() int {
	if c.MinNeededFrames == nil {
		return 10
	}
	return *c.MinNeededFrames
}

// GetPatternMinNeededFrames returns the pattern_min_needed_frames value or the default.
func (c *ProcessingConfig) GetPatternMinNeededFrames() int {
	if c.PatternMinNeededFrames == nil {
		return 2
	}
	return *c.PatternMinNeededFrames
}

// GetFillBoundaryGaps returns the fill_boundary_gaps value or the default.
func (c *ProcessingConfig) GetFillBoundaryGaps() bool {
	if c.FillBoundaryGaps == nil {
		return false
	}
	return *c.FillBoundaryGaps
}

// GetSmoothingCutoffHz returns the smoothing_cutoff_hz value or 0 (off).
func (c *ProcessingConfig) GetSmoothingCutoffHz() float64 {
	if c.SmoothingCutoffHz == nil {
		return 0
	}
	return *c.SmoothingCutoffHz
}

// GetSmoothingOrder returns the smoothing_order value or the default.
func (c *ProcessingConfig) GetSmoothingOrder() int {
	if c.SmoothingOrder == nil {
		return 4
	}
	return *c.SmoothingOrder
}

// GetLogFills returns the log_fills value or the default.
func (c *ProcessingConfig) GetLogFills() bool {
	if c.LogFills == nil {
		return true
	}
	return *c.LogFills
}

// GetFPThreshold returns the fp_threshold value or the default.
func (c *ProcessingConfig) GetFPThreshold() float64 {
	if c.FPThreshold == nil {
		return 0
	}
	return *c.FPThreshold
}

// GetFPFilterOrder returns the fp_filter_order value or the default.
func (c *ProcessingConfig) GetFPFilterOrder() int {
	if c.FPFilterOrder == nil {
		return 2
	}
	return *c.FPFilterOrder
}

// GetCOPNaNToNum returns the cop_nan_to_num value or the default.
func (c *ProcessingConfig) GetCOPNaNToNum() bool {
	if c.COPNaNToNum == nil {
		return true
	}
	return *c.COPNaNToNum
}

// GetStrictChannelRoles returns the strict_channel_roles value or the default.
func (c *ProcessingConfig) GetStrictChannelRoles() bool {
	if c.StrictChannelRoles == nil {
		return false
	}
	return *c.StrictChannelRoles
}

// FillOptions translates the gap-fill fields.
func (c *ProcessingConfig) FillOptions() gapfill.Options {
	opts := gapfill.Options{
		InterpDegree:           c.GetInterpDegree(),
		SearchSpanOffset:       c.GetSearchSpanOffset(),
		MinNeededFrames:        c.GetMinNeededFrames(),
		PatternMinNeededFrames: c.GetPatternMinNeededFrames(),
		FillBoundaryGaps:       c.GetFillBoundaryGaps(),
		Log:                    c.GetLogFills(),
	}
	if hz := c.GetSmoothingCutoffHz(); hz > 0 {
		spec := filter.LowPassSpec(c.GetSmoothingOrder(), hz)
		opts.Smoothing = &spec
	}
	return opts
}

// KineticsOptions translates the force-plate fields.
func (c *ProcessingConfig) KineticsOptions() kinetics.Options {
	return kinetics.Options{
		Threshold:          c.GetFPThreshold(),
		FilterCutoffsHz:    append([]float64(nil), c.FPFilterCutoffsHz...),
		FilterOrder:        c.GetFPFilterOrder(),
		COPNaNToNum:        c.GetCOPNaNToNum(),
		StrictChannelRoles: c.GetStrictChannelRoles(),
	}
}
