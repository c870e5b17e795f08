// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package metrics

import (
	"fmt"
	"math"
)

// Extended is the derived metric set. Every value is a linear function of
// the Snapshot counts and only mimics the named metric.
type Extended struct {
	LOC                  int     `json:"loc"`
	Cyclomatic           int     `json:"cyclomatic"`
	CBO                  int     `json:"cbo"`
	RFC                  int     `json:"rfc"`
	FanOut               int     `json:"fan_out"`
	LCOM                 int     `json:"lcom"`
	TCC                  float64 `json:"tcc"`
	DIT                  int     `json:"dit"`
	NOC                  int     `json:"noc"`
	WMC                  int     `json:"wmc"`
	HalsteadVolume       int     `json:"halstead_volume"`
	HalsteadEffort       int     `json:"halstead_effort"`
	MaintainabilityIndex int     `json:"maintainability_index"`
}

// Derive computes the extended metric set from s.
func Derive(s Snapshot) Extended {
	f, v, e := s.FunctionCount, s.VariableCount, s.EventListenerCount
	return Extended{
		LOC:                  s.MaxLine,
		Cyclomatic:           max(1, f+e),
		CBO:                  f,
		RFC:                  f + v,
		FanOut:               v,
		LCOM:                 max(0, f-1),
		TCC:                  1 - float64(f)/50,
		DIT:                  1,
		NOC:                  0,
		WMC:                  f * 2,
		HalsteadVolume:       v * 10,
		HalsteadEffort:       v * 30,
		MaintainabilityIndex: 171 - f - v,
	}
}

// ScoreConfig holds the constants of the quality score.
type ScoreConfig struct {
	// MaxFunctions is the function count at which the function score hits 0.
	MaxFunctions float64 `yaml:"max_functions" json:"max_functions" validate:"gt=0"`

	// MaxVariables is the variable count at which the variable score hits 0.
	MaxVariables float64 `yaml:"max_variables" json:"max_variables" validate:"gt=0"`

	// EventListenerTarget is the listener count that scores 100.
	EventListenerTarget float64 `yaml:"event_listener_target" json:"event_listener_target" validate:"gte=0"`

	// EventListenerPenalty is subtracted per listener away from the target.
	EventListenerPenalty float64 `yaml:"event_listener_penalty" json:"event_listener_penalty" validate:"gte=0"`

	// Weights blend the sub-scores into the maintainability score.
	Weights ScoreWeights `yaml:"weights" json:"weights"`
}

// ScoreWeights are the maintainability blend weights.
type ScoreWeights struct {
	Functions      float64 `yaml:"functions" json:"functions" validate:"gte=0,lte=1"`
	Variables      float64 `yaml:"variables" json:"variables" validate:"gte=0,lte=1"`
	EventListeners float64 `yaml:"event_listeners" json:"event_listeners" validate:"gte=0,lte=1"`
}

// DefaultScoreConfig returns the stock scoring constants.
func DefaultScoreConfig() ScoreConfig {
	return ScoreConfig{
		MaxFunctions:         20,
		MaxVariables:         30,
		EventListenerTarget:  3,
		EventListenerPenalty: 20,
		Weights: ScoreWeights{
			Functions:      0.4,
			Variables:      0.3,
			EventListeners: 0.3,
		},
	}
}

// Validate checks the constants that would otherwise divide by zero.
func (c ScoreConfig) Validate() error {
	if c.MaxFunctions <= 0 {
		return fmt.Errorf("max_functions must be > 0, got %v", c.MaxFunctions)
	}
	if c.MaxVariables <= 0 {
		return fmt.Errorf("max_variables must be > 0, got %v", c.MaxVariables)
	}
	return nil
}

// Quality is the bounded score set. All values are integers in [0, 100].
type Quality struct {
	Functions       int `json:"functions"`
	Variables       int `json:"variables"`
	EventListeners  int `json:"event_listeners"`
	Maintainability int `json:"maintainability"`
	Total           int `json:"total"`
}

// Score computes the quality scores for s.
//
// Description:
//
//	funcScore  = clamp(100 - F/MaxFunctions*100)
//	varScore   = clamp(100 - V/MaxVariables*100)
//	eventScore = clamp(100 - |E-Target|*Penalty)
//	mi         = round(wF*funcScore + wV*varScore + wE*eventScore)
//	total      = round((funcScore + varScore + eventScore + mi) / 4)
//
//	mi and total are computed from the unrounded sub-scores; only the
//	reported sub-scores are rounded. Rounding is half-up.
//
// Inputs:
//
//	s   - The counts to score.
//	cfg - Scoring constants. MaxFunctions and MaxVariables must be > 0;
//	      call cfg.Validate when the config comes from user input.
func Score(s Snapshot, cfg ScoreConfig) Quality {
	funcScore := clamp(100 - float64(s.FunctionCount)/cfg.MaxFunctions*100)
	varScore := clamp(100 - float64(s.VariableCount)/cfg.MaxVariables*100)
	eventScore := clamp(100 - math.Abs(float64(s.EventListenerCount)-cfg.EventListenerTarget)*cfg.EventListenerPenalty)

	w := cfg.Weights
	mi := roundHalfUp(w.Functions*funcScore + w.Variables*varScore + w.EventListeners*eventScore)
	total := roundHalfUp((funcScore + varScore + eventScore + mi) / 4)

	return Quality{
		Functions:       int(roundHalfUp(funcScore)),
		Variables:       int(roundHalfUp(varScore)),
		EventListeners:  int(roundHalfUp(eventScore)),
		Maintainability: int(clamp(mi)),
		Total:           int(clamp(total)),
	}
}

func clamp(x float64) float64 {
	return math.Min(100, math.Max(0, x))
}

func roundHalfUp(x float64) float64 {
	return math.Floor(x + 0.5)
}
