package services

import (
	"fmt"
)

// BaseXPPerLevel is the default distance between level boundaries.
const BaseXPPerLevel = 100

// CurveName selects a leveling strategy.
type CurveName string

const (
	// CurveThreshold: level L may be left once XP is strictly greater than
	// step*(L-1). Character stats use it.
	CurveThreshold CurveName = "threshold"

	// CurveLinear: the earned level is floor(xp/step)+1. Family members use it.
	CurveLinear CurveName = "linear"
)

// LevelCurve maps XP to levels. Implementations are pure.
type LevelCurve interface {
	Name() CurveName
	// EarnedLevel is the level repeated level-ups would reach for totalXP.
	EarnedLevel(totalXP int64) int
	CanLevelUp(currentLevel int, totalXP int64) bool
	// XPToNextLevel is always positive: when XP is already past the next
	// boundary it reports the distance to the one after.
	XPToNextLevel(currentLevel int, totalXP int64) int64
}

// CurveByName builds a named curve with the given step.
func CurveByName(name CurveName, step int64) (LevelCurve, error) {
	if step <= 0 {
		return nil, fmt.Errorf("level step must be positive, got %d", step)
	}
	switch name {
	case CurveThreshold:
		return ThresholdCurve{Step: step}, nil
	case CurveLinear:
		return LinearCurve{Step: step}, nil
	}
	return nil, fmt.Errorf("unknown level curve %q", name)
}

type ThresholdCurve struct {
	Step int64
}

func (c ThresholdCurve) Name() CurveName { return CurveThreshold }

// Threshold is the XP that must be exceeded to leave level.
func (c ThresholdCurve) Threshold(level int) int64 {
	return stepOf(c.Step) * int64(clampLevel(level)-1)
}

func (c ThresholdCurve) CanLevelUp(currentLevel int, totalXP int64) bool {
	return totalXP > c.Threshold(currentLevel)
}

func (c ThresholdCurve) EarnedLevel(totalXP int64) int {
	if totalXP <= 0 {
		return 1
	}
	step := stepOf(c.Step)
	return int((totalXP+step-1)/step) + 1
}

func (c ThresholdCurve) XPToNextLevel(currentLevel int, totalXP int64) int64 {
	return nextBoundary(stepOf(c.Step), currentLevel, totalXP) - totalXP
}

type LinearCurve struct {
	Step int64
}

func (c LinearCurve) Name() CurveName { return CurveLinear }

func (c LinearCurve) EarnedLevel(totalXP int64) int {
	if totalXP < 0 {
		return 1
	}
	return int(totalXP/stepOf(c.Step)) + 1
}

func (c LinearCurve) CanLevelUp(currentLevel int, totalXP int64) bool {
	return c.EarnedLevel(totalXP) > clampLevel(currentLevel)
}

func (c LinearCurve) XPToNextLevel(currentLevel int, totalXP int64) int64 {
	return nextBoundary(stepOf(c.Step), currentLevel, totalXP) - totalXP
}

// nextBoundary is the smallest multiple of step that is at least step*level
// and strictly above totalXP.
func nextBoundary(step int64, level int, totalXP int64) int64 {
	b := step * int64(clampLevel(level))
	if b > totalXP {
		return b
	}
	return (totalXP/step + 1) * step
}

func clampLevel(level int) int {
	if level < 1 {
		return 1
	}
	return level
}

func stepOf(step int64) int64 {
	if step <= 0 {
		return BaseXPPerLevel
	}
	return step
}

// ProgressionInfo is the read-side view of an entity's progress.
type ProgressionInfo struct {
	Curve         CurveName `json:"curve"`
	Level         int       `json:"level"`
	TotalXP       int64     `json:"total_xp"`
	EarnedLevel   int       `json:"earned_level"`
	CanLevelUp    bool      `json:"can_level_up"`
	XPToNextLevel int64     `json:"xp_to_next_level"`
}

func Describe(curve LevelCurve, level int, totalXP int64) ProgressionInfo {
	return ProgressionInfo{
		Curve:         curve.Name(),
		Level:         level,
		TotalXP:       totalXP,
		EarnedLevel:   curve.EarnedLevel(totalXP),
		CanLevelUp:    curve.CanLevelUp(level, totalXP),
		XPToNextLevel: curve.XPToNextLevel(level, totalXP),
	}
}
