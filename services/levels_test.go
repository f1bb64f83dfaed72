package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestThreshold(t *testing.T) {
	c := DefaultLevelCurve

	assert.Equal(t, int64(0), c.Threshold(0))
	assert.Equal(t, int64(100), c.Threshold(1))  // leaving level 1 costs 100
	assert.Equal(t, int64(300), c.Threshold(2))  // +200
	assert.Equal(t, int64(600), c.Threshold(3))  // +300
	assert.Equal(t, int64(1000), c.Threshold(4)) // +400
	assert.Equal(t, int64(0), c.Threshold(-1))
}

func TestLevelFromXP(t *testing.T) {
	c := DefaultLevelCurve

	cases := []struct {
		totalXP   int64
		level     int
		xpInLevel int64
	}{
		{0, 1, 0},
		{99, 1, 99},
		{100, 2, 0},
		{101, 2, 1},
		{299, 2, 199},
		{300, 3, 0},
		{1000, 5, 0},
		{-5, 1, 0},
	}
	for _, tc := range cases {
		level, xpInLevel := c.LevelFromXP(tc.totalXP)
		assert.Equal(t, tc.level, level, "level for %d XP", tc.totalXP)
		assert.Equal(t, tc.xpInLevel, xpInLevel, "xpInLevel for %d XP", tc.totalXP)
	}
}

func TestLevelFromXPMonotonic(t *testing.T) {
	c := DefaultLevelCurve

	prevLevel := 0
	for xp := int64(0); xp <= 5000; xp += 7 {
		level, xpInLevel := c.LevelFromXP(xp)
		assert.GreaterOrEqual(t, level, prevLevel, "level dropped at %d XP", xp)
		assert.GreaterOrEqual(t, xpInLevel, int64(0))
		assert.Less(t, xpInLevel, c.Threshold(level)-c.Threshold(level-1))
		prevLevel = level
	}
}

func TestXPForNextLevel(t *testing.T) {
	c := DefaultLevelCurve

	assert.Equal(t, int64(100), c.XPForNextLevel(0))
	assert.Equal(t, int64(1), c.XPForNextLevel(99))
	assert.Equal(t, int64(200), c.XPForNextLevel(100))
}

func TestCustomCurve(t *testing.T) {
	c := LevelCurve{BaseXP: 10}

	assert.Equal(t, int64(10), c.Threshold(1))
	level, _ := c.LevelFromXP(10)
	assert.Equal(t, 2, level)
}
