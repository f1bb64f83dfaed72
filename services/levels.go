package services

// LevelCurve maps cumulative XP to a level. The per-level cost grows
// linearly: going from level n to n+1 costs BaseXP * n, so the cumulative
// threshold for level n is BaseXP * n * (n+1) / 2 (level 1→2 costs 100 XP,
// 2→3 costs 200 XP, and so on with the default base).
type LevelCurve struct {
	BaseXP int64
}

// DefaultLevelCurve matches the platform's published progression table.
var DefaultLevelCurve = LevelCurve{BaseXP: 100}

// Threshold returns the cumulative XP required to *reach* level n+1,
// i.e. the total XP at which level n is left behind. Threshold(0) == 0.
func (c LevelCurve) Threshold(n int) int64 {
	if n < 0 {
		return 0
	}
	return c.BaseXP * int64(n) * int64(n+1) / 2
}

// LevelFromXP returns the level for a cumulative XP total plus the XP earned
// within that level. Pure and total: any non-negative input maps to a level
// ≥ 1, and more XP never means a lower level.
func (c LevelCurve) LevelFromXP(totalXP int64) (level int, xpInLevel int64) {
	if totalXP < 0 {
		totalXP = 0
	}
	level = 1
	for totalXP >= c.Threshold(level) {
		level++
	}
	xpInLevel = totalXP - c.Threshold(level-1)
	return level, xpInLevel
}

// XPForNextLevel returns how much XP is still missing to level up.
func (c LevelCurve) XPForNextLevel(totalXP int64) int64 {
	level, _ := c.LevelFromXP(totalXP)
	return c.Threshold(level) - totalXP
}
