package gamification

import "github.com/hellobible/hellobible/internal/domain"

// levels is the fixed level table. Strictly increasing in both Level and
// XPRequired; the first row is always {1, 0}.
var levels = []domain.LevelDef{
	{Level: 1, XPRequired: 0, Title: "Iniciante"},
	{Level: 2, XPRequired: 200, Title: "Aprendiz"},
	{Level: 3, XPRequired: 500, Title: "Estudante"},
	{Level: 4, XPRequired: 1000, Title: "Discípulo"},
	{Level: 5, XPRequired: 2000, Title: "Estudioso"},
	{Level: 6, XPRequired: 3500, Title: "Mestre"},
	{Level: 7, XPRequired: 5000, Title: "Sábio"},
	{Level: 8, XPRequired: 7500, Title: "Teólogo"},
	{Level: 9, XPRequired: 10000, Title: "Apóstolo"},
	{Level: 10, XPRequired: 15000, Title: "Lenda Bíblica"},
}

// LevelTable returns a copy of the level table.
func LevelTable() []domain.LevelDef {
	return append([]domain.LevelDef(nil), levels...)
}

// MaxLevel is the highest reachable level.
func MaxLevel() int {
	return levels[len(levels)-1].Level
}

// LevelForXP returns the highest level whose XPRequired <= xp.
// Negative XP maps to level 1.
func LevelForXP(xp int64) int {
	level := levels[0].Level
	for _, l := range levels {
		if xp < l.XPRequired {
			break
		}
		level = l.Level
	}
	return level
}

// levelDef returns the table row for level, clamped to the table bounds.
func levelDef(level int) domain.LevelDef {
	if level < 1 {
		level = 1
	}
	if level > len(levels) {
		level = len(levels)
	}
	return levels[level-1]
}

// LevelInfoFor derives the profile level view for a total XP amount.
func LevelInfoFor(xp int64) domain.LevelInfo {
	cur := levelDef(LevelForXP(xp))
	info := domain.LevelInfo{
		CurrentLevel:      cur.Level,
		CurrentXP:         xp,
		XPForCurrentLevel: cur.XPRequired,
		Title:             cur.Title,
	}

	if cur.Level >= MaxLevel() {
		info.IsMaxLevel = true
		info.XPForNextLevel = cur.XPRequired
		info.Progress = 100
		return info
	}

	next := levelDef(cur.Level + 1)
	info.XPForNextLevel = next.XPRequired
	info.XPNeeded = next.XPRequired - xp
	span := next.XPRequired - cur.XPRequired
	progress := float64(xp-cur.XPRequired) / float64(span) * 100.0
	if progress < 0 {
		progress = 0
	}
	if progress > 100 {
		progress = 100
	}
	info.Progress = progress
	return info
}
