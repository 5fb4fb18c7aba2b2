package gamification

import "github.com/hellobible/hellobible/internal/domain"

// AllAchievements returns every achievement definition in display order.
func AllAchievements() []domain.AchievementDef {
	return []domain.AchievementDef{
		{
			ID: domain.AchFirstLesson, Title: "Primeiro Passo",
			Description: "Complete sua primeira lição", Icon: "🌱", XPReward: 50,
			Condition: func(s domain.Snapshot) bool { return s.LessonsCompleted >= 1 },
		},
		{
			ID: domain.AchStreak3, Title: "Fiel por 3 Dias",
			Description: "Estude 3 dias seguidos", Icon: "🔥", XPReward: 30,
			Condition: func(s domain.Snapshot) bool { return s.Streak >= 3 },
		},
		{
			ID: domain.AchStreak7, Title: "Semana Fiel",
			Description: "Estude 7 dias seguidos", Icon: "⭐", XPReward: 100,
			Condition: func(s domain.Snapshot) bool { return s.Streak >= 7 },
		},
		{
			ID: domain.AchStreak30, Title: "Mês de Devoção",
			Description: "Estude 30 dias seguidos", Icon: "👑", XPReward: 500,
			Condition: func(s domain.Snapshot) bool { return s.Streak >= 30 },
		},
		{
			ID: domain.AchScholar, Title: "Estudioso",
			Description: "Complete 10 lições", Icon: "📚", XPReward: 200,
			Condition: func(s domain.Snapshot) bool { return s.LessonsCompleted >= 10 },
		},
		{
			ID: domain.AchSpeedRunner, Title: "Maratonista",
			Description: "Complete 3 lições em um dia", Icon: "⚡", XPReward: 75,
			Condition: func(s domain.Snapshot) bool { return s.DailyLessons >= 3 },
		},
	}
}

// AchievementByID looks up one definition.
func AchievementByID(id domain.AchievementID) (domain.AchievementDef, bool) {
	for _, def := range AllAchievements() {
		if def.ID == id {
			return def, true
		}
	}
	return domain.AchievementDef{}, false
}

// evaluationOrder groups achievements in priority order. Within a group
// only the first satisfied, not-yet-owned entry unlocks, which limits
// streak unlocks to one tier per evaluation.
var evaluationOrder = [][]domain.AchievementID{
	{domain.AchFirstLesson},
	{domain.AchStreak30, domain.AchStreak7, domain.AchStreak3},
	{domain.AchScholar},
	{domain.AchSpeedRunner},
}

// Candidates returns the achievements s qualifies for and does not own,
// in unlock order.
func Candidates(s domain.Snapshot) []domain.AchievementDef {
	var out []domain.AchievementDef
	for _, group := range evaluationOrder {
		for _, id := range group {
			if s.HasAchievement(id) {
				continue
			}
			def, ok := AchievementByID(id)
			if ok && def.Condition(s) {
				out = append(out, def)
				break
			}
		}
	}
	return out
}

// Unlock appends every achievement s qualifies for and credits its XP
// reward in the same step, so an owned achievement is always paid.
func Unlock(s *domain.Snapshot) []domain.AchievementDef {
	defs := Candidates(*s)
	for _, def := range defs {
		s.Achievements = append(s.Achievements, def.ID)
		CreditXP(s, def.XPReward)
	}
	return defs
}
