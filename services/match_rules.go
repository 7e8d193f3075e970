package services

import (
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Dosada05/futsal-pulse/models"
)

// Тайминг футзального матча и длина серии пенальти.
const (
	MaxRegularMinute    = 40
	OvertimeStartMinute = MaxRegularMinute + 1
	OvertimeEndMinute   = 50
	MaxPenaltySeries    = 5
)

// Чистые правила матча: ничьи, серия пенальти, удаления. Все функции
// работают только с переданным документом матча и не ходят в базу.

func regTotals(m *models.Match) (int, int) {
	return m.Score.TeamA, m.Score.TeamB
}

func otTotals(m *models.Match) (int, int) {
	if m.OvertimeScore == nil {
		return 0, 0
	}
	return m.OvertimeScore.TeamA, m.OvertimeScore.TeamB
}

func penTotals(m *models.Match) (int, int) {
	if m.PenaltyShootout == nil {
		return 0, 0
	}
	return m.PenaltyShootout.TeamAGoals, m.PenaltyShootout.TeamBGoals
}

func tiedAfterRegular(m *models.Match) bool {
	a, b := regTotals(m)
	return a == b
}

func tiedAfterOvertime(m *models.Match) bool {
	ra, rb := regTotals(m)
	oa, ob := otTotals(m)
	return ra+oa == rb+ob
}

func penaltyShotsForTeam(m *models.Match, teamID primitive.ObjectID) int {
	if m.PenaltyShootout == nil {
		return 0
	}
	shots := 0
	for _, kick := range m.PenaltyShootout.Events {
		if kick.TeamID == teamID {
			shots++
		}
	}
	return shots
}

// penaltyKicksByPlayer строит счётчик ударов по игрокам состава команды.
func penaltyKicksByPlayer(m *models.Match, teamID primitive.ObjectID, roster []primitive.ObjectID) map[primitive.ObjectID]int {
	counts := make(map[primitive.ObjectID]int, len(roster))
	for _, playerID := range roster {
		counts[playerID] = 0
	}
	if m.PenaltyShootout == nil {
		return counts
	}
	for _, kick := range m.PenaltyShootout.Events {
		if kick.TeamID == teamID {
			counts[kick.PlayerID]++
		}
	}
	return counts
}

// canPlayerShootNow: игрок может бить только при минимальном числе ударов
// среди состава — ротация до полного круга.
func canPlayerShootNow(counts map[primitive.ObjectID]int, playerID primitive.ObjectID) bool {
	if len(counts) == 0 {
		return true
	}
	minCount := -1
	for _, c := range counts {
		if minCount == -1 || c < minCount {
			minCount = c
		}
	}
	return counts[playerID] == minCount
}

type shootoutDecision struct {
	Decided bool
	Winner  primitive.ObjectID
	Phase   string
}

// computeShootoutDecision решает серию пенальти: на фазе серии — отрыв
// больше оставшихся ударов соперника, в sudden death — неравенство голов
// при равном числе ударов.
func computeShootoutDecision(m *models.Match, maxSeries int) shootoutDecision {
	if m.PenaltyShootout == nil {
		return shootoutDecision{}
	}

	shotsA := penaltyShotsForTeam(m, m.TeamAID)
	shotsB := penaltyShotsForTeam(m, m.TeamBID)
	goalsA, goalsB := penTotals(m)

	if shotsA <= maxSeries && shotsB <= maxSeries {
		remainingA := maxSeries - shotsA
		remainingB := maxSeries - shotsB
		if goalsA-goalsB > remainingB {
			return shootoutDecision{Decided: true, Winner: m.TeamAID, Phase: "series"}
		}
		if goalsB-goalsA > remainingA {
			return shootoutDecision{Decided: true, Winner: m.TeamBID, Phase: "series"}
		}
	}

	if shotsA >= maxSeries && shotsB >= maxSeries {
		if shotsA == shotsB && goalsA != goalsB {
			winner := m.TeamAID
			if goalsB > goalsA {
				winner = m.TeamBID
			}
			return shootoutDecision{Decided: true, Winner: winner, Phase: "sudden_death"}
		}
	}

	return shootoutDecision{}
}

// wasDismissedByMinute: прямая красная или вторая жёлтая до cutoffMinute.
// inclusive управляет сравнением (для ударов серии cutoff не ограничен).
func wasDismissedByMinute(m *models.Match, playerID primitive.ObjectID, cutoffMinute int, inclusive bool) bool {
	yellows := 0
	for _, e := range m.Events {
		if e.PlayerID != playerID {
			continue
		}
		if inclusive {
			if e.Minute > cutoffMinute {
				continue
			}
		} else if e.Minute >= cutoffMinute {
			continue
		}
		switch e.Type {
		case models.EventRedCard:
			return true
		case models.EventYellowCard:
			yellows++
			if yellows >= 2 {
				return true
			}
		}
	}
	return false
}

func wasDismissedAtAll(m *models.Match, playerID primitive.ObjectID) bool {
	return wasDismissedByMinute(m, playerID, OvertimeEndMinute, true)
}

// winnerLoser определяет исход по сумме голов трёх фаз; при равенстве
// результата нет.
func winnerLoser(m *models.Match) (winner, loser primitive.ObjectID, ok bool) {
	ra, rb := regTotals(m)
	oa, ob := otTotals(m)
	pa, pb := penTotals(m)
	totalA := ra + oa + pa
	totalB := rb + ob + pb
	if totalA == totalB {
		return primitive.NilObjectID, primitive.NilObjectID, false
	}
	if totalA > totalB {
		return m.TeamAID, m.TeamBID, true
	}
	return m.TeamBID, m.TeamAID, true
}
