package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Dosada05/futsal-pulse/models"
)

func newTestMatch() *models.Match {
	return &models.Match{
		ID:      primitive.NewObjectID(),
		TeamAID: primitive.NewObjectID(),
		TeamBID: primitive.NewObjectID(),
	}
}

func addKicks(m *models.Match, teamID primitive.ObjectID, outcomes ...models.PenaltyOutcome) {
	if m.PenaltyShootout == nil {
		m.PenaltyShootout = &models.PenaltyShootout{Events: []models.PenaltyKick{}}
	}
	for _, outcome := range outcomes {
		m.PenaltyShootout.Events = append(m.PenaltyShootout.Events, models.PenaltyKick{
			ID:       primitive.NewObjectID(),
			TeamID:   teamID,
			PlayerID: primitive.NewObjectID(),
			Outcome:  outcome,
		})
		if outcome == models.PenaltyScored {
			if teamID == m.TeamAID {
				m.PenaltyShootout.TeamAGoals++
			} else {
				m.PenaltyShootout.TeamBGoals++
			}
		}
	}
}

func TestTiedAfterRegular(t *testing.T) {
	m := newTestMatch()
	assert.True(t, tiedAfterRegular(m))

	m.Score = models.Score{TeamA: 2, TeamB: 2}
	assert.True(t, tiedAfterRegular(m))

	m.Score.TeamA = 3
	assert.False(t, tiedAfterRegular(m))
}

func TestTiedAfterOvertime(t *testing.T) {
	m := newTestMatch()
	m.Score = models.Score{TeamA: 2, TeamB: 2}
	assert.True(t, tiedAfterOvertime(m))

	m.OvertimeScore = &models.Score{TeamA: 1, TeamB: 0}
	assert.False(t, tiedAfterOvertime(m))

	// Равенство по сумме двух фаз, а не по каждой в отдельности.
	m.Score = models.Score{TeamA: 1, TeamB: 2}
	m.OvertimeScore = &models.Score{TeamA: 1, TeamB: 0}
	assert.True(t, tiedAfterOvertime(m))
}

func TestWasDismissedByMinute(t *testing.T) {
	m := newTestMatch()
	player := primitive.NewObjectID()

	m.Events = []models.MatchEvent{
		{ID: primitive.NewObjectID(), Type: models.EventYellowCard, Minute: 10, TeamID: m.TeamAID, PlayerID: player},
		{ID: primitive.NewObjectID(), Type: models.EventYellowCard, Minute: 25, TeamID: m.TeamAID, PlayerID: player},
	}

	// Событие строго до минуты отсечки: на 25-й минуте второй жёлтой
	// ещё нет, с 26-й игрок удалён.
	assert.False(t, wasDismissedByMinute(m, player, 25, false))
	assert.True(t, wasDismissedByMinute(m, player, 26, false))

	// Включительная проверка видит вторую жёлтую уже на 25-й.
	assert.True(t, wasDismissedByMinute(m, player, 25, true))
	assert.True(t, wasDismissedAtAll(m, player))

	other := primitive.NewObjectID()
	assert.False(t, wasDismissedAtAll(m, other))
}

func TestWasDismissedByMinuteDirectRed(t *testing.T) {
	m := newTestMatch()
	player := primitive.NewObjectID()
	m.Events = []models.MatchEvent{
		{ID: primitive.NewObjectID(), Type: models.EventRedCard, Minute: 30, TeamID: m.TeamBID, PlayerID: player},
	}

	assert.False(t, wasDismissedByMinute(m, player, 30, false))
	assert.True(t, wasDismissedByMinute(m, player, 31, false))
	assert.True(t, wasDismissedAtAll(m, player))
}

func TestPenaltyRotation(t *testing.T) {
	m := newTestMatch()
	p1 := primitive.NewObjectID()
	p2 := primitive.NewObjectID()
	roster := []primitive.ObjectID{p1, p2}

	counts := penaltyKicksByPlayer(m, m.TeamAID, roster)
	assert.True(t, canPlayerShootNow(counts, p1))
	assert.True(t, canPlayerShootNow(counts, p2))

	m.PenaltyShootout = &models.PenaltyShootout{Events: []models.PenaltyKick{
		{ID: primitive.NewObjectID(), TeamID: m.TeamAID, PlayerID: p1, Outcome: models.PenaltyScored},
	}}

	counts = penaltyKicksByPlayer(m, m.TeamAID, roster)
	assert.False(t, canPlayerShootNow(counts, p1), "p1 must wait until p2 has taken a kick")
	assert.True(t, canPlayerShootNow(counts, p2))

	m.PenaltyShootout.Events = append(m.PenaltyShootout.Events, models.PenaltyKick{
		ID: primitive.NewObjectID(), TeamID: m.TeamAID, PlayerID: p2, Outcome: models.PenaltyMissed,
	})

	counts = penaltyKicksByPlayer(m, m.TeamAID, roster)
	assert.True(t, canPlayerShootNow(counts, p1))
	assert.True(t, canPlayerShootNow(counts, p2))
}

func TestComputeShootoutDecisionSeries(t *testing.T) {
	m := newTestMatch()

	// 3:0 после трёх ударов каждой: у B осталось 2 удара, отрыв 3 — серия
	// решена досрочно.
	addKicks(m, m.TeamAID, models.PenaltyScored, models.PenaltyScored, models.PenaltyScored)
	addKicks(m, m.TeamBID, models.PenaltyMissed, models.PenaltyMissed, models.PenaltyMissed)

	decision := computeShootoutDecision(m, MaxPenaltySeries)
	require.True(t, decision.Decided)
	assert.Equal(t, m.TeamAID, decision.Winner)
	assert.Equal(t, "series", decision.Phase)
}

func TestComputeShootoutDecisionNotYet(t *testing.T) {
	m := newTestMatch()

	// 2:1 после двух ударов: у B в запасе 3 удара, ничего не решено.
	addKicks(m, m.TeamAID, models.PenaltyScored, models.PenaltyScored)
	addKicks(m, m.TeamBID, models.PenaltyScored, models.PenaltyMissed)

	decision := computeShootoutDecision(m, MaxPenaltySeries)
	assert.False(t, decision.Decided)
}

func TestComputeShootoutDecisionSuddenDeath(t *testing.T) {
	m := newTestMatch()

	// 4:4 после пяти ударов — серия продолжается.
	addKicks(m, m.TeamAID,
		models.PenaltyScored, models.PenaltyScored, models.PenaltyScored, models.PenaltyScored, models.PenaltyMissed)
	addKicks(m, m.TeamBID,
		models.PenaltyScored, models.PenaltyScored, models.PenaltyScored, models.PenaltyScored, models.PenaltyMissed)

	decision := computeShootoutDecision(m, MaxPenaltySeries)
	require.False(t, decision.Decided)

	// Шестой раунд: A забивает, B мажет — только после равного числа
	// ударов серия решена.
	addKicks(m, m.TeamAID, models.PenaltyScored)
	decision = computeShootoutDecision(m, MaxPenaltySeries)
	assert.False(t, decision.Decided, "B has not taken its sixth kick yet")

	addKicks(m, m.TeamBID, models.PenaltyMissed)
	decision = computeShootoutDecision(m, MaxPenaltySeries)
	require.True(t, decision.Decided)
	assert.Equal(t, m.TeamAID, decision.Winner)
	assert.Equal(t, "sudden_death", decision.Phase)
}

func TestWinnerLoser(t *testing.T) {
	m := newTestMatch()
	m.Score = models.Score{TeamA: 2, TeamB: 2}

	_, _, ok := winnerLoser(m)
	assert.False(t, ok)

	m.OvertimeScore = &models.Score{TeamA: 0, TeamB: 0}
	m.PenaltyShootout = &models.PenaltyShootout{TeamAGoals: 4, TeamBGoals: 3}

	winner, loser, ok := winnerLoser(m)
	require.True(t, ok)
	assert.Equal(t, m.TeamAID, winner)
	assert.Equal(t, m.TeamBID, loser)
}
