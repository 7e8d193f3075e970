package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Dosada05/futsal-pulse/brackets"
)

type MatchStatus string

const (
	MatchScheduled MatchStatus = "scheduled"
	MatchFinished  MatchStatus = "finished"
)

// ResultType отражает, как далеко матч прошёл по фазам: продвигается
// только вперёд (regular → overtime → penalties).
type ResultType string

const (
	ResultRegular   ResultType = "regular"
	ResultOvertime  ResultType = "overtime"
	ResultPenalties ResultType = "penalties"
)

type EventType string

const (
	EventGoal       EventType = "goal"
	EventYellowCard EventType = "yellow-card"
	EventRedCard    EventType = "red-card"
)

func (t EventType) Valid() bool {
	switch t {
	case EventGoal, EventYellowCard, EventRedCard:
		return true
	}
	return false
}

type PenaltyOutcome string

const (
	PenaltyScored PenaltyOutcome = "scored"
	PenaltyMissed PenaltyOutcome = "missed"
)

func (o PenaltyOutcome) Valid() bool {
	return o == PenaltyScored || o == PenaltyMissed
}

type Score struct {
	TeamA int `json:"teamA" bson:"teamA"`
	TeamB int `json:"teamB" bson:"teamB"`
}

// MatchEvent — запись журнала событий матча. События удаляются по
// одному, с симметричным откатом счёта.
type MatchEvent struct {
	ID        primitive.ObjectID `json:"_id" bson:"_id"`
	Type      EventType          `json:"type" bson:"type"`
	Minute    int                `json:"minute" bson:"minute"`
	TeamID    primitive.ObjectID `json:"teamId" bson:"teamId"`
	PlayerID  primitive.ObjectID `json:"playerId" bson:"playerId"`
	CreatedAt time.Time          `json:"createdAt" bson:"createdAt"`
}

type PenaltyKick struct {
	ID       primitive.ObjectID `json:"_id" bson:"_id"`
	TeamID   primitive.ObjectID `json:"teamId" bson:"teamId"`
	PlayerID primitive.ObjectID `json:"playerId" bson:"playerId"`
	Outcome  PenaltyOutcome     `json:"outcome" bson:"outcome"`
}

// PenaltyShootout появляется на документе матча при первом ударе серии.
type PenaltyShootout struct {
	TeamAGoals   int                 `json:"teamA_goals" bson:"teamA_goals"`
	TeamBGoals   int                 `json:"teamB_goals" bson:"teamB_goals"`
	Events       []PenaltyKick       `json:"events" bson:"events"`
	Decided      bool                `json:"decided,omitempty" bson:"decided,omitempty"`
	WinnerTeamID *primitive.ObjectID `json:"winnerTeamId,omitempty" bson:"winnerTeamId,omitempty"`
}

// Match — корневой документ ядра. Version — счётчик оптимистичной
// блокировки: каждое изменение выполняется условным обновлением по
// {_id, version} с $inc версии.
type Match struct {
	ID              primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	TournamentID    primitive.ObjectID `json:"tournamentId" bson:"tournamentId"`
	TeamAID         primitive.ObjectID `json:"teamA_id" bson:"teamA_id"`
	TeamBID         primitive.ObjectID `json:"teamB_id" bson:"teamB_id"`
	Score           Score              `json:"score" bson:"score"`
	OvertimeScore   *Score             `json:"overtime_score" bson:"overtime_score"`
	PenaltyShootout *PenaltyShootout   `json:"penalty_shootout" bson:"penalty_shootout"`
	MatchDate       time.Time          `json:"matchDate" bson:"matchDate"`
	Status          MatchStatus        `json:"status" bson:"status"`
	ResultType      ResultType         `json:"result_type" bson:"result_type"`
	Stage           brackets.Stage     `json:"stage" bson:"stage"`
	Group           *string            `json:"group" bson:"group"`
	Events          []MatchEvent       `json:"events" bson:"events"`
	Version         int64              `json:"-" bson:"version"`
	CreatedAt       time.Time          `json:"createdAt" bson:"createdAt"`
}

// SideOf сообщает, какой стороне матча принадлежит команда.
func (m *Match) SideOf(teamID primitive.ObjectID) (MatchSide, bool) {
	switch teamID {
	case m.TeamAID:
		return SideA, true
	case m.TeamBID:
		return SideB, true
	}
	return "", false
}

type MatchSide string

const (
	SideA MatchSide = "A"
	SideB MatchSide = "B"
)

// MatchTeamView и MatchView — собранная модель чтения: матч плюс имена
// команд и игроков, без агрегационных join-ов в доменном слое.
type MatchTeamView struct {
	ID      primitive.ObjectID `json:"_id"`
	Name    string             `json:"name"`
	Players []PublicUser       `json:"players,omitempty"`
}

type MatchView struct {
	ID              primitive.ObjectID `json:"_id"`
	TournamentID    primitive.ObjectID `json:"tournamentId"`
	TournamentName  string             `json:"tournamentName,omitempty"`
	MatchDate       time.Time          `json:"matchDate"`
	Status          MatchStatus        `json:"status"`
	ResultType      ResultType         `json:"result_type"`
	Stage           brackets.Stage     `json:"stage"`
	Group           *string            `json:"group"`
	Score           Score              `json:"score"`
	OvertimeScore   *Score             `json:"overtime_score"`
	PenaltyShootout *PenaltyShootout   `json:"penalty_shootout"`
	Events          []MatchEvent       `json:"events"`
	TeamA           MatchTeamView      `json:"teamA"`
	TeamB           MatchTeamView      `json:"teamB"`
}
