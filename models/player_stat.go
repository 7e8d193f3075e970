package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PlayerMatchStat — производная строка (матч, игрок), пересчитываемая из
// журнала событий завершённого матча. Никогда не правится вручную.
type PlayerMatchStat struct {
	ID              primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	MatchID         primitive.ObjectID `json:"matchId" bson:"matchId"`
	PlayerID        primitive.ObjectID `json:"playerId" bson:"playerId"`
	TeamID          primitive.ObjectID `json:"teamId" bson:"teamId"`
	TournamentID    primitive.ObjectID `json:"tournamentId" bson:"tournamentId"`
	Goals           int                `json:"goals" bson:"goals"`
	YellowCards     int                `json:"yc" bson:"yc"`
	RedDirect       int                `json:"rc_direct" bson:"rc_direct"`
	RedSecondYellow int                `json:"rc_second_yellow" bson:"rc_second_yellow"`
	PenaltyScored   int                `json:"pso_scored" bson:"pso_scored"`
	PenaltyMissed   int                `json:"pso_missed" bson:"pso_missed"`
	CreatedAt       time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt       time.Time          `json:"updatedAt" bson:"updatedAt"`
}

func (s *PlayerMatchStat) Empty() bool {
	return s.Goals == 0 && s.YellowCards == 0 && s.RedDirect == 0 &&
		s.RedSecondYellow == 0 && s.PenaltyScored == 0 && s.PenaltyMissed == 0
}

// PlayerTotals — суммарная статистика игрока по завершённым матчам.
type PlayerTotals struct {
	Apps          int `json:"apps" bson:"apps"`
	Goals         int `json:"goals" bson:"goals"`
	YellowCards   int `json:"yellowCards" bson:"yellowCards"`
	RedCards      int `json:"redCards" bson:"redCards"`
	PenaltyScored int `json:"pensScored" bson:"pensScored"`
	PenaltyMissed int `json:"pensMissed" bson:"pensMissed"`
}

// PlayerMatchLogEntry — строка журнала последних матчей игрока.
type PlayerMatchLogEntry struct {
	MatchID         primitive.ObjectID `json:"matchId" bson:"matchId"`
	MatchDate       time.Time          `json:"matchDate" bson:"matchDate"`
	Stage           string             `json:"stage" bson:"stage"`
	ResultType      ResultType         `json:"result_type" bson:"result_type"`
	Score           Score              `json:"score" bson:"score"`
	OvertimeScore   *Score             `json:"overtime_score" bson:"overtime_score"`
	PenaltyShootout *PenaltyShootout   `json:"penalty_shootout" bson:"penalty_shootout"`
	TeamA           TeamRef            `json:"teamA" bson:"teamA"`
	TeamB           TeamRef            `json:"teamB" bson:"teamB"`
	Tournament      TournamentRef      `json:"tournament" bson:"tournament"`
	Player          PlayerMatchLine    `json:"player" bson:"player"`
}

type TeamRef struct {
	ID   primitive.ObjectID `json:"_id" bson:"_id"`
	Name string             `json:"name" bson:"name"`
}

type TournamentRef struct {
	ID   primitive.ObjectID `json:"_id" bson:"_id"`
	Name string             `json:"name" bson:"name"`
}

type PlayerMatchLine struct {
	Goals         int  `json:"goals" bson:"goals"`
	YellowCards   int  `json:"yellowCards" bson:"yellowCards"`
	RedCards      int  `json:"redCards" bson:"redCards"`
	RedCard       bool `json:"redCard" bson:"redCard"`
	PenaltyScored int  `json:"pensScored" bson:"pensScored"`
	PenaltyMissed int  `json:"pensMissed" bson:"pensMissed"`
}
