// Package brackets содержит чистую политику плей-офф сетки: стартовая
// стадия по числу команд, порядок стадий и их вместимость. Никакого
// состояния — решения о допустимости принимает MatchService по данным
// репозиториев.
package brackets

import "errors"

type Stage string

const (
	StageRoundOf16  Stage = "round_of_16"
	StageQuarter    Stage = "quarter"
	StageSemi       Stage = "semi"
	StageThirdPlace Stage = "third_place"
	StageFinal      Stage = "final"
)

// ErrUnsupportedBracketSize возвращается для N вне {2, 4, 8, 16}.
var ErrUnsupportedBracketSize = errors.New("bracket sizes other than 2, 4, 8, 16 are not supported yet")

var stageLabels = map[Stage]string{
	StageRoundOf16:  "Round of 16",
	StageQuarter:    "Quarter-final",
	StageSemi:       "Semi-final",
	StageThirdPlace: "Third place",
	StageFinal:      "Final",
}

// maxMatches — вместимость стадии в матчах.
var maxMatches = map[Stage]int{
	StageRoundOf16:  8,
	StageQuarter:    4,
	StageSemi:       2,
	StageFinal:      1,
	StageThirdPlace: 1,
}

func (s Stage) Valid() bool {
	_, ok := maxMatches[s]
	return ok
}

func (s Stage) Label() string {
	return stageLabels[s]
}

// Labels возвращает человекочитаемые названия всех стадий.
func Labels() map[Stage]string {
	out := make(map[Stage]string, len(stageLabels))
	for k, v := range stageLabels {
		out[k] = v
	}
	return out
}

// Capacity — максимум матчей стадии.
func Capacity(s Stage) int {
	return maxMatches[s]
}

// StartingStageFor отображает число допущенных команд на стартовую
// стадию сетки.
func StartingStageFor(teamCount int) (Stage, error) {
	switch teamCount {
	case 2:
		return StageFinal, nil
	case 4:
		return StageSemi, nil
	case 8:
		return StageQuarter, nil
	case 16:
		return StageRoundOf16, nil
	}
	return "", ErrUnsupportedBracketSize
}

// PreviousStage возвращает стадию, все матчи которой должны завершиться
// прежде чем станет доступна s. Для стартовой точки сетки предыдущей нет.
func PreviousStage(s Stage) (Stage, bool) {
	switch s {
	case StageFinal, StageThirdPlace:
		return StageSemi, true
	case StageSemi:
		return StageQuarter, true
	case StageQuarter:
		return StageRoundOf16, true
	}
	return "", false
}

// ProgressionFrom перечисляет стадии после стартовой в порядке, в котором
// они открываются.
func ProgressionFrom(start Stage) []Stage {
	switch start {
	case StageRoundOf16:
		return []Stage{StageQuarter, StageSemi, StageFinal, StageThirdPlace}
	case StageQuarter:
		return []Stage{StageSemi, StageFinal, StageThirdPlace}
	case StageSemi:
		return []Stage{StageFinal, StageThirdPlace}
	}
	return nil
}
