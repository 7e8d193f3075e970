package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Dosada05/futsal-pulse/brackets"
	"github.com/Dosada05/futsal-pulse/services"
)

type jsonResponse map[string]interface{}

func readJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	maxBytes := 1_048_576 // 1MB
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxBytes))

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	err := dec.Decode(dst)
	if err != nil {
		var syntaxError *json.SyntaxError
		var unmarshalTypeError *json.UnmarshalTypeError
		var invalidUnmarshalError *json.InvalidUnmarshalError

		switch {
		case errors.As(err, &syntaxError):
			return fmt.Errorf("body contains badly-formed JSON (at character %d)", syntaxError.Offset)
		case errors.Is(err, io.ErrUnexpectedEOF):
			return errors.New("body contains badly-formed JSON")
		case errors.As(err, &unmarshalTypeError):
			if unmarshalTypeError.Field != "" {
				return fmt.Errorf("body contains incorrect JSON type for field %q", unmarshalTypeError.Field)
			}
			return fmt.Errorf("body contains incorrect JSON type (at character %d)", unmarshalTypeError.Offset)
		case errors.Is(err, io.EOF):
			return errors.New("body must not be empty")
		case strings.HasPrefix(err.Error(), "json: unknown field "):
			fieldName := strings.TrimPrefix(err.Error(), "json: unknown field ")
			return fmt.Errorf("body contains unknown key %s", fieldName)
		case err.Error() == "http: request body too large":
			return fmt.Errorf("body must not be larger than %d bytes", maxBytes)
		case errors.As(err, &invalidUnmarshalError):
			panic(err) // Ошибка программиста: dst не указатель.
		default:
			return err
		}
	}

	err = dec.Decode(&struct{}{})
	if !errors.Is(err, io.EOF) {
		return errors.New("body must only contain a single JSON value")
	}

	return nil
}

func writeJSON(w http.ResponseWriter, status int, data interface{}, headers http.Header) error {
	js, err := json.Marshal(data)
	if err != nil {
		return err
	}
	js = append(js, '\n')

	for key, value := range headers {
		w.Header()[key] = value
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err = w.Write(js)
	return err
}

// getIDFromURL парсит url-параметр в ObjectID. Идентификаторы парсятся
// только на границе HTTP, дальше ходят типизированными.
func getIDFromURL(r *http.Request, param string) (primitive.ObjectID, error) {
	raw := chi.URLParam(r, param)
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("invalid %s: %q", param, raw)
	}
	return id, nil
}

// parseObjectID — то же самое для идентификаторов из тела запроса.
func parseObjectID(raw, field string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("invalid %s: %q", field, raw)
	}
	return id, nil
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

func errorResponse(w http.ResponseWriter, r *http.Request, status int, message interface{}) {
	env := jsonResponse{"error": message}
	if err := writeJSON(w, status, env, nil); err != nil {
		slog.Error("failed to write error response", "error", err, "path", r.URL.Path)
		w.WriteHeader(http.StatusInternalServerError)
	}
}

func serverErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	slog.Error("internal server error", "error", err, "method", r.Method, "path", r.URL.Path)
	message := "the server encountered a problem and could not process your request"
	errorResponse(w, r, http.StatusInternalServerError, message)
}

func badRequestResponse(w http.ResponseWriter, r *http.Request, err error) {
	errorResponse(w, r, http.StatusBadRequest, err.Error())
}

func notFoundResponse(w http.ResponseWriter, r *http.Request) {
	message := "the requested resource could not be found"
	errorResponse(w, r, http.StatusNotFound, message)
}

func conflictResponse(w http.ResponseWriter, r *http.Request, message string) {
	errorResponse(w, r, http.StatusConflict, message)
}

func unauthorizedResponse(w http.ResponseWriter, r *http.Request, message string) {
	errorResponse(w, r, http.StatusUnauthorized, message)
}

func forbiddenResponse(w http.ResponseWriter, r *http.Request, message string) {
	errorResponse(w, r, http.StatusForbidden, message)
}

func unprocessableResponse(w http.ResponseWriter, r *http.Request, err error) {
	errorResponse(w, r, http.StatusUnprocessableEntity, err.Error())
}

// mapServiceErrorToHTTP преобразует ошибки сервисного слоя в HTTP-ответы.
func mapServiceErrorToHTTP(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	// Ресурс не найден
	case errors.Is(err, services.ErrNotFound),
		errors.Is(err, services.ErrUserNotFound),
		errors.Is(err, services.ErrTeamNotFound),
		errors.Is(err, services.ErrTournamentNotFound),
		errors.Is(err, services.ErrRegistrationNotFound),
		errors.Is(err, services.ErrMatchNotFound),
		errors.Is(err, services.ErrEventNotFound),
		errors.Is(err, services.ErrNotificationNotFound),
		errors.Is(err, services.ErrReviewNotFound),
		errors.Is(err, services.ErrAnnouncementNotFound),
		errors.Is(err, services.ErrInvitationNotFound):
		notFoundResponse(w, r)

	// Конфликты
	case errors.Is(err, services.ErrUserCredentialsConflict),
		errors.Is(err, services.ErrTeamNameConflict),
		errors.Is(err, services.ErrRegistrationConflict),
		errors.Is(err, services.ErrInviteAlreadyPending),
		errors.Is(err, services.ErrTeamHasRegistrations),
		errors.Is(err, services.ErrTeamHasMatches),
		errors.Is(err, services.ErrMatchConflict):
		conflictResponse(w, r, err.Error())

	// Аутентификация
	case errors.Is(err, services.ErrInvalidCredentials):
		unauthorizedResponse(w, r, err.Error())

	// Доступ
	case errors.Is(err, services.ErrForbiddenOperation),
		errors.Is(err, services.ErrCaptainActionForbidden),
		errors.Is(err, services.ErrOrganizerOnly),
		errors.Is(err, services.ErrSubscriberRoleForbidden),
		errors.Is(err, services.ErrAnnouncementsForbidden):
		forbiddenResponse(w, r, err.Error())

	// Сетка турнира
	case errors.Is(err, brackets.ErrUnsupportedBracketSize):
		unprocessableResponse(w, r, err)

	// Валидация и бизнес-правила
	case errors.Is(err, services.ErrValidationFailed),
		errors.Is(err, services.ErrPasswordTooShort),
		errors.Is(err, services.ErrInvalidRole),
		errors.Is(err, services.ErrTeamNameRequired),
		errors.Is(err, services.ErrTeamFull),
		errors.Is(err, services.ErrUserAlreadyInTeam),
		errors.Is(err, services.ErrCannotRemoveSelf),
		errors.Is(err, services.ErrRatingOutOfRange),
		errors.Is(err, services.ErrCommentTooLong),
		errors.Is(err, services.ErrPlayerInAnotherTeam),
		errors.Is(err, services.ErrInvitedTeamGone),
		errors.Is(err, services.ErrInvalidInviteReply),
		errors.Is(err, services.ErrInvalidRegistrationStatus),
		errors.Is(err, services.ErrTournamentNameRequired),
		errors.Is(err, services.ErrTournamentCityRequired),
		errors.Is(err, services.ErrTournamentDatesInvalid),
		errors.Is(err, services.ErrAnnouncementTextRequired),
		errors.Is(err, services.ErrMatchTeamsIdentical),
		errors.Is(err, services.ErrMatchDateInvalid),
		errors.Is(err, services.ErrMatchDateOutOfRange),
		errors.Is(err, services.ErrInvalidStage),
		errors.Is(err, services.ErrStageFull),
		errors.Is(err, services.ErrStageLocked),
		errors.Is(err, services.ErrTeamsNotApproved),
		errors.Is(err, services.ErrTeamAlreadyInStage),
		errors.Is(err, services.ErrPairAlreadyInStage),
		errors.Is(err, services.ErrTeamsNotEligible),
		errors.Is(err, services.ErrMatchAlreadyFinished),
		errors.Is(err, services.ErrTiedAfterRegular),
		errors.Is(err, services.ErrTiedAfterOvertime),
		errors.Is(err, services.ErrShootoutNotDecided),
		errors.Is(err, services.ErrTeamNotInMatch),
		errors.Is(err, services.ErrPlayerNotInTeam),
		errors.Is(err, services.ErrInvalidEventType),
		errors.Is(err, services.ErrInvalidMinute),
		errors.Is(err, services.ErrMinutePastOvertime),
		errors.Is(err, services.ErrExtraTimeNotAllowed),
		errors.Is(err, services.ErrPlayerSentOff),
		errors.Is(err, services.ErrShootoutNotAllowed),
		errors.Is(err, services.ErrPenaltyBySentOff),
		errors.Is(err, services.ErrInvalidOutcome),
		errors.Is(err, services.ErrKickOutOfTurn),
		errors.Is(err, services.ErrKickRotationViolated):
		badRequestResponse(w, r, err)

	default:
		serverErrorResponse(w, r, err)
	}
}
