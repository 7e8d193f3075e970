package middleware

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Имена claims в токене.
const (
	jwtClaimUserID   = "id"
	jwtClaimUsername = "username"
	jwtClaimRole     = "role"
)

// GetUserIDFromContext извлекает идентификатор пользователя из claims.
// Идентификаторы парсятся только здесь, на границе HTTP: дальше по
// стеку ходит уже типизированный primitive.ObjectID.
func GetUserIDFromContext(ctx context.Context) (primitive.ObjectID, error) {
	claims, ok := ctx.Value(userContextKey).(jwt.MapClaims)
	if !ok {
		return primitive.NilObjectID, errors.New("user claims not found in context or invalid type")
	}

	idClaim, ok := claims[jwtClaimUserID]
	if !ok {
		return primitive.NilObjectID, fmt.Errorf("missing '%s' claim in token", jwtClaimUserID)
	}

	idStr, ok := idClaim.(string)
	if !ok {
		return primitive.NilObjectID, fmt.Errorf("invalid type for '%s' claim: expected string, got %T", jwtClaimUserID, idClaim)
	}

	id, err := primitive.ObjectIDFromHex(idStr)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("invalid user ID value in '%s' claim: %q", jwtClaimUserID, idStr)
	}
	return id, nil
}

func GetUserRoleFromContext(ctx context.Context) (string, error) {
	claims, ok := ctx.Value(userContextKey).(jwt.MapClaims)
	if !ok {
		return "", errors.New("user claims not found in context or invalid type")
	}

	roleClaim, ok := claims[jwtClaimRole]
	if !ok {
		return "", fmt.Errorf("missing '%s' claim in token", jwtClaimRole)
	}

	role, ok := roleClaim.(string)
	if !ok {
		return "", fmt.Errorf("invalid type for '%s' claim: expected string, got %T", jwtClaimRole, roleClaim)
	}
	return role, nil
}
