package server

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

const callerIDKey = "caller_id"

// Auth validates the HS256 bearer token and injects the caller id taken from
// its "sub" claim. Token issuance happens elsewhere.
func Auth(jwtSecret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization header")
			}

			claims := jwt.MapClaims{}
			tkn, err := jwt.ParseWithClaims(parts[1], claims, func(token *jwt.Token) (interface{}, error) {
				return []byte(jwtSecret), nil
			}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
			if err != nil || !tkn.Valid {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			callerID, err := subjectID(claims)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "token missing caller identity")
			}

			c.Set(callerIDKey, callerID)
			return next(c)
		}
	}
}

// subjectID reads "sub" as a positive user id, numeric or string encoded.
func subjectID(claims jwt.MapClaims) (int64, error) {
	var id int64
	switch v := claims["sub"].(type) {
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, err
		}
		id = n
	case float64:
		id = int64(v)
		if float64(id) != v {
			return 0, fmt.Errorf("sub %v is not an integer", v)
		}
	default:
		return 0, fmt.Errorf("sub claim missing")
	}
	if id <= 0 {
		return 0, fmt.Errorf("sub %d is not a user id", id)
	}
	return id, nil
}

// callerFromContext returns the caller id set by Auth.
func callerFromContext(c echo.Context) (int64, error) {
	id, ok := c.Get(callerIDKey).(int64)
	if !ok || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}
	return id, nil
}
