package auth

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// defaultSecret must match the JWT_SECRET default in the config package so
// tokens issued and verified under the default config share one key.
const defaultSecret = "supersecretkey"

// secret is read per call so tests can swap it via the environment
func secret() []byte {
	if s := os.Getenv("JWT_SECRET"); s != "" {
		return []byte(s)
	}
	return []byte(defaultSecret)
}

// Claims extracted from a verified token
type Claims struct {
	UserID string
	Role   string
}

func GenerateToken(userID, role string) (string, error) {
	expiryHours, _ := strconv.Atoi(os.Getenv("JWT_EXPIRY_HOURS"))
	if expiryHours == 0 {
		expiryHours = 24
	}
	claims := jwt.MapClaims{
		"user_id": userID,
		"role":    role,
		"exp":     time.Now().Add(time.Duration(expiryHours) * time.Hour).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret())
}

func ParseToken(tokenStr string) (*Claims, error) {
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		return secret(), nil
	})
	if err != nil || !token.Valid {
		return nil, errors.New("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || claims["user_id"] == nil {
		return nil, errors.New("invalid claims")
	}

	parsed := &Claims{}
	parsed.UserID, ok = claims["user_id"].(string)
	if !ok {
		return nil, errors.New("invalid claims")
	}
	if role, ok := claims["role"].(string); ok {
		parsed.Role = role
	}

	return parsed, nil
}
