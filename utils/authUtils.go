package utils

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"
	"os"
	"strings"
	"time"
	"unicode"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var ErrWeakPassword = errors.New("password policy violation")
var ErrTokenExpired = errors.New("token expired")
var ErrTokenInvalid = errors.New("token invalid")

type JWT_TOKEN struct {
	TokenString string
	ExpireTime  time.Time
}

// Claims are carried by every token the service signs. TokenType prevents a
// refresh or two-factor token from being replayed as an access token.
type Claims struct {
	jwt.RegisteredClaims
	UserID    string `json:"userId"`
	Email     string `json:"email"`
	TokenType string `json:"tokenType"`
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), HASH_ROUNDS)
	return string(bytes), err
}

func ComparePasswords(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}

// ValidatePassword checks the registration/reset password policy and reports
// every unmet requirement in a single message.
func ValidatePassword(password string) error {
	var missing []string
	if len(password) < MIN_PASSWORD_LENGTH {
		missing = append(missing, fmt.Sprintf("at least %d characters", MIN_PASSWORD_LENGTH))
	}
	var hasUpper, hasLower, hasDigit, hasSymbol bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		default:
			hasSymbol = true
		}
	}
	if !hasUpper {
		missing = append(missing, "an uppercase letter")
	}
	if !hasLower {
		missing = append(missing, "a lowercase letter")
	}
	if !hasDigit {
		missing = append(missing, "a digit")
	}
	if !hasSymbol {
		missing = append(missing, "a symbol")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: password must contain %s", ErrWeakPassword, strings.Join(missing, ", "))
	}
	return nil
}

func _GetJWTSecret(tokenType string, getOldKey bool) ([]byte, error) {
	var b64String string
	if tokenType == REFRESH_TYPE {
		b64String = os.Getenv(JWT_SECRET_KEY_REFRESH)
		if getOldKey {
			b64String = os.Getenv(JWT_SECRET_KEY_REFRESH_OLD)
		}
	} else {
		b64String = os.Getenv(JWT_SECRET_KEY_ACCESS)
		if getOldKey {
			b64String = os.Getenv(JWT_SECRET_KEY_ACCESS_OLD)
		}
	}
	return base64.StdEncoding.DecodeString(b64String)
}

func tokenDuration(tokenType string) time.Duration {
	switch tokenType {
	case REFRESH_TYPE:
		return REFRESH_TOKEN_DURATION
	case TWO_FACTOR_TYPE:
		return TWO_FACTOR_CODE_DURATION
	default:
		return ACCESS_TOKEN_DURATION
	}
}

func CreateToken(userID, email, tokenType string) (JWT_TOKEN, error) {
	signingKey, err := _GetJWTSecret(tokenType, false)
	if err != nil {
		return JWT_TOKEN{}, err
	}
	now := time.Now().UTC()
	expireTime := now.Add(tokenDuration(tokenType))
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expireTime),
		},
		UserID:    userID,
		Email:     email,
		TokenType: tokenType,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(signingKey)
	if err != nil {
		return JWT_TOKEN{}, err
	}
	return JWT_TOKEN{TokenString: tokenString, ExpireTime: expireTime}, nil
}

func _ParseToken(tokenString string, signingKey []byte) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return signingKey, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// VerifyToken checks the signature against the current signing key and falls
// back to the previous one, so secrets can rotate without a global logout.
// Expired tokens are reported distinctly from malformed or misused ones.
func VerifyToken(tokenType, tokenString string) (*Claims, error) {
	signingKey, err := _GetJWTSecret(tokenType, false)
	if err != nil {
		return nil, err
	}
	claims, parseErr := _ParseToken(tokenString, signingKey)
	if parseErr != nil {
		oldSigningKey, keyErr := _GetJWTSecret(tokenType, true)
		if keyErr == nil && len(oldSigningKey) > 0 {
			if oldClaims, oldErr := _ParseToken(tokenString, oldSigningKey); oldErr == nil {
				claims, parseErr = oldClaims, nil
			}
		}
	}
	if parseErr != nil {
		if errors.Is(parseErr, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	if claims.TokenType != tokenType {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// GenerateVerificationCode returns a uniformly random six digit code in
// 100000-999999, so codes never start with a zero.
func GenerateVerificationCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

// GenerateResetToken returns an opaque URL-safe token with 256 bits of
// entropy.
func GenerateResetToken() (string, error) {
	raw := make([]byte, RESET_TOKEN_BYTES)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}
