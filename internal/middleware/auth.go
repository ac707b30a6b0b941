package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/user/moviecatalog/internal/utils"
)

const subjectKey = "subject"

// Claims JWT 声明
type Claims struct {
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// RequireAuth 写接口鉴权，要求 Authorization: Bearer <token>
func RequireAuth(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := extractClaims(c, jwtSecret)
		if err != nil {
			utils.Unauthorized(c, "missing or invalid bearer token")
			c.Abort()
			return
		}

		c.Set(subjectKey, claims.Subject)
		c.Next()
	}
}

// extractClaims 从 Authorization Header 中提取 JWT Claims
func extractClaims(c *gin.Context, jwtSecret string) (*Claims, error) {
	authHeader := c.GetHeader("Authorization")
	tokenString, ok := strings.CutPrefix(authHeader, "Bearer ")
	if !ok || tokenString == "" {
		return nil, jwt.ErrTokenMalformed
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(jwtSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}

	return claims, nil
}

// GetSubject 从上下文获取调用方（未鉴权返回空串）
func GetSubject(c *gin.Context) string {
	return c.GetString(subjectKey)
}

// GenerateToken 生成 HS256 Token
func GenerateToken(subject, role, jwtSecret string, expiry time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(jwtSecret))
}
