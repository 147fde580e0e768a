// handlers/api/auth.go
package api

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/pbkdf2"

	"gatewatch/models"
	"gatewatch/utils"
)

const (
	localIdentity = "identity"
	localBackend  = "backendToken"
)

// SessionClaims is the console's own JWT payload, signed per login and kept
// in the session alongside the sealed backend token.
type SessionClaims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// GenerateToken issues the console session JWT.
func GenerateToken(username, role, secret string, expiry time.Duration) (string, error) {
	claims := SessionClaims{
		Username: username,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiry)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseToken validates a console session JWT and returns its claims.
func ParseToken(tokenStr, secret string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &SessionClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid session token")
	}
	return claims, nil
}

// deriveKey stretches the configured encryption key into an AES-256 key.
func deriveKey(key string, salt []byte) []byte {
	return pbkdf2.Key([]byte(key), salt, 4096, 32, sha256.New)
}

// SealToken encrypts the backend bearer token for storage in the session.
// Output layout: base64(salt || nonce || ciphertext).
func SealToken(token, key string) (string, error) {
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %v", err)
	}

	block, err := aes.NewCipher(deriveKey(key, salt))
	if err != nil {
		return "", fmt.Errorf("failed to create cipher: %v", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("failed to create GCM: %v", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %v", err)
	}

	sealed := gcm.Seal(nil, nonce, []byte(token), nil)
	out := append(salt, nonce...)
	out = append(out, sealed...)
	return base64.StdEncoding.EncodeToString(out), nil
}

// OpenToken decrypts a sealed backend token.
func OpenToken(sealed, key string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return "", fmt.Errorf("invalid sealed token: %v", err)
	}
	if len(raw) < 16 {
		return "", fmt.Errorf("sealed token too short")
	}

	salt, rest := raw[:16], raw[16:]
	block, err := aes.NewCipher(deriveKey(key, salt))
	if err != nil {
		return "", fmt.Errorf("failed to create cipher: %v", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("failed to create GCM: %v", err)
	}
	if len(rest) < gcm.NonceSize() {
		return "", fmt.Errorf("sealed token too short")
	}

	nonce, ciphertext := rest[:gcm.NonceSize()], rest[gcm.NonceSize():]
	plain, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt token: %v", err)
	}
	return string(plain), nil
}

// IsPartialRequest reports whether the request expects a fragment or JSON
// answer rather than a full page.
func IsPartialRequest(c *fiber.Ctx) bool {
	if c == nil {
		return false
	}
	if c.Get("HX-Request") != "" {
		return true
	}
	path := c.Path()
	return len(path) >= 4 && path[:4] == "/api"
}

// SessionMiddleware resolves the operator identity once per request and
// stores it in locals. Unresolved sessions are sent to login; partial
// requests get a 401 with an HX-Redirect so the browser leaves the page.
func SessionMiddleware(store *session.Store, jwtSecret, encryptionKey string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess, err := store.Get(c)
		if err != nil {
			return RedirectToLogin(c)
		}

		tokenStr, _ := sess.Get("token").(string)
		sealed, _ := sess.Get("backendToken").(string)
		if tokenStr == "" || sealed == "" {
			return RedirectToLogin(c)
		}

		claims, err := ParseToken(tokenStr, jwtSecret)
		if err != nil {
			utils.Log.Debug("Session token rejected: %v", err)
			sess.Destroy()
			return RedirectToLogin(c)
		}

		backendToken, err := OpenToken(sealed, encryptionKey)
		if err != nil {
			utils.Log.Warn("Failed to open backend token for %s: %v", claims.Username, err)
			sess.Destroy()
			return RedirectToLogin(c)
		}

		c.Locals(localIdentity, models.Identity{Username: claims.Username, Role: claims.Role})
		c.Locals(localBackend, backendToken)
		return c.Next()
	}
}

// CurrentIdentity returns the identity resolved by SessionMiddleware.
func CurrentIdentity(c *fiber.Ctx) models.Identity {
	identity, _ := c.Locals(localIdentity).(models.Identity)
	return identity
}

// BackendToken returns the unsealed backend bearer token for this request.
func BackendToken(c *fiber.Ctx) string {
	token, _ := c.Locals(localBackend).(string)
	return token
}

// HandleUnauthorized is the one shared funnel for a backend 401: it
// invalidates the session and pushes the browser to login. It is never an
// inline panel message.
func HandleUnauthorized(c *fiber.Ctx, store *session.Store) error {
	if sess, err := store.Get(c); err == nil {
		sess.Destroy()
	}
	return RedirectToLogin(c)
}

// RedirectToLogin sends an unresolved operator back to the login page, as a
// plain redirect for navigations and an HX-Redirect for fragments.
func RedirectToLogin(c *fiber.Ctx) error {
	if IsPartialRequest(c) {
		c.Set("HX-Redirect", "/login")
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "session expired",
		})
	}
	return c.Redirect("/login")
}
