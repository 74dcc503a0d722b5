package httpapi

import (
	"encoding/base64"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/javi11/magicer/internal/apperr"
	"github.com/javi11/magicer/internal/valueobj"
)

const requestIDHeader = "X-Request-Id"
const requestIDLocalsKey = "requestID"

// requestIDMiddleware mints a fresh RequestId for every request, stores it
// in fiber.Ctx locals for handlers, and echoes it in the response header
// named in spec.md §6 ("exact header name is a framework choice").
func requestIDMiddleware(c *fiber.Ctx) error {
	id := valueobj.NewRequestId()
	c.Locals(requestIDLocalsKey, id)
	c.Set(requestIDHeader, id.String())
	return c.Next()
}

func requestIDFromCtx(c *fiber.Ctx) valueobj.RequestId {
	if id, ok := c.Locals(requestIDLocalsKey).(valueobj.RequestId); ok {
		return id
	}
	return valueobj.NewRequestId()
}

// basicAuthMiddleware enforces the single shared credential of spec.md §3,
// modeled on internal/webdav/server.go's manual Basic-Auth compare against
// dynamic credentials, but using the constant-time valueobj.Credentials
// comparison instead of a plain string ==.
func basicAuthMiddleware(creds func() valueobj.Credentials) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, pass := parseBasicAuth(c.Get(fiber.HeaderAuthorization))
		if !creds().Equal(user, pass) {
			c.Set(fiber.HeaderWWWAuthenticate, `Basic realm="magicer"`)
			return respondError(c, requestIDFromCtx(c).String(), unauthorized())
		}
		return c.Next()
	}
}

func parseBasicAuth(header string) (user, pass string) {
	const prefix = "Basic "
	if !strings.HasPrefix(header, prefix) {
		return "", ""
	}
	raw, err := base64.StdEncoding.DecodeString(header[len(prefix):])
	if err != nil {
		return "", ""
	}
	user, pass, ok := strings.Cut(string(raw), ":")
	if !ok {
		return "", ""
	}
	return user, pass
}

func unauthorized() error {
	return apperr.New("authenticate request", apperr.Unauthorized, "missing or invalid credentials")
}
