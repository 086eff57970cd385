package middleware

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/clinicorp/n0-error-tracker/internal/dto"
	"github.com/clinicorp/n0-error-tracker/internal/models"
	"github.com/clinicorp/n0-error-tracker/internal/services"
)

const actorKey = "actor"

// Actor loads the user behind the verified token into Locals("actor"). It
// must run after JWTProtected.
func Actor(users *services.UserService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := identityFromToken(c)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Error: true, Message: "Unauthorized",
			})
		}

		actor, err := users.ResolveActor(c.UserContext(), id)
		if err != nil {
			slog.Error("resolve actor failed", "open_id", id.OpenID, "error", err)
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Error: true, Message: "Unauthorized",
			})
		}
		c.Locals(actorKey, actor)
		return c.Next()
	}
}

func identityFromToken(c *fiber.Ctx) (services.Identity, bool) {
	token, ok := c.Locals("user").(*jwt.Token)
	if !ok || token == nil {
		return services.Identity{}, false
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return services.Identity{}, false
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		// some issuers put the subject under openId
		sub, _ = claims["openId"].(string)
	}
	if sub == "" {
		return services.Identity{}, false
	}
	name, _ := claims["name"].(string)
	email, _ := claims["email"].(string)
	return services.Identity{OpenID: sub, Name: name, Email: email}, true
}

// GetActor returns the user stored by Actor, or nil.
func GetActor(c *fiber.Ctx) *models.User {
	actor, _ := c.Locals(actorKey).(*models.User)
	return actor
}
