package dashboard

import (
	"net/http"

	"github.com/awakeconnect/awake/apperr"
	"github.com/gofiber/fiber/v2"
)

// jsonResponse writes payload with code. Errors are rendered through apperr, and a
// zero code then takes the error's own status.
func jsonResponse(c *fiber.Ctx, code int, payload interface{}) {
	if err, ok := payload.(error); ok {
		status := code
		if status == 0 {
			status = apperr.Status(err)
		}
		body := apperr.Payload(err)
		body["success"] = false
		_ = c.Status(status).JSON(body)
		return
	}
	if code == 0 {
		code = http.StatusOK
	}
	_ = c.Status(code).JSON(payload)
}
