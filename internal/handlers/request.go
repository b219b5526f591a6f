package handlers

import (
	"errors"
	"reflect"
	"strconv"
	"strings"

	"github.com/dimitrije/lectern-api/internal/services"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/m1z23r/drift/pkg/drift"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// bind decodes and validates the JSON body. When it returns false the 400
// has already been written.
func bind(c *drift.Context, req any) bool {
	if err := c.BindJSON(req); err != nil {
		c.BadRequest("invalid request body")
		return false
	}
	if err := validate.Struct(req); err != nil {
		c.BadRequest(validationMessage(err))
		return false
	}
	return true
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "invalid request body"
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "email":
		return fe.Field() + " must be a valid email"
	case "oneof":
		return fe.Field() + " must be one of: " + fe.Param()
	case "min", "max":
		return fe.Field() + " length must be " + fe.Tag() + " " + fe.Param()
	}
	return fe.Field() + " is invalid"
}

func paramID(c *drift.Context, name, what string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.BadRequest("invalid " + what + " id")
		return uuid.Nil, false
	}
	return id, true
}

func queryID(c *drift.Context, name string) (*uuid.UUID, bool) {
	raw := c.QueryParam(name)
	if raw == "" {
		return nil, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		c.BadRequest("invalid " + name)
		return nil, false
	}
	return &id, true
}

func queryInt(c *drift.Context, name string, def int) int {
	n, err := strconv.Atoi(c.QueryParam(name))
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// writeError maps service sentinels onto responses. what names the resource
// in not-found and conflict messages.
func writeError(c *drift.Context, err error, what, action string) {
	switch {
	case errors.Is(err, services.ErrNotFound), errors.Is(err, services.ErrUserNotFound):
		c.NotFound(what + " not found")
	case errors.Is(err, services.ErrConflict), errors.Is(err, services.ErrUserExists):
		_ = c.JSON(409, map[string]string{"error": what + " already exists"})
	case errors.Is(err, services.ErrUnsupportedMedia):
		_ = c.JSON(415, map[string]string{"error": "unsupported media type"})
	case errors.Is(err, services.ErrMediaTooLarge):
		_ = c.JSON(413, map[string]string{"error": "file too large"})
	case errors.Is(err, services.ErrMediaSize):
		c.BadRequest("content length is required")
	case errors.Is(err, services.ErrInvalidClass), errors.Is(err, services.ErrInvalidSubject),
		errors.Is(err, services.ErrInvalidChapter), errors.Is(err, services.ErrInvalidPlacement):
		c.BadRequest(err.Error())
	default:
		c.InternalServerError("failed to " + action)
	}
}
