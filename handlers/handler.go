package handlers

import (
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
	"github.com/labstack/echo/v4"
	"github.com/uptrace/bun"
	"go.uber.org/zap"

	"github.com/padraicbc/riderapi/identity"
)

// Handler holds shared dependencies used by all route handlers.
type Handler struct {
	db       *bun.DB
	resolver *identity.Resolver
	log      *zap.Logger
	admins   map[string]bool
	JWTKey   []byte
}

// New creates a Handler around the identity engine and the JWT signing key.
// admins lists the usernames allowed to mint password hashes; an empty list
// means "admin".
func New(db *bun.DB, resolver *identity.Resolver, jwtKey []byte, admins []string, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(admins) == 0 {
		admins = []string{"admin"}
	}
	set := make(map[string]bool, len(admins))
	for _, a := range admins {
		set[strings.ToLower(strings.TrimSpace(a))] = true
	}
	return &Handler{db: db, resolver: resolver, log: logger, admins: set, JWTKey: jwtKey}
}

// Validator plugs go-playground/validator into echo's c.Validate.
type Validator struct {
	v *validator.Validate
}

// NewValidator returns the validator the server installs as e.Validator.
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Only fails for an empty tag or a nil func.
	_ = v.RegisterValidation("notblank", validators.NotBlank)
	return &Validator{v: v}
}

// Validate checks the struct tags of i.
func (cv *Validator) Validate(i interface{}) error {
	if err := cv.v.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

// bind decodes and validates a request body.
func bind(c echo.Context, dst interface{}) error {
	if err := c.Bind(dst); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.Validate(dst)
}
