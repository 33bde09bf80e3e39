package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"

	"github.com/labstack/echo/v4"

	"authcore/internal/auth"
	apperrors "authcore/internal/errors"
	"authcore/internal/logger"
	"authcore/internal/middleware"
	"authcore/internal/model"
)

// Kind tells whether a procedure reads (query) or changes state (mutation).
type Kind string

const (
	KindQuery    Kind = "query"
	KindMutation Kind = "mutation"
)

// Request is what a procedure receives.
type Request struct {
	// Auth is nil for anonymous callers.
	Auth  *auth.Context
	Input any
	Echo  echo.Context
}

// Caller returns the signed-in user. Only call it from procedures that require auth.
func (r *Request) Caller() *model.User {
	return r.Auth.User
}

// Procedure is one entry of the static procedure table.
type Procedure struct {
	Name         string
	Kind         Kind
	RequiresAuth bool
	// AnyOf passes when the caller holds at least one of the roles.
	AnyOf []auth.Role
	// MinRole passes when the caller's highest role ranks at least this high.
	MinRole auth.Role
	// NewInput returns a pointer to a fresh input value, or nil when the procedure takes none.
	NewInput func() any
	Handle   func(ctx context.Context, req *Request) (any, error)
}

// authorize applies the auth requirement first, then the role policy.
func (p *Procedure) authorize(ac *auth.Context) error {
	authenticated := ac != nil && ac.User != nil
	needsAuth := p.RequiresAuth || len(p.AnyOf) > 0 || p.MinRole != ""
	if !needsAuth {
		return nil
	}
	if !authenticated {
		return apperrors.ErrUnauthorized
	}
	roles := ac.Roles()
	if len(p.AnyOf) > 0 && !auth.HasRole(roles, p.AnyOf...) {
		return fmt.Errorf("%w: requires one of %v", apperrors.ErrForbidden, p.AnyOf)
	}
	if p.MinRole != "" && !auth.HasRoleOrHigher(roles, p.MinRole) {
		return fmt.Errorf("%w: requires %s or higher", apperrors.ErrForbidden, p.MinRole)
	}
	return nil
}

// defaulter is implemented by inputs that fill optional fields before validation.
type defaulter interface {
	ApplyDefaults()
}

// ResultEnvelope wraps a successful procedure result.
type ResultEnvelope struct {
	Result ResultData `json:"result"`
}

// ResultData holds the procedure output.
type ResultData struct {
	Data any `json:"data"`
}

// RPCHandler dispatches /trpc/:name calls to the procedure table.
type RPCHandler struct {
	procedures map[string]Procedure
	log        *logger.Logger
}

// NewRPCHandler builds the dispatcher. It panics on a duplicate or incomplete entry,
// since the table is fixed at startup.
func NewRPCHandler(log *logger.Logger, procedures ...Procedure) *RPCHandler {
	if log == nil {
		log = logger.Nop()
	}
	h := &RPCHandler{procedures: make(map[string]Procedure, len(procedures)), log: log}
	for _, p := range procedures {
		if p.Name == "" || p.Handle == nil {
			panic(fmt.Sprintf("procedure %q has no name or handler", p.Name))
		}
		if p.Kind != KindQuery && p.Kind != KindMutation {
			panic(fmt.Sprintf("procedure %q has unknown kind %q", p.Name, p.Kind))
		}
		if _, dup := h.procedures[p.Name]; dup {
			panic(fmt.Sprintf("procedure %q registered twice", p.Name))
		}
		h.procedures[p.Name] = p
	}
	return h
}

// Names lists the registered procedures, sorted.
func (h *RPCHandler) Names() []string {
	names := make([]string, 0, len(h.procedures))
	for name := range h.procedures {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Query godoc
// @Summary Call a query procedure
// @Tags rpc
// @Produce json
// @Param name path string true "Procedure name"
// @Param input query string false "JSON encoded input"
// @Success 200 {object} ResultEnvelope
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Security BearerAuth
// @Router /trpc/{name} [get]
func (h *RPCHandler) Query(c echo.Context) error {
	return h.dispatch(c, KindQuery)
}

// Mutation godoc
// @Summary Call a mutation procedure
// @Tags rpc
// @Accept json
// @Produce json
// @Param name path string true "Procedure name"
// @Param input body object false "Procedure input"
// @Success 200 {object} ResultEnvelope
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Security BearerAuth
// @Router /trpc/{name} [post]
func (h *RPCHandler) Mutation(c echo.Context) error {
	return h.dispatch(c, KindMutation)
}

func (h *RPCHandler) dispatch(c echo.Context, kind Kind) error {
	name := c.Param("name")
	p, ok := h.procedures[name]
	if !ok {
		return c.JSON(http.StatusNotFound, apperrors.ErrorResponse{
			Error: fmt.Sprintf("no procedure named %q", name),
			Code:  "NOT_FOUND",
		})
	}
	if p.Kind != kind {
		return c.JSON(http.StatusMethodNotAllowed, apperrors.ErrorResponse{
			Error: fmt.Sprintf("%s is a %s", name, p.Kind),
			Code:  "METHOD_NOT_SUPPORTED",
		})
	}

	ac := middleware.AuthContext(c)
	if err := p.authorize(ac); err != nil {
		return h.fail(c, p, ac, err)
	}

	input, err := h.decodeInput(c, p)
	if err != nil {
		return h.fail(c, p, ac, err)
	}

	out, err := p.Handle(c.Request().Context(), &Request{Auth: ac, Input: input, Echo: c})
	if err != nil {
		return h.fail(c, p, ac, err)
	}
	return c.JSON(http.StatusOK, ResultEnvelope{Result: ResultData{Data: out}})
}

func (h *RPCHandler) decodeInput(c echo.Context, p Procedure) (any, error) {
	if p.NewInput == nil {
		return nil, nil
	}
	input := p.NewInput()

	var raw []byte
	if p.Kind == KindQuery {
		raw = []byte(c.QueryParam("input"))
	} else {
		body, err := io.ReadAll(io.LimitReader(c.Request().Body, 1<<20))
		if err != nil {
			return nil, fmt.Errorf("%w: unreadable body", apperrors.ErrValidation)
		}
		raw = body
	}
	if len(raw) > 0 && string(raw) != "null" {
		if err := json.Unmarshal(raw, input); err != nil {
			return nil, fmt.Errorf("%w: malformed input: %v", apperrors.ErrValidation, err)
		}
	}

	if d, ok := input.(defaulter); ok {
		d.ApplyDefaults()
	}
	if c.Echo().Validator != nil {
		if err := c.Validate(input); err != nil {
			return nil, fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
		}
	}
	return input, nil
}

func (h *RPCHandler) fail(c echo.Context, p Procedure, ac *auth.Context, err error) error {
	httpErr := apperrors.MapErrorToHTTP(err)
	if !apperrors.IsKnown(err) {
		kv := []interface{}{"procedure", p.Name, "error", err}
		if ac != nil && ac.User != nil {
			kv = append(kv, "user_id", ac.User.ID.String())
		}
		if errors.Is(err, context.Canceled) {
			h.log.Warn("procedure canceled", kv...)
		} else {
			h.log.Error("procedure failed", kv...)
		}
	}
	return c.JSON(httpErr.StatusCode, httpErr.ToErrorResponse())
}
