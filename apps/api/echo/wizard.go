package echoapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/idview/core"
	"github.com/trezcool/idview/core/application"
	"github.com/trezcool/idview/core/session"
	"github.com/trezcool/idview/services/metrics"
	"github.com/trezcool/idview/services/studentapi"
)

var errFieldsBody = errors.New("expected an object of field names to text values")

type wizardApi struct {
	svc         *session.Service
	metrics     *metrics.Metrics
	maxFileSize int64
}

func registerWizardAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *session.Service, m *metrics.Metrics, maxFileSize int64) {
	api := wizardApi{
		svc:         svc,
		metrics:     m,
		maxFileSize: maxFileSize,
	}

	wg := g.Group("/wizards", jwt)
	wg.POST("", api.create)

	// detail endpoints
	dg := wg.Group("/:id", sessionMiddleware(api.svc))
	dg.GET("", api.retrieve)
	dg.DELETE("", api.destroy)
	dg.PATCH("/fields", api.setFields)
	dg.PUT("/files/:field", api.setFile)
	dg.DELETE("/files/:field", api.clearFile)
	dg.POST("/advance", api.advance)
	dg.POST("/retreat", api.retreat)
	dg.POST("/goto", api.jumpTo)
	dg.POST("/submit", api.submit)
}

// Handlers

func (api *wizardApi) create(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	s, err := api.svc.Create(claims.Subject)
	if err != nil {
		return errors.Wrap(err, "creating wizard session")
	}
	api.countSessions()
	return ctx.JSON(http.StatusCreated, newSessionResponse(s))
}

func (api *wizardApi) retrieve(ctx echo.Context) error {
	s, err := getContextSession(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, newSessionResponse(s))
}

func (api *wizardApi) destroy(ctx echo.Context) error {
	s, err := getContextSession(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.Delete(s.ID, s.Owner); err != nil {
		return errors.Wrap(err, "deleting wizard session")
	}
	api.countSessions()
	return ctx.NoContent(http.StatusNoContent)
}

func (api *wizardApi) setFields(ctx echo.Context) error {
	s, err := getContextSession(ctx)
	if err != nil {
		return err
	}
	var data map[string]string
	if err = json.NewDecoder(ctx.Request().Body).Decode(&data); err != nil {
		return core.NewValidationError(errFieldsBody)
	}

	names := make([]string, 0, len(data))
	for name := range data {
		names = append(names, name)
	}
	sort.Strings(names)

	var flds []core.FieldError
	for _, name := range names {
		if err = s.Wizard.SetField(name, data[name]); err != nil {
			cause := errors.Cause(err)
			switch cause {
			case application.ErrUnknownField:
				flds = append(flds, core.FieldError{Field: name, Error: "unknown field"})
			case application.ErrNotText:
				flds = append(flds, core.FieldError{Field: name, Error: "this field takes a file upload"})
			default:
				vErr, ok := cause.(*core.ValidationError)
				if !ok {
					return api.observe(ctx, "set_field", err)
				}
				flds = append(flds, vErr.Fields...)
			}
		}
	}
	if flds != nil {
		return api.observe(ctx, "set_field", core.NewValidationError(application.ErrUnknownField, flds...))
	}
	return api.respond(ctx, "set_field", s, nil)
}

func (api *wizardApi) setFile(ctx echo.Context) error {
	s, err := getContextSession(ctx)
	if err != nil {
		return err
	}
	name := ctx.Param("field")
	if _, err = (application.Draft{}).File(name); err != nil {
		return api.fieldError(name, err)
	}

	fh, err := ctx.FormFile("file")
	if err != nil {
		return core.NewValidationError(errNoFile, core.FieldError{Field: name, Error: errNoFile.Error()})
	}
	src, err := fh.Open()
	if err != nil {
		return errors.Wrap(err, "opening uploaded file")
	}
	defer func() { _ = src.Close() }()

	f, err := application.NewFile(fh.Filename, src, api.maxFileSize)
	if err != nil {
		return api.fieldError(name, err)
	}
	return api.respond(ctx, "set_file", s, s.Wizard.SetFile(name, f))
}

func (api *wizardApi) clearFile(ctx echo.Context) error {
	s, err := getContextSession(ctx)
	if err != nil {
		return err
	}
	name := ctx.Param("field")
	if err = s.Wizard.ClearFile(name); err != nil {
		if errors.Cause(err) == application.ErrSubmitInFlight {
			return api.observe(ctx, "clear_file", err)
		}
		return api.fieldError(name, err)
	}
	return api.respond(ctx, "clear_file", s, nil)
}

func (api *wizardApi) advance(ctx echo.Context) error {
	s, err := getContextSession(ctx)
	if err != nil {
		return err
	}
	return api.respond(ctx, "advance", s, s.Wizard.Advance())
}

func (api *wizardApi) retreat(ctx echo.Context) error {
	s, err := getContextSession(ctx)
	if err != nil {
		return err
	}
	return api.respond(ctx, "retreat", s, s.Wizard.Retreat())
}

func (api *wizardApi) jumpTo(ctx echo.Context) error {
	s, err := getContextSession(ctx)
	if err != nil {
		return err
	}
	var data JumpRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to JumpRequest")
	}
	if err = core.Validate.Struct(data); err != nil {
		return err
	}

	err = s.Wizard.JumpTo(application.StepIndex(data.Step))
	if errors.Cause(err) == application.ErrInvalidStep {
		err = core.NewValidationError(err, core.FieldError{Field: "step", Error: err.Error()})
	}
	return api.respond(ctx, "goto", s, err)
}

func (api *wizardApi) submit(ctx echo.Context) error {
	s, err := getContextSession(ctx)
	if err != nil {
		return err
	}
	token, err := getContextToken(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context token")
	}

	// forward the student's token to the student API
	c := studentapi.WithToken(ctx.Request().Context(), token.Raw)
	_, err = s.Wizard.Submit(c)
	if errors.Cause(err) == application.ErrNotReviewing {
		err = core.NewValidationError(err)
	}
	return api.respond(ctx, "submit", s, err)
}

// Helpers

// respond records the outcome of `action` and sends the wizard state back on success.
func (api *wizardApi) respond(ctx echo.Context, action string, s session.Session, err error) error {
	if err = api.observe(ctx, action, err); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, newSessionResponse(s))
}

func (api *wizardApi) observe(ctx echo.Context, action string, err error) error {
	if api.metrics != nil {
		api.metrics.ObserveTransition(action, err)
	}
	return err
}

func (api *wizardApi) countSessions() {
	if api.metrics == nil {
		return
	}
	if n, err := api.svc.Count(); err == nil {
		api.metrics.SetSessions(n)
	}
}

// fieldError reports an upload error on field `name`.
func (api *wizardApi) fieldError(name string, err error) error {
	var msg string
	switch errors.Cause(err) {
	case application.ErrUnknownField:
		return errHttpNotFound
	case application.ErrNotAFile:
		msg = "this field does not take a file upload"
	case application.ErrEmptyFile:
		msg = application.Label(name) + " is empty"
	case application.ErrFileTooLarge:
		maxSize := api.maxFileSize
		if maxSize <= 0 {
			maxSize = application.DefaultMaxFileSize
		}
		msg = fmt.Sprintf("%s must not exceed %dMB", application.Label(name), maxSize>>20)
	default:
		return errors.Wrap(err, "reading uploaded file")
	}
	return core.NewValidationError(errors.Cause(err), core.FieldError{Field: name, Error: msg})
}

type (
	SessionResponse struct {
		ID    string            `json:"id"`
		State application.State `json:"state"`
	}

	JumpRequest struct {
		Step int `json:"step" validate:"required,min=1,max=5"`
	}
)

func newSessionResponse(s session.Session) SessionResponse {
	return SessionResponse{ID: s.ID, State: s.Wizard.State()}
}
