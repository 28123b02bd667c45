package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"storefront/internal/dto"
	"storefront/internal/middleware"
	"storefront/internal/model"
	"storefront/internal/service"
	"storefront/internal/session"
)

type AuthHandler struct {
	accountService service.AccountService
	adminSuffix    string
	log            logrus.FieldLogger
}

func NewAuthHandler(accountService service.AccountService, adminSuffix string, log logrus.FieldLogger) *AuthHandler {
	return &AuthHandler{
		accountService: accountService,
		adminSuffix:    adminSuffix,
		log:            log,
	}
}

func currentSession(c echo.Context) (middleware.UserSession, error) {
	s := middleware.UserSessionFrom(c)
	if s == nil {
		return nil, echo.NewHTTPError(http.StatusInternalServerError, "session unavailable")
	}
	return s, nil
}

func (h *AuthHandler) stateResponse(st session.State) dto.AuthStateResponse {
	return dto.AuthStateResponse{
		User:          st.User,
		Authenticated: st.Authenticated(),
		IsAdmin:       model.IsAdminUser(st.User, h.adminSuffix),
		Loading:       st.Loading,
		Error:         st.Error,
	}
}

func (h *AuthHandler) State(c echo.Context) error {
	s, err := currentSession(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, h.stateResponse(s.GetState()))
}

func (h *AuthHandler) SignIn(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.SignInRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	s, err := currentSession(c)
	if err != nil {
		return err
	}
	if err := s.SignIn(ctx, req.Email, req.Password); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, h.stateResponse(s.GetState()))
}

func (h *AuthHandler) SignUp(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.SignUpRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	s, err := currentSession(c)
	if err != nil {
		return err
	}
	if err := s.SignUp(ctx, req.Email, req.Password, req.FullName); err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, dto.MessageResponse{
		Message: "Please check your email for a confirmation link. You need to confirm your email before logging in.",
	})
}

func (h *AuthHandler) SignOut(c echo.Context) error {
	ctx := c.Request().Context()

	s, err := currentSession(c)
	if err != nil {
		return err
	}
	if err := s.SignOut(ctx); err != nil {
		h.log.WithError(err).Warn("provider sign out failed")
	}

	return c.JSON(http.StatusOK, h.stateResponse(s.GetState()))
}

func (h *AuthHandler) ForgotPassword(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.EmailRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	if err := h.accountService.ForgotPassword(ctx, req.Email); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, dto.MessageResponse{
		Message: "Password reset instructions sent to your email. Please check your inbox.",
	})
}

func (h *AuthHandler) ResetPassword(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.ResetPasswordRequest
	if err := c.Bind(&req); err != nil {
		return err
	}

	if err := h.accountService.ResetPassword(ctx, req.AccessToken, req.Password, req.ConfirmPassword); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, dto.MessageResponse{Message: "Password updated successfully!"})
}

func (h *AuthHandler) ResendConfirmation(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.EmailRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	if err := h.accountService.ResendConfirmation(ctx, req.Email); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, dto.MessageResponse{Message: "Confirmation email sent! Please check your inbox."})
}

// AuthError explains a failed email link. With no error present it sends
// the browser home.
func (h *AuthHandler) AuthError(c echo.Context) error {
	info := service.ClassifyAuthError(c.QueryParam("error"), c.QueryParam("error_code"), c.QueryParam("error_description"))
	if info.Redirect != "" {
		return c.Redirect(http.StatusFound, info.Redirect)
	}
	return c.JSON(http.StatusOK, info)
}
