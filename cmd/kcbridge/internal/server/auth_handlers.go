package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/terraconstructs/kcbridge/cmd/kcbridge/internal/respond"
	"github.com/terraconstructs/kcbridge/cmd/kcbridge/internal/services/login"
)

// maxLoginBody caps the credentials document.
const maxLoginBody = 64 << 10

// LoginService authenticates admin credentials.
type LoginService interface {
	Login(ctx context.Context, creds login.Credentials) (*login.Result, error)
}

// loginRedirectPath is where the disabled local password flows send browsers.
const loginRedirectPath = "/admin/login"

var disabledPasswordFlows = []string{
	"/admin/auth/reset-password",
	"/admin/auth/forgot-password",
	"/admin/auth/register",
}

type loginResponse struct {
	Data *login.Result `json:"data"`
}

// HandleLogin handles POST /admin/login.
// A malformed body is treated as missing credentials.
func HandleLogin(svc LoginService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var creds login.Credentials
		_ = json.NewDecoder(http.MaxBytesReader(w, r.Body, maxLoginBody)).Decode(&creds)

		result, err := svc.Login(r.Context(), creds)
		if err != nil {
			status := http.StatusBadRequest
			if errors.Is(err, login.ErrInternal) {
				status = http.StatusInternalServerError
			}
			respond.Error(w, status, login.PublicMessage(err))
			return
		}

		respond.JSON(w, http.StatusOK, loginResponse{Data: result})
	}
}

// HandleLoginRedirect sends local password-management pages back to the login screen.
func HandleLoginRedirect(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, loginRedirectPath, http.StatusFound)
}
