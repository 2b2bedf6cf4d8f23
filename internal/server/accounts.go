package server

import (
	"errors"
	"net/http"

	"github.com/rubiojr/fuelrescue/internal/account"
	"github.com/rubiojr/fuelrescue/internal/rescuedb"
)

type loginBody struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userResponse struct {
	User    *rescuedb.User `json:"user"`
	Message string         `json:"message,omitempty"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	tr := translations(r)

	var in account.RegisterInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid request", err)
		return
	}

	user, err := s.accounts.Register(r.Context(), in)
	var fieldErrs account.FieldErrors
	switch {
	case errors.As(err, &fieldErrs):
		s.writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: "Invalid registration", Fields: fieldErrs})
		return
	case errors.Is(err, account.ErrEmailTaken):
		s.writeError(w, http.StatusConflict, tr.EmailTaken, nil)
		return
	case err != nil:
		s.log.Error("Error registering user", "error", err)
		s.writeError(w, http.StatusInternalServerError, "Error registering user", err)
		return
	}

	s.writeJSON(w, http.StatusCreated, userResponse{User: user, Message: tr.Registered})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	tr := translations(r)

	var body loginBody
	if err := decodeJSON(w, r, &body); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid request", err)
		return
	}

	user, err := s.accounts.Login(r.Context(), body.Email, body.Password)
	if errors.Is(err, account.ErrInvalidCredentials) {
		s.writeError(w, http.StatusUnauthorized, tr.InvalidCredentials, nil)
		return
	}
	if err != nil {
		s.log.Error("Error logging in", "error", err)
		s.writeError(w, http.StatusInternalServerError, "Error logging in", err)
		return
	}

	s.writeJSON(w, http.StatusOK, userResponse{User: user})
}
