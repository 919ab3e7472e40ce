package http

import (
	"errors"
	"net/http"

	"flagguess/internal/app"
	"flagguess/internal/domain"
	"github.com/julienschmidt/httprouter"
)

type loginPage struct {
	Username string
	Error    string
	Message  string
}

type registerPage struct {
	Username string
	Error    string
	Success  string
}

type gamePage struct {
	Username string
	Round    domain.Round
	Answered bool
	Correct  bool
	Revealed string
}

type leaderboardPage struct {
	Username string
	Board    domain.Leaderboard
}

type errorPage struct {
	Title   string
	Message string
}

func (h *Handler) loginPage(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	h.render(w, http.StatusOK, "login", loginPage{})
}

func (h *Handler) registerPage(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	h.render(w, http.StatusOK, "register", registerPage{})
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if err := r.ParseForm(); err != nil {
		h.render(w, http.StatusBadRequest, "register", registerPage{Error: "Invalid form submission."})
		return
	}
	form := app.Registration{
		Username:        r.PostFormValue("username"),
		Password:        r.PostFormValue("password"),
		ConfirmPassword: r.PostFormValue("confirmPassword"),
	}

	_, err := h.auth.Register(r.Context(), form)
	var verr *domain.ValidationError
	switch {
	case err == nil:
		h.render(w, http.StatusOK, "register", registerPage{Success: "Registration successful! You can now log in."})
	case errors.As(err, &verr):
		h.render(w, http.StatusUnprocessableEntity, "register", registerPage{Username: form.Username, Error: verr.Message})
	case errors.Is(err, domain.ErrUsernameTaken):
		h.render(w, http.StatusConflict, "register", registerPage{Username: form.Username, Error: "That username is already taken."})
	default:
		h.log.WithError(err).Error("registration failed")
		h.render(w, http.StatusInternalServerError, "register", registerPage{
			Username: form.Username,
			Error:    "Registration failed. Please try again.",
		})
	}
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if err := r.ParseForm(); err != nil {
		h.render(w, http.StatusBadRequest, "login", loginPage{Error: "Invalid form submission."})
		return
	}
	username := r.PostFormValue("username")

	user, err := h.auth.Login(r.Context(), username, r.PostFormValue("password"))
	if errors.Is(err, domain.ErrInvalidCredentials) {
		h.render(w, http.StatusUnauthorized, "login", loginPage{Username: username, Error: "Invalid username or password."})
		return
	}
	if err != nil {
		h.log.WithError(err).Error("login failed")
		h.render(w, http.StatusInternalServerError, "login", loginPage{Username: username, Error: "Login failed. Please try again."})
		return
	}

	// A fresh id on every login; any previous session is dropped.
	if err := h.sessions.Close(r.Context(), h.sessionID(r)); err != nil {
		h.log.WithError(err).Warn("closing previous session failed")
	}
	session, err := h.sessions.Open(r.Context(), user)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.setSessionCookie(w, session.ID)
	h.log.WithField("user", user.Username).Info("user logged in")

	h.playFresh(w, r, session)
}

func (h *Handler) startGame(w http.ResponseWriter, r *http.Request, _ httprouter.Params, session domain.Session) {
	h.playFresh(w, r, session)
}

func (h *Handler) playFresh(w http.ResponseWriter, r *http.Request, session domain.Session) {
	round, err := h.game.Start(r.Context(), session.ID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.render(w, http.StatusOK, "game", gamePage{Username: session.Username, Round: round})
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request, _ httprouter.Params, session domain.Session) {
	if err := r.ParseForm(); err != nil {
		http.Redirect(w, r, "/flagguess", http.StatusSeeOther)
		return
	}
	result, err := h.game.Submit(r.Context(), session.ID, r.PostFormValue("answer"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if h.metrics != nil {
		h.metrics.ObserveAnswer(result.Correct)
	}
	h.render(w, http.StatusOK, "game", gamePage{
		Username: session.Username,
		Round:    result.Round,
		Answered: true,
		Correct:  result.Correct,
		Revealed: result.Revealed,
	})
}

func (h *Handler) leaderboardPage(w http.ResponseWriter, r *http.Request, _ httprouter.Params, session domain.Session) {
	board, err := h.leaderboard.Top(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.render(w, http.StatusOK, "leaderboard", leaderboardPage{Username: session.Username, Board: board})
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if err := h.sessions.Close(r.Context(), h.sessionID(r)); err != nil {
		h.log.WithError(err).Warn("closing session failed")
	}
	h.clearSessionCookie(w)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
