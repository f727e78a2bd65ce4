package web

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/m-mizutani/goerr/v2"
	"github.com/zalepa/crimedash/dashboard"
	"github.com/zalepa/crimedash/filter"
	"github.com/zalepa/crimedash/incident"
	"github.com/zalepa/crimedash/store"
)

func handleRoot(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/login", http.StatusFound)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	renderPage(w, r, "login.html", nil)
}

func (s *Server) handleAdminPage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	views, err := store.IncrementViews(ctx, s.kv, clientID(ctx))
	if err != nil {
		writeError(w, r, err)
		return
	}
	renderPage(w, r, "admin.html", pageData{View: dashboard.Admin, Views: views})
}

func (s *Server) handleUserPage(w http.ResponseWriter, r *http.Request) {
	renderPage(w, r, "user.html", pageData{View: dashboard.User})
}

// handleLogout clears everything persisted for the client and sends it
// back to the login view.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := clientID(ctx)
	if err := s.kv.Clear(ctx, id); err != nil {
		writeError(w, r, err)
		return
	}
	s.dropSession(id)

	http.SetCookie(w, &http.Cookie{
		Name:     ClientCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// controller resolves the {view} URL parameter to the client's dashboard.
func (s *Server) controller(r *http.Request) (*dashboard.Controller, error) {
	view := dashboard.View(chi.URLParam(r, "view"))
	if !view.Valid() {
		return nil, goerr.New("unknown view", goerr.V("view", view), goerr.T(errTagNotFound))
	}
	return s.viewController(r, view)
}

func (s *Server) viewController(r *http.Request, view dashboard.View) (*dashboard.Controller, error) {
	sess, err := s.session(r.Context(), clientID(r.Context()))
	if err != nil {
		return nil, err
	}
	return sess.controller(view), nil
}

func (s *Server) handleOptions(w http.ResponseWriter, r *http.Request) {
	c, err := s.controller(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := make(map[incident.Dimension][]string, len(incident.FilterDimensions))
	for _, d := range incident.FilterDimensions {
		opts, err := c.Options(d)
		if err != nil {
			writeError(w, r, err)
			return
		}
		resp[d] = opts
	}
	writeJSON(w, r, http.StatusOK, resp)
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	c, err := s.controller(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, c.Snapshot())
}

type toggleRequest struct {
	Dimension incident.Dimension `json:"dimension"`
	Value     string             `json:"value"`
}

type toggleResponse struct {
	Selected bool               `json:"selected"`
	Snapshot dashboard.Snapshot `json:"snapshot"`
}

func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	var req toggleRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	c, err := s.viewController(r, dashboard.Admin)
	if err != nil {
		writeError(w, r, err)
		return
	}

	selected, err := c.Toggle(r.Context(), req.Dimension, req.Value)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, toggleResponse{Selected: selected, Snapshot: c.Snapshot()})
}

// handleFilters applies the user view's three dropdowns as one event. The
// body maps dimension names to the chosen value; "" or a missing key means
// no constraint.
func (s *Server) handleFilters(w http.ResponseWriter, r *http.Request) {
	var req map[incident.Dimension]string
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	c, err := s.viewController(r, dashboard.User)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := c.SetFilters(r.Context(), req); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, c.Snapshot())
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	c, err := s.controller(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	slot, ok := strings.CutSuffix(chi.URLParam(r, "file"), ".svg")
	if !ok {
		writeError(w, r, goerr.New("charts are served as svg", goerr.V("file", chi.URLParam(r, "file")), goerr.T(errTagNotFound)))
		return
	}
	inst, ok := c.Chart(slot)
	if !ok {
		writeError(w, r, goerr.New("no chart in slot", goerr.V("slot", slot), goerr.T(errTagNotFound)))
		return
	}
	body := inst.Bytes()
	if body == nil {
		writeError(w, r, goerr.New("chart was replaced", goerr.V("slot", slot), goerr.T(errTagNotFound)))
		return
	}

	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(body)
}

type notesBody struct {
	Notes string `json:"notes"`
}

func (s *Server) handleGetNotes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	notes, err := store.Notes(ctx, s.kv, clientID(ctx))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, notesBody{Notes: notes})
}

func (s *Server) handlePutNotes(w http.ResponseWriter, r *http.Request) {
	var req notesBody
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	ctx := r.Context()
	if err := store.SaveNotes(ctx, s.kv, clientID(ctx), req.Notes); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

const maxBodyBytes = 64 << 10

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return goerr.Wrap(err, "invalid request body", goerr.T(filter.ErrTagInvalidInput))
	}
	return nil
}
