package web

import (
	"context"
	"net/http"

	"github.com/hpungsan/roadmap/internal/errors"
	"github.com/hpungsan/roadmap/internal/logger"
	"github.com/hpungsan/roadmap/internal/profile"
	"github.com/hpungsan/roadmap/internal/roadmap"
	"github.com/hpungsan/roadmap/internal/session"
)

// Handlers contains HTTP route handlers for the web UI.
type Handlers struct {
	service  *roadmap.Service
	store    session.Store
	locker   *session.Locker
	cookies  *sessionCookies
	renderer *Renderer
	log      *logger.Logger
}

// sessionResponse is the JSON shape of a session snapshot.
type sessionResponse struct {
	Stage   session.Stage `json:"stage"`
	Roadmap *string       `json:"roadmap"`
	Editing bool          `json:"editing"`
	Final   bool          `json:"final"`
}

func newSessionResponse(st *session.State) sessionResponse {
	return sessionResponse{Stage: st.Stage(), Roadmap: st.Roadmap, Editing: st.Editing, Final: st.Final}
}

// update loads the caller's session, runs fn while holding the session lock,
// and saves the state if fn succeeds.
func (h *Handlers) update(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, st *session.State) error) (*session.State, error) {
	id, err := h.cookies.id(w, r)
	if err != nil {
		return nil, err
	}
	unlock := h.locker.Lock(id)
	defer unlock()

	ctx := r.Context()
	st, err := h.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(ctx, st); err != nil {
		return st, err
	}
	if err := h.store.Save(ctx, id, st); err != nil {
		return nil, err
	}
	return st, nil
}

// load returns the caller's current session state.
func (h *Handlers) load(w http.ResponseWriter, r *http.Request) (*session.State, error) {
	id, err := h.cookies.id(w, r)
	if err != nil {
		return nil, err
	}
	unlock := h.locker.Lock(id)
	defer unlock()
	return h.store.Load(r.Context(), id)
}

// HandleStudent handles GET /student: the profile form, or the roadmap once one exists.
func (h *Handlers) HandleStudent(w http.ResponseWriter, r *http.Request) {
	st, err := h.load(w, r)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	h.renderStudent(w, r, http.StatusOK, st, false, profile.Default(), "")
}

// HandleGenerate handles POST /student/generate: Generate Roadmap.
func (h *Handlers) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("invalid form data"))
		return
	}

	p, err := profile.FromForm(r.PostForm)
	if err != nil {
		st, loadErr := h.load(w, r)
		if loadErr != nil {
			h.renderer.renderError(w, r, loadErr)
			return
		}
		if stage := st.Stage(); stage != session.StageNoRoadmap {
			h.renderer.renderError(w, r, errors.NewInvalidTransition("generate", stage.Label()))
			return
		}
		if wantsJSON(r) {
			h.renderer.renderError(w, r, err)
			return
		}
		// Re-show the form with what was submitted
		h.renderStudent(w, r, http.StatusBadRequest, st, false, p, errors.As(err).Message)
		return
	}

	st, err := h.update(w, r, func(ctx context.Context, st *session.State) error {
		_, err := h.service.Generate(ctx, st, p)
		return err
	})
	if err != nil {
		if errors.Is(err, errors.ErrCompletionFailed) && !wantsJSON(r) && st != nil {
			h.log.Warn("roadmap generation failed", "error", errors.As(err).Unwrap())
			h.renderStudent(w, r, http.StatusBadGateway, st, false, p, roadmap.MsgGenerateError)
			return
		}
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, newSessionResponse(st))
		return
	}
	h.renderStudent(w, r, http.StatusOK, st, true, p, "")
}

func (h *Handlers) renderStudent(w http.ResponseWriter, r *http.Request, status int, st *session.State, justGenerated bool, p profile.PreparationProfile, errMsg string) {
	view := roadmap.NewStudentView(st, justGenerated)
	h.renderer.renderPageStatus(w, r, status, "student", StudentPageData{
		PageData:    h.renderer.page("Student", "student"),
		View:        view,
		Profile:     p,
		RoadmapHTML: renderMarkdown(view.Roadmap),
		Error:       errMsg,
	})
}

// HandleReviewer handles GET /reviewer: the Parent/Teacher page.
func (h *Handlers) HandleReviewer(w http.ResponseWriter, r *http.Request) {
	st, err := h.load(w, r)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	h.renderReviewer(w, r, http.StatusOK, st, ReviewerPageData{})
}

// HandleMakeChanges handles POST /reviewer/edit: Make changes.
func (h *Handlers) HandleMakeChanges(w http.ResponseWriter, r *http.Request) {
	st, err := h.update(w, r, func(_ context.Context, st *session.State) error {
		return h.service.MakeChanges(st)
	})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	h.reviewerDone(w, r, st, ReviewerPageData{})
}

// HandleRegenerate handles POST /reviewer/regenerate: Regenerate with feedback.
func (h *Handlers) HandleRegenerate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("invalid form data"))
		return
	}
	feedback := r.PostFormValue("feedback")

	st, err := h.update(w, r, func(ctx context.Context, st *session.State) error {
		_, err := h.service.Regenerate(ctx, st, feedback)
		return err
	})
	if err != nil {
		// Keep the reviewer on the page with their feedback intact
		if st != nil && !wantsJSON(r) && (errors.Is(err, errors.ErrCompletionFailed) || errors.Is(err, errors.ErrInvalidRequest)) {
			rErr := errors.As(err)
			if cause := rErr.Unwrap(); cause != nil {
				h.log.Warn("roadmap regeneration failed", "error", cause)
			}
			h.renderReviewer(w, r, rErr.Status, st, ReviewerPageData{Feedback: feedback, Error: rErr.Message})
			return
		}
		h.renderer.renderError(w, r, err)
		return
	}
	h.reviewerDone(w, r, st, ReviewerPageData{Success: roadmap.MsgRegenerated})
}

// HandleFinalize handles POST /reviewer/finalize: Finalize.
func (h *Handlers) HandleFinalize(w http.ResponseWriter, r *http.Request) {
	st, err := h.update(w, r, func(_ context.Context, st *session.State) error {
		return h.service.Finalize(st)
	})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	h.reviewerDone(w, r, st, ReviewerPageData{})
}

// reviewerDone answers a successful reviewer action.
func (h *Handlers) reviewerDone(w http.ResponseWriter, r *http.Request, st *session.State, data ReviewerPageData) {
	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, newSessionResponse(st))
		return
	}
	h.renderReviewer(w, r, http.StatusOK, st, data)
}

func (h *Handlers) renderReviewer(w http.ResponseWriter, r *http.Request, status int, st *session.State, data ReviewerPageData) {
	data.PageData = h.renderer.page("Parent/Teacher", "reviewer")
	data.View = roadmap.NewReviewerView(st)
	data.RoadmapHTML = renderMarkdown(data.View.Roadmap)
	h.renderer.renderPageStatus(w, r, status, "reviewer", data)
}

// HandleSession handles GET /session: a JSON snapshot of the caller's state.
func (h *Handlers) HandleSession(w http.ResponseWriter, r *http.Request) {
	st, err := h.load(w, r)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	renderJSON(w, http.StatusOK, newSessionResponse(st))
}

// HandleReset handles POST /session/reset: forget the session and start over.
func (h *Handlers) HandleReset(w http.ResponseWriter, r *http.Request) {
	oldID, ok := h.cookies.current(r)
	if ok {
		unlock := h.locker.Lock(oldID)
		err := h.store.Delete(r.Context(), oldID)
		unlock()
		if err != nil {
			h.renderer.renderError(w, r, err)
			return
		}
	}
	if _, err := h.cookies.reset(w, r); err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	h.log.Info("session reset", "session_id", oldID)

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, newSessionResponse(&session.State{}))
		return
	}
	http.Redirect(w, r, "/student", http.StatusSeeOther)
}

// HandleHealth handles GET /healthz.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	renderJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"variant": h.service.Variant().String(),
	})
}
