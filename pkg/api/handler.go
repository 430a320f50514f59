package api

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"rfqdash/pkg/auth"
	"rfqdash/pkg/dashboard"
	"rfqdash/pkg/metrics"
	"rfqdash/pkg/rfq"
	"rfqdash/pkg/session"
	"rfqdash/pkg/store"
	"rfqdash/pkg/upload"

	"github.com/gorilla/csrf"
	log "github.com/sirupsen/logrus"
)

const (
	maxUploadBytes = 32 << 20
	xlsxType       = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

type Handler struct {
	dash     *dashboard.Service
	sessions *session.Manager
	auth     *auth.Authenticator
	metrics  *metrics.Metrics
}

func NewHandler(dash *dashboard.Service, sessions *session.Manager, a *auth.Authenticator, m *metrics.Metrics) *Handler {
	return &Handler{dash: dash, sessions: sessions, auth: a, metrics: m}
}

// session returns the caller's session and whether it may see data. With no
// passwords configured every session is unrestricted.
func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sess := h.sessions.Ensure(w, r)
	if sess.State().Authenticated {
		return sess, true
	}
	if !h.auth.Enabled() {
		sess.Login(rfq.Unrestricted())
		return sess, true
	}
	return sess, false
}

// statusFor maps pipeline errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrStoreUnavailable):
		return http.StatusBadGateway
	case errors.Is(err, rfq.ErrSchemaMismatch), errors.Is(err, upload.ErrUnsupportedFormat):
		return http.StatusUnprocessableEntity
	case errors.Is(err, dashboard.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, auth.ErrAuthFailure):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func userMessage(err error) string {
	switch {
	case errors.Is(err, store.ErrStoreUnavailable):
		return fmt.Sprintf("Could not reach the record store: %v", err)
	case errors.Is(err, rfq.ErrSchemaMismatch):
		return fmt.Sprintf("The data does not have the expected columns: %v", err)
	case errors.Is(err, dashboard.ErrForbidden):
		return "Uploading is not available for this login."
	case errors.Is(err, auth.ErrAuthFailure):
		return "Incorrect password."
	default:
		return err.Error()
	}
}

func (h *Handler) render(w http.ResponseWriter, status int, data *pageData) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, "index.html", data); err != nil {
		log.Errorf("failed to render page: %v", err)
		http.Error(w, "render error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

// renderDashboard runs the pipeline for sess and renders it, showing err (if
// any) above the dashboard.
func (h *Handler) renderDashboard(w http.ResponseWriter, r *http.Request, sess *session.Session, status int, pageErr error) {
	data := newPageData(csrf.TemplateField(r))
	if pageErr != nil {
		data.Error = userMessage(pageErr)
	}
	data.Notice = notices[r.URL.Query().Get("notice")]

	v, err := h.dash.Build(r.Context(), sess)
	if err != nil {
		log.Warnf("failed to build dashboard: %v", err)
		if pageErr == nil {
			data.Error = userMessage(err)
			status = statusFor(err)
		}
		h.render(w, status, data)
		return
	}
	h.render(w, status, data.withView(v))
}

func redirectHome(w http.ResponseWriter, r *http.Request, notice string) {
	target := "/"
	if notice != "" {
		target += "?notice=" + url.QueryEscape(notice)
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (h *Handler) getIndex(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		data := newPageData(csrf.TemplateField(r))
		data.LoginNeeded = true
		h.render(w, http.StatusOK, data)
		return
	}
	h.renderDashboard(w, r, sess, http.StatusOK, nil)
}

func (h *Handler) postLogin(w http.ResponseWriter, r *http.Request) {
	sess := h.sessions.Ensure(w, r)
	scope, err := h.auth.Authenticate(r.PostFormValue("password"))
	h.metrics.ObserveLogin(err)
	if err != nil {
		log.Infof("failed login for session %s", sess.ID)
		data := newPageData(csrf.TemplateField(r))
		data.LoginNeeded = !sess.State().Authenticated
		data.Error = userMessage(err)
		if data.LoginNeeded {
			h.render(w, http.StatusUnauthorized, data)
			return
		}
		h.renderDashboard(w, r, sess, http.StatusUnauthorized, err)
		return
	}
	sess.Login(scope)
	log.Infof("session %s logged in as %s", sess.ID, scope)
	redirectHome(w, r, "")
}

func (h *Handler) postLogout(w http.ResponseWriter, r *http.Request) {
	h.sessions.Destroy(w, r)
	redirectHome(w, r, "")
}

func (h *Handler) postFilter(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		redirectHome(w, r, "")
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	sess.SetSelection(rfq.Selection{
		Divisions: r.PostForm["division"],
		Client:    r.PostFormValue("client"),
		Affiliate: r.PostFormValue("affiliate"),
	})
	redirectHome(w, r, "")
}

func (h *Handler) postRefresh(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.session(w, r); !ok {
		redirectHome(w, r, "")
		return
	}
	h.dash.Refresh()
	redirectHome(w, r, "refreshed")
}

func (h *Handler) postUpload(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		redirectHome(w, r, "")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		h.renderDashboard(w, r, sess, http.StatusBadRequest, fmt.Errorf("could not read upload: %w", err))
		return
	}
	mode, err := dashboard.ParseMode(r.FormValue("mode"))
	if err != nil {
		h.renderDashboard(w, r, sess, http.StatusBadRequest, err)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		h.renderDashboard(w, r, sess, http.StatusBadRequest, errors.New("no file uploaded"))
		return
	}
	defer file.Close()

	table, err := upload.Parse(file, header.Filename)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, upload.ErrUnsupportedFormat) {
			status = http.StatusUnprocessableEntity
		}
		h.renderDashboard(w, r, sess, status, err)
		return
	}
	if _, err := h.dash.Upload(r.Context(), sess, mode, header.Filename, table); err != nil {
		log.Warnf("upload of %s rejected: %v", header.Filename, err)
		h.renderDashboard(w, r, sess, statusFor(err), err)
		return
	}
	redirectHome(w, r, string(mode))
}

func (h *Handler) getExport(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		http.Error(w, "login required", http.StatusUnauthorized)
		return
	}
	b, err := h.dash.Export(r.Context(), sess)
	if err != nil {
		http.Error(w, userMessage(err), statusFor(err))
		return
	}
	w.Header().Set("Content-Type", xlsxType)
	w.Header().Set("Content-Disposition", `attachment; filename="rfq-export.xlsx"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(b)))
	_, _ = w.Write(b)
}

func (h *Handler) getDashboard(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		sendError(w, http.StatusUnauthorized, auth.ErrAuthFailure)
		return
	}
	v, err := h.dash.Build(r.Context(), sess)
	if err != nil {
		sendError(w, statusFor(err), err)
		return
	}
	sendJSON(w, http.StatusOK, v)
}

func (h *Handler) getUploads(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		sendError(w, http.StatusUnauthorized, auth.ErrAuthFailure)
		return
	}
	limit := 20
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			sendError(w, http.StatusBadRequest, fmt.Errorf("bad limit %q", s))
			return
		}
		limit = n
	}
	entries, err := h.dash.Uploads(r.Context(), sess, limit)
	if err != nil {
		sendError(w, statusFor(err), err)
		return
	}
	sendJSON(w, http.StatusOK, uploadsResponse{Uploads: entries})
}

func (h *Handler) getHealth(w http.ResponseWriter, r *http.Request) {
	sendResponse(w, http.StatusOK, []byte(`{"status":"ok"}`))
}

func (h *Handler) getMetrics(w http.ResponseWriter, r *http.Request) {
	if h.metrics == nil {
		http.NotFound(w, r)
		return
	}
	h.metrics.Handler().ServeHTTP(w, r)
}
