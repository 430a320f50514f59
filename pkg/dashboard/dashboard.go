package dashboard

import (
	"context"
	"errors"
	"fmt"

	"rfqdash/pkg/audit"
	"rfqdash/pkg/export"
	"rfqdash/pkg/metrics"
	"rfqdash/pkg/rfq"
	"rfqdash/pkg/session"
	"rfqdash/pkg/store"
	"rfqdash/pkg/upload"

	log "github.com/sirupsen/logrus"
)

// ErrForbidden is returned when a division-locked session tries a write.
var ErrForbidden = errors.New("not allowed for this session")

type Mode string

const (
	ModeReplace Mode = "replace"
	ModeAppend  Mode = "append"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeReplace, ModeAppend:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unknown upload mode %q", s)
}

// View is everything one render pass shows.
type View struct {
	Scope            string        `json:"scope"`
	Locked           bool          `json:"locked"`
	DivisionOptions  []string      `json:"division_options"`
	ClientChoices    []string      `json:"client_choices"`
	AffiliateChoices []string      `json:"affiliate_choices"`
	Selection        rfq.Selection `json:"selection"`
	Header           []string      `json:"header"`
	Rows             [][]string    `json:"rows"`
	RowCount         int           `json:"row_count"`
	Result           rfq.Result    `json:"result"`
	CanUpload        bool          `json:"can_upload"`
	LastModified     string        `json:"last_modified,omitempty"`
}

// Service runs the fetch, normalize, filter and aggregate pipeline.
type Service struct {
	store   *store.Cached
	columns rfq.Columns
	policy  rfq.Policy
	audit   *audit.Log
	metrics *metrics.Metrics
}

func New(s *store.Cached, columns rfq.Columns, policy rfq.Policy, auditLog *audit.Log, m *metrics.Metrics) *Service {
	return &Service{store: s, columns: columns, policy: policy, audit: auditLog, metrics: m}
}

func (s *Service) dataset(ctx context.Context) (rfq.Dataset, error) {
	t, err := s.store.FetchAll(ctx)
	s.metrics.ObserveFetch(err)
	if err != nil {
		return rfq.Dataset{}, err
	}
	return rfq.Normalize(t, s.columns)
}

func (s *Service) resolve(ctx context.Context, sess *session.Session) (rfq.Dataset, rfq.Resolution, session.State, error) {
	ds, err := s.dataset(ctx)
	if err != nil {
		return rfq.Dataset{}, rfq.Resolution{}, session.State{}, err
	}
	st := sess.State()
	res, sel := rfq.ResolveSelection(ds, st.Scope, st.Selection, s.policy)
	sess.SetSelection(sel)
	st.Selection = sel
	return ds, res, st, nil
}

// Build recomputes the whole view from the cached dataset and the session.
// Choices that no longer exist are reset in the session.
func (s *Service) Build(ctx context.Context, sess *session.Session) (View, error) {
	ds, res, st, err := s.resolve(ctx, sess)
	if err != nil {
		return View{}, err
	}
	s.metrics.ObserveRender()

	_, locked := st.Scope.Locked()
	v := View{
		Scope:            st.Scope.String(),
		Locked:           locked,
		DivisionOptions:  res.DivisionOptions,
		ClientChoices:    res.ClientChoices(),
		AffiliateChoices: res.AffiliateChoices(),
		Selection:        st.Selection,
		Header:           ds.Header,
		Rows:             make([][]string, 0, len(res.Filtered)),
		RowCount:         len(res.Filtered),
		Result:           rfq.Aggregate(res.Filtered, s.policy),
		CanUpload:        !locked,
	}
	for _, r := range res.Filtered {
		v.Rows = append(v.Rows, r.Values)
	}
	if label, ok := s.store.LastModifiedLabel(ctx); ok {
		v.LastModified = label
	}
	log.WithFields(log.Fields{
		"session": sess.ID,
		"scope":   v.Scope,
		"rows":    v.RowCount,
	}).Debug("dashboard rendered")
	return v, nil
}

// Refresh drops the cached dataset so the next Build refetches it.
func (s *Service) Refresh() {
	s.store.Invalidate()
}

// Export renders the session's current filtered rows as an xlsx workbook.
func (s *Service) Export(ctx context.Context, sess *session.Session) ([]byte, error) {
	ds, res, _, err := s.resolve(ctx, sess)
	if err != nil {
		return nil, err
	}
	return export.Workbook(ds.Header, res.Filtered, rfq.Aggregate(res.Filtered, s.policy))
}

// Upload replaces or appends the store contents with t. Only unrestricted
// sessions may write.
func (s *Service) Upload(ctx context.Context, sess *session.Session, mode Mode, fileName string, t store.Table) (audit.Entry, error) {
	st := sess.State()
	if _, locked := st.Scope.Locked(); locked || !st.Authenticated {
		return audit.Entry{}, ErrForbidden
	}
	if _, err := rfq.Normalize(t, s.columns); err != nil {
		return audit.Entry{}, err
	}

	switch mode {
	case ModeReplace:
		if err := s.store.ReplaceAll(ctx, t); err != nil {
			return audit.Entry{}, err
		}
	case ModeAppend:
		current, err := s.store.FetchAll(ctx)
		if err != nil {
			return audit.Entry{}, err
		}
		if !current.Empty() && !upload.SameHeader(current.Header, t.Header) {
			return audit.Entry{}, fmt.Errorf("%w: uploaded columns %v do not match %v", rfq.ErrSchemaMismatch, t.Header, current.Header)
		}
		if err := s.store.AppendRows(ctx, t.Rows); err != nil {
			return audit.Entry{}, err
		}
	default:
		return audit.Entry{}, fmt.Errorf("unknown upload mode %q", mode)
	}
	s.metrics.ObserveUpload(string(mode))

	entry, err := s.audit.Record(ctx, audit.Entry{
		Mode:     string(mode),
		FileName: fileName,
		Rows:     len(t.Rows),
		Actor:    st.Scope.String(),
	})
	if err != nil {
		// The store write stands either way.
		log.Errorf("failed to record upload: %v", err)
	}
	log.WithFields(log.Fields{"mode": mode, "rows": len(t.Rows), "file": fileName}).Info("upload applied")
	return entry, nil
}

// Uploads lists recent writes for unrestricted sessions.
func (s *Service) Uploads(ctx context.Context, sess *session.Session, limit int) ([]audit.Entry, error) {
	st := sess.State()
	if _, locked := st.Scope.Locked(); locked || !st.Authenticated {
		return nil, ErrForbidden
	}
	return s.audit.Recent(ctx, limit)
}
