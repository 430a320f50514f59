package api

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"rfqdash/pkg/audit"
	"rfqdash/pkg/auth"
	"rfqdash/pkg/dashboard"
	"rfqdash/pkg/metrics"
	"rfqdash/pkg/rfq"
	"rfqdash/pkg/session"
	"rfqdash/pkg/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var header = []string{"Division", "Client", "Affiliate", "Status", "Date"}

func fixture() store.Table {
	return store.Table{Header: header, Rows: [][]string{
		{"EU", "Acme", "North", "Awarded", "2025-01-10"},
		{"EU", "Acme", "South", "Declined", "2025-01-15"},
		{"US", "Globex", "East", "Submitted", "2025-02-01"},
	}}
}

func testAuth() *auth.Authenticator {
	return auth.New("admin-pw", map[string]string{"EU": "eu-pw", "US": "us-pw"})
}

type testEnv struct {
	srv    *httptest.Server
	client *http.Client
	store  *mockStore
}

func newTestEnv(t *testing.T, m *mockStore, a *auth.Authenticator, opts RouterOptions) *testEnv {
	t.Helper()
	auditLog, err := audit.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { auditLog.Close() })

	met := metrics.New()
	dash := dashboard.New(store.NewCached(m), rfq.DefaultColumns(), rfq.DefaultPolicy(), auditLog, met)
	h := NewHandler(dash, session.NewManager(false), a, met)

	srv := httptest.NewServer(GetRouter(h, opts))
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &testEnv{srv: srv, client: &http.Client{Jar: jar}, store: m}
}

func (e *testEnv) get(t *testing.T, path string) (*http.Response, string) {
	t.Helper()
	resp, err := e.client.Get(e.srv.URL + path)
	require.NoError(t, err)
	return resp, readBody(t, resp)
}

func (e *testEnv) postForm(t *testing.T, path string, form url.Values) (*http.Response, string) {
	t.Helper()
	resp, err := e.client.PostForm(e.srv.URL+path, form)
	require.NoError(t, err)
	return resp, readBody(t, resp)
}

func (e *testEnv) login(t *testing.T, password string) {
	t.Helper()
	resp, _ := e.postForm(t, "/login", url.Values{"password": {password}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func (e *testEnv) dashboard(t *testing.T) dashboard.View {
	t.Helper()
	resp, body := e.get(t, "/api/dashboard")
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	var v dashboard.View
	require.NoError(t, json.Unmarshal([]byte(body), &v))
	return v
}

func (e *testEnv) upload(t *testing.T, mode, fileName, content string) (*http.Response, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("mode", mode))
	fw, err := mw.CreateFormFile("file", fileName)
	require.NoError(t, err)
	_, err = io.WriteString(fw, content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	resp, err := e.client.Post(e.srv.URL+"/upload", mw.FormDataContentType(), &buf)
	require.NoError(t, err)
	return resp, readBody(t, resp)
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t, &mockStore{Table: fixture()}, testAuth(), RouterOptions{})
	resp, body := env.get(t, "/healthz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, body)
}

func TestIndexAsksForPassword(t *testing.T) {
	env := newTestEnv(t, &mockStore{Table: fixture()}, testAuth(), RouterOptions{})
	resp, body := env.get(t, "/")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `name="password"`)
	assert.NotContains(t, body, "Status breakdown")

	resp, _ = env.get(t, "/api/dashboard")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestLoginFailure(t *testing.T) {
	env := newTestEnv(t, &mockStore{Table: fixture()}, testAuth(), RouterOptions{})
	resp, body := env.postForm(t, "/login", url.Values{"password": {"nope"}})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, body, "Incorrect password.")
	assert.Contains(t, body, `name="password"`)
}

func TestLoginFailureKeepsExistingScope(t *testing.T) {
	env := newTestEnv(t, &mockStore{Table: fixture()}, testAuth(), RouterOptions{})
	env.login(t, "eu-pw")

	resp, body := env.postForm(t, "/login", url.Values{"password": {"wrong"}})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, body, "Incorrect password.")

	v := env.dashboard(t)
	assert.Equal(t, "division:EU", v.Scope)
}

func TestGlobalLogin(t *testing.T) {
	env := newTestEnv(t, &mockStore{Table: fixture()}, testAuth(), RouterOptions{})
	env.login(t, "admin-pw")

	_, body := env.get(t, "/")
	assert.Contains(t, body, "Status breakdown")
	assert.Contains(t, body, `action="/upload"`)

	v := env.dashboard(t)
	assert.False(t, v.Locked)
	assert.True(t, v.CanUpload)
	assert.Equal(t, []string{"EU", "US"}, v.DivisionOptions)
	assert.Equal(t, 3, v.RowCount)
}

func TestDivisionLogin(t *testing.T) {
	env := newTestEnv(t, &mockStore{Table: fixture()}, testAuth(), RouterOptions{})
	env.login(t, "us-pw")

	_, body := env.get(t, "/")
	assert.NotContains(t, body, `action="/upload"`)

	v := env.dashboard(t)
	assert.True(t, v.Locked)
	assert.False(t, v.CanUpload)
	assert.Equal(t, []string{"US"}, v.DivisionOptions)
	assert.Equal(t, 1, v.RowCount)
	assert.Equal(t, 1, v.Result.KPIs.Submitted)
}

func TestNoPasswordsMeansUnrestricted(t *testing.T) {
	env := newTestEnv(t, &mockStore{Table: fixture()}, auth.New("", nil), RouterOptions{})
	v := env.dashboard(t)
	assert.Equal(t, "unrestricted", v.Scope)
	assert.True(t, v.CanUpload)
}

func TestFilter(t *testing.T) {
	env := newTestEnv(t, &mockStore{Table: fixture()}, testAuth(), RouterOptions{})
	env.login(t, "admin-pw")

	resp, _ := env.postForm(t, "/filter", url.Values{"division": {"EU"}, "client": {"Acme"}, "affiliate": {"North"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	v := env.dashboard(t)
	assert.Equal(t, 1, v.RowCount)
	assert.Equal(t, []string{rfq.All, "North", "South"}, v.AffiliateChoices)
	assert.Equal(t, 1, v.Result.KPIs.Awarded)
	assert.Equal(t, 100.0, v.Result.KPIs.AwardedRatio)
}

func TestEmptyFilterResult(t *testing.T) {
	env := newTestEnv(t, &mockStore{Table: store.Table{Header: header}}, auth.New("", nil), RouterOptions{})
	resp, body := env.get(t, "/")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "No data for the current filters.")
}

func TestStoreUnavailable(t *testing.T) {
	m := &mockStore{FetchErr: store.ErrStoreUnavailable}
	env := newTestEnv(t, m, auth.New("", nil), RouterOptions{})

	resp, body := env.get(t, "/")
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Contains(t, body, "Could not reach the record store")

	resp, _ = env.get(t, "/api/dashboard")
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

func TestSchemaMismatch(t *testing.T) {
	m := &mockStore{Table: store.Table{Header: []string{"Division", "Status"}, Rows: [][]string{{"EU", "Awarded"}}}}
	env := newTestEnv(t, m, auth.New("", nil), RouterOptions{})

	resp, body := env.get(t, "/")
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, body, "expected columns")
}

func TestRefresh(t *testing.T) {
	m := &mockStore{Table: fixture()}
	env := newTestEnv(t, m, auth.New("", nil), RouterOptions{})
	assert.Equal(t, 3, env.dashboard(t).RowCount)

	m.Table.Rows = m.Table.Rows[:1]
	assert.Equal(t, 3, env.dashboard(t).RowCount)

	resp, body := env.postForm(t, "/refresh", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Data reloaded")
	assert.Equal(t, 1, env.dashboard(t).RowCount)
}

func TestUploadReplace(t *testing.T) {
	env := newTestEnv(t, &mockStore{Table: fixture()}, testAuth(), RouterOptions{})
	env.login(t, "admin-pw")

	csv := "Division,Client,Affiliate,Status,Date\nAPAC,Initech,West,Awarded,2025-03-01\n"
	resp, body := env.upload(t, "replace", "rfq.csv", csv)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Data replaced.")
	require.Len(t, env.store.Replaced, 1)

	v := env.dashboard(t)
	assert.Equal(t, []string{"APAC"}, v.DivisionOptions)

	resp, body = env.get(t, "/api/uploads")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got uploadsResponse
	require.NoError(t, json.Unmarshal([]byte(body), &got))
	require.Len(t, got.Uploads, 1)
	assert.Equal(t, "rfq.csv", got.Uploads[0].FileName)
	assert.Equal(t, 1, got.Uploads[0].Rows)
}

func TestUploadAppend(t *testing.T) {
	env := newTestEnv(t, &mockStore{Table: fixture()}, testAuth(), RouterOptions{})
	env.login(t, "admin-pw")

	csv := "Division,Client,Affiliate,Status,Date\nUS,Globex,West,Declined,2025-02-11\n"
	resp, body := env.upload(t, "append", "more.csv", csv)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Rows appended.")
	assert.Equal(t, 4, env.dashboard(t).RowCount)
}

func TestUploadRejected(t *testing.T) {
	tests := []struct {
		name     string
		password string
		mode     string
		file     string
		content  string
		status   int
		message  string
	}{
		{
			name:     "locked session",
			password: "eu-pw",
			mode:     "replace",
			file:     "rfq.csv",
			content:  "Division,Client,Affiliate,Status,Date\nEU,Acme,North,Awarded,2025-01-10\n",
			status:   http.StatusForbidden,
			message:  "Uploading is not available",
		},
		{
			name:     "missing column",
			password: "admin-pw",
			mode:     "replace",
			file:     "rfq.csv",
			content:  "Division,Status\nEU,Awarded\n",
			status:   http.StatusUnprocessableEntity,
			message:  "expected columns",
		},
		{
			name:     "append with other columns",
			password: "admin-pw",
			mode:     "append",
			file:     "rfq.csv",
			content:  "Division,Client,Affiliate,Status,Date,Value\nEU,Acme,North,Awarded,2025-01-10,5\n",
			status:   http.StatusUnprocessableEntity,
			message:  "expected columns",
		},
		{
			name:     "unsupported file",
			password: "admin-pw",
			mode:     "replace",
			file:     "rfq.txt",
			content:  "hello",
			status:   http.StatusUnprocessableEntity,
			message:  "unsupported file format",
		},
		{
			name:     "unknown mode",
			password: "admin-pw",
			mode:     "merge",
			file:     "rfq.csv",
			content:  "Division\nEU\n",
			status:   http.StatusBadRequest,
			message:  "unknown upload mode",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, &mockStore{Table: fixture()}, testAuth(), RouterOptions{})
			env.login(t, tt.password)

			resp, body := env.upload(t, tt.mode, tt.file, tt.content)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Contains(t, body, tt.message)
			assert.Empty(t, env.store.Replaced)
			assert.Empty(t, env.store.Appended)
		})
	}
}

func TestUploadsForbiddenForDivision(t *testing.T) {
	env := newTestEnv(t, &mockStore{Table: fixture()}, testAuth(), RouterOptions{})
	env.login(t, "eu-pw")
	resp, _ := env.get(t, "/api/uploads")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestExport(t *testing.T) {
	env := newTestEnv(t, &mockStore{Table: fixture()}, auth.New("", nil), RouterOptions{})
	resp, body := env.get(t, "/export.xlsx")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, xlsxType, resp.Header.Get("Content-Type"))
	assert.True(t, strings.HasPrefix(body, "PK"), "xlsx files are zip archives")
}

func TestLogout(t *testing.T) {
	env := newTestEnv(t, &mockStore{Table: fixture()}, testAuth(), RouterOptions{})
	env.login(t, "admin-pw")

	resp, body := env.postForm(t, "/logout", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `name="password"`)
}

func TestMetrics(t *testing.T) {
	env := newTestEnv(t, &mockStore{Table: fixture()}, testAuth(), RouterOptions{})
	env.login(t, "admin-pw")

	resp, body := env.get(t, "/metrics")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `rfqdash_logins_total{result="ok"} 1`)
	assert.Contains(t, body, "rfqdash_dashboard_renders_total")
}

func TestCSRFRejectsPostWithoutToken(t *testing.T) {
	env := newTestEnv(t, &mockStore{Table: fixture()}, testAuth(), RouterOptions{
		CSRFKey: "0123456789abcdef0123456789abcdef",
	})

	resp, body := env.get(t, "/")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `name="csrf_token"`)

	resp, _ = env.postForm(t, "/login", url.Values{"password": {"admin-pw"}})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}
