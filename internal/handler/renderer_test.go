package handler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTemplateFS() fstest.MapFS {
	return fstest.MapFS{
		"layouts/app.html":       {Data: []byte(`{{define "app"}}<main>{{template "content" .}}</main>{{end}}`)},
		"layouts/auth.html":      {Data: []byte(`{{define "auth"}}<section>{{template "content" .}}</section>{{end}}`)},
		"layouts/public.html":    {Data: []byte(`{{define "public"}}<body>{{template "content" .}}</body>{{end}}`)},
		"components/hello.html":  {Data: []byte(`{{define "hello"}}Hello {{.}}{{end}}`)},
		"partials/badge.html":    {Data: []byte(`{{define "badge"}}<span>{{template "hello" .}}</span>{{end}}`)},
		"pages/public/home.html": {Data: []byte(`{{define "content"}}home {{template "hello" .}}{{end}}`)},
		"pages/auth/login.html":  {Data: []byte(`{{define "content"}}login{{end}}`)},
		"pages/loads/show.html":  {Data: []byte(`{{define "content"}}load {{.}}{{end}}`)},
		"pages/broken/page.html": {Data: []byte(`{{define "content"}}{{.Missing.Field}}{{end}}`)},
	}
}

func renderString(t *testing.T, r *Renderer, name string, data any, partial bool) string {
	t.Helper()
	var buf bytes.Buffer
	c := r.Page(name, data)
	if partial {
		c = r.Partial(name, data)
	}
	require.NoError(t, c.Render(context.Background(), &buf))
	return buf.String()
}

func TestRenderer_PagesUseLayoutByDirectory(t *testing.T) {
	r, err := NewRendererFromFS(testTemplateFS(), testLogger(), false)
	require.NoError(t, err)

	assert.Equal(t, "<body>home Hello world</body>", renderString(t, r, "public/home", "world", false))
	assert.Equal(t, "<section>login</section>", renderString(t, r, "auth/login", nil, false))
	assert.Equal(t, "<main>load 42</main>", renderString(t, r, "loads/show", 42, false))
}

func TestRenderer_Partial(t *testing.T) {
	r, err := NewRendererFromFS(testTemplateFS(), testLogger(), false)
	require.NoError(t, err)

	assert.Equal(t, "<span>Hello there</span>", renderString(t, r, "badge", "there", true))
}

func TestRenderer_UnknownTemplate(t *testing.T) {
	r, err := NewRendererFromFS(testTemplateFS(), testLogger(), false)
	require.NoError(t, err)

	err = r.Page("nope/missing", nil).Render(context.Background(), &bytes.Buffer{})
	assert.ErrorContains(t, err, `template "nope/missing" not found`)
}

func TestRenderer_ListTemplates(t *testing.T) {
	r, err := NewRendererFromFS(testTemplateFS(), testLogger(), false)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"public/home", "auth/login", "loads/show", "broken/page", "partial/badge"}, r.ListTemplates())
}

func TestRenderer_ParseErrorIsReported(t *testing.T) {
	fsys := testTemplateFS()
	fsys["pages/bad.html"] = &fstest.MapFile{Data: []byte(`{{define "content"}}{{if}}{{end}}`)}

	_, err := NewRendererFromFS(fsys, testLogger(), false)
	assert.ErrorContains(t, err, "pages/bad.html")
}

func TestRender_ExecutionErrorIsClean500(t *testing.T) {
	r, err := NewRendererFromFS(testTemplateFS(), testLogger(), false)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	render(rec, httptest.NewRequest(http.MethodGet, "/broken", nil), testLogger(), http.StatusOK, r.Page("broken/page", 7))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "<main>")
}

func TestRender_WritesStatus(t *testing.T) {
	r, err := NewRendererFromFS(testTemplateFS(), testLogger(), false)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	render(rec, httptest.NewRequest(http.MethodGet, "/login", nil), testLogger(), http.StatusUnprocessableEntity, r.Page("auth/login", nil))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "<section>login</section>", rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
}

func TestEmbeddedTemplatesParse(t *testing.T) {
	r := testRenderer(t)

	for _, name := range []string{
		"public/home",
		"auth/register",
		"auth/login",
		"auth/success",
		"dashboard/load_owner",
		"dashboard/driver",
		"loads/new",
		"loads/show",
		"partial/role_fields",
	} {
		assert.Contains(t, r.ListTemplates(), name)
	}
}

func TestStatic_ServesFormScript(t *testing.T) {
	rec := httptest.NewRecorder()
	Static().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/static/js/forms.js", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "javascript")
	body := rec.Body.String()
	assert.Contains(t, body, "htmx:beforeRequest")
	assert.Contains(t, body, "dataset.busyLabel")
	assert.Contains(t, body, "dataset.clears")
}

func TestStatic_ServesStylesheet(t *testing.T) {
	rec := httptest.NewRecorder()
	Static().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/static/css/app.css", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/css")
	assert.Contains(t, rec.Body.String(), ".btn-primary")
}
