package handler

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path"
	"strings"
	"sync"

	"github.com/a-h/templ"
)

//go:embed templates
var embeddedTemplates embed.FS

// Renderer parses the page templates into isolated sets, one per page, and
// hands them out as templ components.
//
// Templates are organized as:
//   - layouts/public.html, layouts/auth.html, layouts/app.html - base layouts
//   - components/*.html - reusable components (shared across layouts)
//   - partials/*.html - fragments for htmx responses, each defining a
//     template named after its file
//   - pages/public/*.html - marketing pages (public layout)
//   - pages/auth/*.html - sign-in and registration (auth layout)
//   - pages/**/*.html - everything else (app layout)
type Renderer struct {
	templates map[string]*template.Template
	fsys      fs.FS
	logger    *slog.Logger
	isDev     bool
	mu        sync.RWMutex
}

// RendererConfig holds configuration for the renderer.
type RendererConfig struct {
	// TemplatesDir, when set in development, is read from disk on every
	// render so template edits show up without a rebuild.
	TemplatesDir string
	Logger       *slog.Logger
	IsDev        bool
}

// NewRenderer creates a renderer over the embedded templates, or over
// TemplatesDir in development.
func NewRenderer(cfg RendererConfig) (*Renderer, error) {
	var fsys fs.FS
	if cfg.IsDev && cfg.TemplatesDir != "" {
		fsys = os.DirFS(cfg.TemplatesDir)
	} else {
		sub, err := fs.Sub(embeddedTemplates, "templates")
		if err != nil {
			return nil, err
		}
		fsys = sub
	}
	return NewRendererFromFS(fsys, cfg.Logger, cfg.IsDev && cfg.TemplatesDir != "")
}

// NewRendererFromFS creates a renderer from a filesystem laid out like the
// templates directory.
func NewRendererFromFS(fsys fs.FS, logger *slog.Logger, reload bool) (*Renderer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Renderer{fsys: fsys, logger: logger, isDev: reload}
	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// Reload re-parses every template.
func (r *Renderer) Reload() error {
	set, err := parseTemplates(r.fsys)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.templates = set
	r.mu.Unlock()
	return nil
}

func parseTemplates(fsys fs.FS) (map[string]*template.Template, error) {
	shared := []string{"components/*.html", "partials/*.html"}
	set := make(map[string]*template.Template)

	partials, err := fs.Glob(fsys, "partials/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to glob partials: %w", err)
	}
	for _, p := range partials {
		name := strings.TrimSuffix(path.Base(p), ".html")
		t, err := template.New(name).Funcs(TemplateFuncs()).ParseFS(fsys, shared...)
		if err != nil {
			return nil, fmt.Errorf("failed to parse partial %s: %w", p, err)
		}
		set["partial/"+name] = t
	}

	err = fs.WalkDir(fsys, "pages", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(p, ".html") {
			return nil
		}
		name := strings.TrimSuffix(strings.TrimPrefix(p, "pages/"), ".html")
		layout := "layouts/" + layoutFor(name) + ".html"

		patterns := append([]string{layout}, shared...)
		patterns = append(patterns, p)
		t, err := template.New(name).Funcs(TemplateFuncs()).ParseFS(fsys, patterns...)
		if err != nil {
			return fmt.Errorf("failed to parse page %s: %w", p, err)
		}
		set[name] = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return set, nil
}

// layoutFor determines which base template a page executes.
func layoutFor(name string) string {
	switch {
	case strings.HasPrefix(name, "public/"):
		return "public"
	case strings.HasPrefix(name, "auth/"):
		return "auth"
	default:
		return "app"
	}
}

func (r *Renderer) lookup(name string) (*template.Template, error) {
	if r.isDev {
		if err := r.Reload(); err != nil {
			return nil, fmt.Errorf("template reload failed: %w", err)
		}
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.templates[name]
	if !ok {
		return nil, fmt.Errorf("template %q not found", name)
	}
	return t, nil
}

// Page returns a component rendering a full page inside its layout.
func (r *Renderer) Page(name string, data any) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		t, err := r.lookup(name)
		if err != nil {
			return err
		}
		return t.ExecuteTemplate(w, layoutFor(name), data)
	})
}

// Partial returns a component rendering a fragment for htmx swaps.
func (r *Renderer) Partial(name string, data any) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		t, err := r.lookup("partial/" + name)
		if err != nil {
			return err
		}
		return t.ExecuteTemplate(w, name, data)
	})
}

// ListTemplates returns a list of all loaded template names.
// Useful for debugging.
func (r *Renderer) ListTemplates() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.templates))
	for name := range r.templates {
		names = append(names, name)
	}
	return names
}

// TemplateRenderer is the interface for building page components.
// This interface allows for mocking in tests.
type TemplateRenderer interface {
	Page(name string, data any) templ.Component
	Partial(name string, data any) templ.Component
}

// render writes c with status. The component is rendered into a buffer
// first so a template error still produces a clean 500.
func render(w http.ResponseWriter, r *http.Request, logger *slog.Logger, status int, c templ.Component) {
	templ.Handler(c,
		templ.WithStatus(status),
		templ.WithErrorHandler(func(r *http.Request, err error) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				logger.Error("template execution failed", "path", r.URL.Path, "error", err)
				http.Error(w, "Template execution failed", http.StatusInternalServerError)
			})
		}),
	).ServeHTTP(w, r)
}

var _ TemplateRenderer = (*Renderer)(nil)
