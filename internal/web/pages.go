// Package web serves the browser pages: chat, live call, settings and info.
// Pages are rendered on the server from the caller's session state; the
// script under /static talks to the JSON API for everything else.
package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"github.com/RichardoC/coding-agent/internal/call"
	"github.com/RichardoC/coding-agent/internal/catalog"
	"github.com/RichardoC/coding-agent/internal/session"
	"github.com/RichardoC/coding-agent/internal/uploads"
	"go.uber.org/zap"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

type Pages struct {
	sessions *session.Store
	markdown *Markdown
	pages    map[string]*template.Template
	archive  bool
	logger   *zap.Logger
}

// New parses the page templates. archive tells the chat page whether the
// history archive is available.
func New(sessions *session.Store, archive bool, logger *zap.Logger) (*Pages, error) {
	p := &Pages{
		sessions: sessions,
		markdown: NewMarkdown(),
		pages:    make(map[string]*template.Template),
		archive:  archive,
		logger:   logger,
	}

	funcs := template.FuncMap{
		"markdown":    p.renderMarkdown,
		"displayName": catalog.DisplayName,
		"clock":       func(t time.Time) string { return t.Local().Format("15:04") },
	}
	for _, name := range []string{"chat", "live-call", "settings", "info"} {
		t, err := template.New("layout.html").Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s template: %w", name, err)
		}
		p.pages[name] = t
	}
	return p, nil
}

func (p *Pages) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", p.Chat)
	mux.HandleFunc("GET /live-call", p.LiveCall)
	mux.HandleFunc("GET /settings", p.Settings)
	mux.HandleFunc("GET /info", p.Info)

	static, _ := fs.Sub(staticFS, "static")
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(static)))
}

type pageData struct {
	Title     string
	Active    string
	State     session.Snapshot
	Model     string
	Providers []catalog.Provider
	Provider  catalog.Provider

	// chat
	Archive  bool
	MaxFiles int
	Accept   string

	// live call
	MicError string

	// info
	Capabilities []Capability
}

func (p *Pages) data(w http.ResponseWriter, r *http.Request, title, active string) pageData {
	id := p.sessions.Resolve(w, r)
	state, err := p.sessions.Get(id)
	if err != nil {
		state = session.NewState()
	}
	provider, _ := catalog.Split(state.Model())
	info, _ := catalog.Lookup(provider)
	return pageData{
		Title:     title,
		Active:    active,
		State:     state.Snapshot(),
		Model:     state.Model(),
		Providers: catalog.Providers(),
		Provider:  info,
	}
}

func (p *Pages) Chat(w http.ResponseWriter, r *http.Request) {
	d := p.data(w, r, "Chat", "chat")
	d.Archive = p.archive
	d.MaxFiles = uploads.MaxFiles
	d.Accept = ".png,.jpg,.jpeg,.gif,.mp3,.wav,.ogg,image/*,audio/*"
	p.render(w, "chat", d)
}

func (p *Pages) LiveCall(w http.ResponseWriter, r *http.Request) {
	d := p.data(w, r, "Live Call", "live-call")
	d.MicError = call.MicrophoneErrorMessage
	p.render(w, "live-call", d)
}

func (p *Pages) Settings(w http.ResponseWriter, r *http.Request) {
	p.render(w, "settings", p.data(w, r, "Settings", "settings"))
}

func (p *Pages) Info(w http.ResponseWriter, r *http.Request) {
	d := p.data(w, r, "Usage & Information", "info")
	d.Capabilities = Capabilities
	p.render(w, "info", d)
}

func (p *Pages) render(w http.ResponseWriter, name string, d pageData) {
	var buf bytes.Buffer
	if err := p.pages[name].Execute(&buf, d); err != nil {
		p.logger.Error("Failed to render page", zap.Error(err), zap.String("page", name))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	buf.WriteTo(w)
}

func (p *Pages) renderMarkdown(src string) template.HTML {
	html, err := p.markdown.Render(src)
	if err != nil {
		p.logger.Warn("Failed to render markdown", zap.Error(err))
		return template.HTML(template.HTMLEscapeString(src))
	}
	return html
}
