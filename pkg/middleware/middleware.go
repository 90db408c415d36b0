// Package middleware wires the widget runtime into net/http: every request
// gets its own request.State, registered resource files are served under the
// registry prefix and the resources collected while preparing widgets are
// injected into HTML responses.
package middleware

import (
	"bytes"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/goliatone/go-formwidget/pkg/request"
	"github.com/goliatone/go-formwidget/pkg/resources"
	"github.com/goliatone/go-formwidget/pkg/validation"
)

// Option configures the middleware.
type Option func(*Middleware)

// WithRegistry serves and resolves resources through reg.
func WithRegistry(reg *resources.Registry) Option {
	return func(m *Middleware) {
		if reg != nil {
			m.registry = reg
		}
	}
}

// WithResourcePrefix builds a fresh registry serving under prefix. It has no
// effect when combined with WithRegistry.
func WithResourcePrefix(prefix string) Option {
	return func(m *Middleware) {
		m.prefix = prefix
	}
}

// WithInjection toggles resource injection into HTML responses. It is on by
// default.
func WithInjection(enabled bool) Option {
	return func(m *Middleware) {
		m.inject = enabled
	}
}

// WithLogger reports injection failures. Nothing is logged by default.
func WithLogger(logger *log.Logger) Option {
	return func(m *Middleware) {
		m.logger = logger
	}
}

// WithMessages installs the validation message overrides for every request.
func WithMessages(msgs *validation.Messages) Option {
	return func(m *Middleware) {
		m.messages = msgs
	}
}

// Middleware attaches request state and serves widget resources.
type Middleware struct {
	registry *resources.Registry
	prefix   string
	inject   bool
	logger   *log.Logger
	messages *validation.Messages
}

// New constructs the middleware.
func New(opts ...Option) *Middleware {
	m := &Middleware{inject: true}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	if m.registry == nil {
		var regOpts []resources.Option
		if m.prefix != "" {
			regOpts = append(regOpts, resources.WithPrefix(m.prefix))
		}
		m.registry = resources.NewRegistry(regOpts...)
	}
	return m
}

// Registry returns the resource registry.
func (m *Middleware) Registry() *resources.Registry {
	return m.registry
}

// Handler wraps next.
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, m.registry.Prefix()+"/") {
			m.registry.ServeHTTP(w, r)
			return
		}

		st := request.NewState(request.WithMessages(m.messages))
		r = r.WithContext(request.NewContext(r.Context(), st))
		if !m.inject {
			next.ServeHTTP(w, r)
			return
		}

		buf := &bufferedWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(buf, r)
		m.flush(w, r, buf, st)
	})
}

func (m *Middleware) flush(w http.ResponseWriter, r *http.Request, buf *bufferedWriter, st *request.State) {
	body := buf.body.Bytes()
	res := st.Resources()
	if len(res) > 0 && isHTML(w.Header().Get("Content-Type"), body) {
		page, err := resources.Inject(string(body), res, m.registry)
		switch {
		case err != nil:
			m.logf("formwidget: %s %s: inject resources: %v", r.Method, r.URL.Path, err)
		default:
			body = []byte(page)
		}
	}
	if w.Header().Get("Content-Length") != "" {
		w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	}
	w.WriteHeader(buf.status)
	if _, err := w.Write(body); err != nil {
		m.logf("formwidget: %s %s: write response: %v", r.Method, r.URL.Path, err)
	}
}

func (m *Middleware) logf(format string, args ...any) {
	if m.logger != nil {
		m.logger.Printf(format, args...)
	}
}

func isHTML(contentType string, body []byte) bool {
	if contentType == "" {
		contentType = http.DetectContentType(body)
	}
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(contentType)), "text/html")
}

// bufferedWriter holds the response until resources can be injected.
type bufferedWriter struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (b *bufferedWriter) WriteHeader(status int) {
	b.status = status
}

func (b *bufferedWriter) Write(p []byte) (int, error) {
	return b.body.Write(p)
}
