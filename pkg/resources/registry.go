package resources

import (
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"path"
	"sort"
	"strings"
	"sync"
)

// DefaultPrefix is the URL prefix registered files are served under.
const DefaultPrefix = "/resources"

// ErrUnknownModule is returned when a file is registered for a module that has
// no mounted filesystem.
var ErrUnknownModule = errors.New("resources: module is not mounted")

// Option configures a Registry.
type Option func(*Registry)

// WithPrefix overrides the URL prefix.
func WithPrefix(prefix string) Option {
	return func(r *Registry) {
		prefix = "/" + strings.Trim(strings.TrimSpace(prefix), "/")
		if prefix != "/" {
			r.prefix = prefix
		}
	}
}

// WithModule mounts fsys as the file source of module.
func WithModule(module string, fsys fs.FS) Option {
	return func(r *Registry) {
		r.mount(module, fsys)
	}
}

// Registry maps (module, path) pairs to public URLs and serves the files.
// Registration is idempotent for the lifetime of the registry.
type Registry struct {
	mu      sync.RWMutex
	prefix  string
	modules map[string]fs.FS
	files   map[string]string
}

// NewRegistry builds a registry applying opts.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		prefix:  DefaultPrefix,
		modules: make(map[string]fs.FS),
		files:   make(map[string]string),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Prefix returns the URL prefix served by the registry.
func (r *Registry) Prefix() string {
	return r.prefix
}

// Mount attaches fsys as the file source of module.
func (r *Registry) Mount(module string, fsys fs.FS) {
	r.mount(module, fsys)
}

func (r *Registry) mount(module string, fsys fs.FS) {
	module = strings.Trim(strings.TrimSpace(module), "/")
	if module == "" || fsys == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.modules[module] = fsys
}

// Register makes module/file publicly reachable and returns its URL. Calling
// it again for the same pair returns the same URL.
func (r *Registry) Register(module, file string) (string, error) {
	module = strings.Trim(strings.TrimSpace(module), "/")
	clean, err := cleanPath(file)
	if err != nil {
		return "", err
	}
	key := module + "/" + clean

	r.mu.RLock()
	if url, ok := r.files[key]; ok {
		r.mu.RUnlock()
		return url, nil
	}
	fsys, mounted := r.modules[module]
	r.mu.RUnlock()

	if !mounted {
		return "", fmt.Errorf("%w: %q", ErrUnknownModule, module)
	}
	if _, err := fs.Stat(fsys, clean); err != nil {
		return "", fmt.Errorf("resources: register %s/%s: %w", module, clean, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if url, ok := r.files[key]; ok {
		return url, nil
	}
	url := r.prefix + "/" + key
	r.files[key] = url
	return url, nil
}

// URL resolves the public URL of a resource, registering link resources.
func (r *Registry) URL(res Resource) (string, error) {
	if !res.IsLink() {
		return res.URL, nil
	}
	return r.Register(res.Module, res.Path)
}

// Registered lists the registered module/path keys.
func (r *Registry) Registered() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.files))
	for key := range r.files {
		out = append(out, key)
	}
	sort.Strings(out)
	return out
}

// ServeHTTP serves registered files. Unregistered paths yield 404.
func (r *Registry) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	key, ok := strings.CutPrefix(req.URL.Path, r.prefix+"/")
	if !ok {
		http.NotFound(w, req)
		return
	}

	r.mu.RLock()
	_, registered := r.files[key]
	module, file, _ := strings.Cut(key, "/")
	fsys := r.modules[module]
	r.mu.RUnlock()

	if !registered || fsys == nil {
		http.NotFound(w, req)
		return
	}
	http.ServeFileFS(w, req, fsys, file)
}

func cleanPath(file string) (string, error) {
	file = strings.TrimSpace(file)
	if file == "" {
		return "", errors.New("resources: path is required")
	}
	clean := path.Clean("/" + file)[1:]
	if clean == "" || !fs.ValidPath(clean) {
		return "", fmt.Errorf("resources: invalid path %q", file)
	}
	return clean, nil
}
