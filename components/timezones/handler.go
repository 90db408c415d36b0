package timezones

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/goliatone/go-formwidget/pkg/widgets"
)

type searchResponse struct {
	Data []widgets.Option `json:"data"`
}

// Handler answers GET requests with {"data": [{"value", "label"}]} for the
// zones matching the search parameter.
func Handler(fns ...OptionFn) http.Handler {
	opts := NewOptions(fns...)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", http.MethodGet+", "+http.MethodHead)
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
			return
		}
		zones, err := opts.zones()
		if err != nil {
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		query := r.URL.Query()
		requested, _ := strconv.Atoi(query.Get(opts.LimitParam))
		matches := Search(zones, query.Get(opts.SearchParam), opts.limit(requested), opts.EmptySearchMode == EmptySearchTop)
		resp := searchResponse{Data: make([]widgets.Option, 0, len(matches))}
		for _, zone := range matches {
			resp.Data = append(resp.Data, widgets.Option{Value: zone, Label: zone})
		}

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		if r.Method == http.MethodHead {
			return
		}
		_ = json.NewEncoder(w).Encode(resp)
	})
}

// Mux is satisfied by *http.ServeMux.
type Mux interface {
	Handle(pattern string, handler http.Handler)
}

// RegisterRoutes mounts the search handler under basePath and returns the
// registered pattern.
func RegisterRoutes(mux Mux, basePath string, fns ...OptionFn) (string, error) {
	if mux == nil {
		return "", fmt.Errorf("timezones: missing mux")
	}
	opts := NewOptions(fns...)
	pattern := MountPath(basePath, opts.RoutePath)
	mux.Handle(pattern, Handler(fns...))
	return pattern, nil
}

// MountPath joins basePath and routePath into an absolute route.
func MountPath(basePath, routePath string) string {
	routePath = "/" + strings.TrimLeft(strings.TrimSpace(routePath), "/")
	basePath = strings.Trim(strings.TrimSpace(basePath), "/")
	if basePath == "" {
		return routePath
	}
	return "/" + basePath + routePath
}
