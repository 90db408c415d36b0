package widgets

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-formwidget/pkg/widget"
)

// Hidden returns a HiddenField with the given id whose value defaults to
// value. Useful for tokens emitted alongside the visible fields.
func Hidden(id string, value any) (*widget.Definition, error) {
	return HiddenField.With(
		widget.ID(strings.TrimSpace(id)),
		widget.Set(ParamDefault, fmt.Sprint(value)),
	)
}

// CSRFToken returns a hidden field carrying a CSRF token. Callers choose the
// id to match their backend ("csrf_token").
func CSRFToken(id, token string) (*widget.Definition, error) {
	return Hidden(id, token)
}

// AuthToken returns a hidden field carrying an authentication token or
// session hint.
func AuthToken(id, token string) (*widget.Definition, error) {
	return Hidden(id, token)
}

// VersionField returns a hidden field used for optimistic locking.
func VersionField(id string, version any) (*widget.Definition, error) {
	return Hidden(id, version)
}
