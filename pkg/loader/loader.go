// Package loader builds widget definitions from declarative JSON or YAML
// files. A file lists forms by name and the validation message overrides of
// the hosting application:
//
//	messages:
//	  required: "Please fill in this field"
//	forms:
//	  contact:
//	    widget: TableForm
//	    params: {action: /contact}
//	    children:
//	      - {id: name, widget: TextField, required: true}
//	      - {id: email, widget: TextField, validator: {type: email}}
package loader

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-formwidget/pkg/validation"
	"github.com/goliatone/go-formwidget/pkg/widget"
	"github.com/goliatone/go-formwidget/pkg/widgets"
)

// WidgetConfig declares one widget of a form tree.
type WidgetConfig struct {
	ID        string           `json:"id" yaml:"id"`
	Widget    string           `json:"widget" yaml:"widget"`
	Template  string           `json:"template" yaml:"template"`
	Engine    string           `json:"engine" yaml:"engine"`
	Label     string           `json:"label" yaml:"label"`
	CSSClass  string           `json:"css_class" yaml:"css_class"`
	Required  *bool            `json:"required" yaml:"required"`
	Params    map[string]any   `json:"params" yaml:"params"`
	Validator *ValidatorConfig `json:"validator" yaml:"validator"`
	Children  []WidgetConfig   `json:"children" yaml:"children"`
	Child     *WidgetConfig    `json:"child" yaml:"child"`
}

type documentFile struct {
	Messages map[string]string       `json:"messages" yaml:"messages"`
	Forms    map[string]WidgetConfig `json:"forms" yaml:"forms"`
}

// Store holds the forms and message overrides read from definition files.
type Store struct {
	forms    map[string]*widget.Definition
	messages map[string]string
}

// LoadFS walks fsys and loads every JSON or YAML file. Form names must be
// unique across files. reg resolves widget names; nil uses the built-ins.
func LoadFS(fsys fs.FS, reg *widgets.Registry) (*Store, error) {
	store := newStore()
	if fsys == nil {
		return store, nil
	}
	if reg == nil {
		reg = widgets.NewRegistry()
	}

	err := fs.WalkDir(fsys, ".", func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if entry.IsDir() || !isDefinitionFile(path) {
			return nil
		}
		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return fmt.Errorf("loader: read %s: %w", path, err)
		}
		return store.add(data, path, reg)
	})
	if err != nil {
		return nil, err
	}
	return store, nil
}

// Parse loads a single definition document.
func Parse(data []byte, source string, reg *widgets.Registry) (*Store, error) {
	if reg == nil {
		reg = widgets.NewRegistry()
	}
	store := newStore()
	if err := store.add(data, source, reg); err != nil {
		return nil, err
	}
	return store, nil
}

func newStore() *Store {
	return &Store{
		forms:    make(map[string]*widget.Definition),
		messages: make(map[string]string),
	}
}

func (s *Store) add(data []byte, source string, reg *widgets.Registry) error {
	doc, err := parseDocument(data, source)
	if err != nil {
		return err
	}
	for kind, text := range doc.Messages {
		s.messages[strings.TrimSpace(kind)] = text
	}
	for name, cfg := range doc.Forms {
		name = strings.TrimSpace(name)
		if name == "" {
			return fmt.Errorf("loader: file %s defines a form with an empty name", source)
		}
		if _, exists := s.forms[name]; exists {
			return fmt.Errorf("loader: duplicate form %q (file %s)", name, source)
		}
		def, err := Build(cfg, reg)
		if err != nil {
			return fmt.Errorf("loader: form %q (file %s): %w", name, source, err)
		}
		s.forms[name] = def
	}
	return nil
}

// Form returns the definition of the named form.
func (s *Store) Form(name string) (*widget.Definition, bool) {
	if s == nil {
		return nil, false
	}
	def, ok := s.forms[name]
	return def, ok
}

// Forms returns the loaded form names in sorted order.
func (s *Store) Forms() []string {
	if s == nil {
		return nil
	}
	names := make([]string, 0, len(s.forms))
	for name := range s.forms {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Messages returns the message override table declared by the files.
func (s *Store) Messages() *validation.Messages {
	if s == nil {
		return validation.NewMessages(nil)
	}
	return validation.NewMessages(s.messages)
}

// Empty reports whether the store holds any forms.
func (s *Store) Empty() bool {
	return s == nil || len(s.forms) == 0
}

// Build converts a widget configuration into a definition derived from the
// registered widget it names.
func Build(cfg WidgetConfig, reg *widgets.Registry) (*widget.Definition, error) {
	name := strings.TrimSpace(cfg.Widget)
	if name == "" {
		return nil, fmt.Errorf("loader: widget %q: widget type is required", cfg.ID)
	}
	base, err := reg.Get(name)
	if err != nil {
		return nil, err
	}

	var opts []widget.Option
	if cfg.ID != "" {
		opts = append(opts, widget.ID(cfg.ID))
	}
	if cfg.Template != "" {
		opts = append(opts, widget.Template(cfg.Template))
	}

	values := make(map[string]any, len(cfg.Params)+4)
	for key, value := range cfg.Params {
		values[strings.TrimSpace(key)] = value
	}
	if cfg.Engine != "" {
		values[widget.ParamInlineEngine] = cfg.Engine
	}
	if cfg.Label != "" {
		values[widgets.ParamLabel] = cfg.Label
	}
	if cfg.CSSClass != "" {
		values[widget.ParamCSSClass] = cfg.CSSClass
	}
	if cfg.Required != nil {
		values[widget.ParamRequired] = *cfg.Required
	}
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		opts = append(opts, widget.Set(key, values[key]))
	}

	if cfg.Validator != nil {
		v, err := cfg.Validator.Build()
		if err != nil {
			return nil, fmt.Errorf("loader: widget %q: %w", cfg.ID, err)
		}
		opts = append(opts, widget.WithValidator(v))
	}

	if len(cfg.Children) > 0 {
		children := make([]*widget.Definition, 0, len(cfg.Children))
		for _, childCfg := range cfg.Children {
			child, err := Build(childCfg, reg)
			if err != nil {
				return nil, err
			}
			children = append(children, child)
		}
		opts = append(opts, widget.Children(children...))
	}
	if cfg.Child != nil {
		child, err := Build(*cfg.Child, reg)
		if err != nil {
			return nil, err
		}
		opts = append(opts, widget.Child(child))
	}

	return base.With(opts...)
}

func parseDocument(data []byte, source string) (documentFile, error) {
	var doc documentFile
	if len(strings.TrimSpace(string(data))) == 0 {
		return documentFile{}, fmt.Errorf("loader: file %s is empty", source)
	}
	if err := json.Unmarshal(data, &doc); err == nil {
		return doc, nil
	}
	doc = documentFile{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return documentFile{}, fmt.Errorf("loader: parse %s: %w", source, err)
	}
	return doc, nil
}

func isDefinitionFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".yaml", ".yml":
		return true
	default:
		return false
	}
}
