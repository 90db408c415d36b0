package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"time"

	formwidget "github.com/goliatone/go-formwidget"
	"github.com/goliatone/go-formwidget/pkg/openapi"
	"github.com/goliatone/go-formwidget/pkg/prompt"
	"github.com/goliatone/go-formwidget/pkg/validation"
	"github.com/goliatone/go-formwidget/pkg/widget"
)

func main() {
	formsDir := flag.String("forms", "", "directory of YAML/JSON form definitions")
	formName := flag.String("form", "", "form to use from -forms")
	docPath := flag.String("openapi", "", "OpenAPI document path or URL")
	opID := flag.String("operation", "", "operation ID to build a form for")
	mode := flag.String("mode", "html", "html renders the form, prompt asks for it on the terminal")
	output := flag.String("output", "", "output file (stdout if empty)")
	list := flag.Bool("list", false, "list available forms or operations and exit")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	rt, err := formwidget.NewRuntime()
	if err != nil {
		log.Fatalf("Failed to create runtime: %v", err)
	}

	def, err := resolve(ctx, rt, *formsDir, *formName, *docPath, *opID, *list)
	if err != nil {
		log.Fatalf("%v", err)
	}
	if def == nil {
		return
	}

	var out []byte
	switch strings.ToLower(strings.TrimSpace(*mode)) {
	case "html":
		rctx := rt.Context(ctx)
		html, err := rt.Display(rctx, def)
		if err != nil {
			log.Fatalf("Failed to render form: %v", err)
		}
		page, err := rt.Inject(rctx, html)
		if err != nil {
			log.Fatalf("Failed to inject resources: %v", err)
		}
		out = []byte(page)
	case "prompt":
		value, err := prompt.New().Run(rt.Context(ctx), def)
		switch {
		case errors.Is(err, prompt.ErrAborted):
			os.Exit(130)
		case err != nil && !isValidation(err):
			log.Fatalf("Failed to collect input: %v", err)
		case err != nil:
			os.Exit(1)
		}
		out, err = json.MarshalIndent(value, "", "  ")
		if err != nil {
			log.Fatalf("Failed to encode result: %v", err)
		}
	default:
		log.Fatalf("unknown mode %q", *mode)
	}

	if *output != "" {
		if err := os.WriteFile(*output, out, 0o644); err != nil {
			log.Fatalf("Failed to write output: %v", err)
		}
		fmt.Printf("Form written to %s\n", *output)
		return
	}
	fmt.Println(string(out))
}

// resolve returns the requested definition, or nil after listing.
func resolve(ctx context.Context, rt *formwidget.Runtime, dir, name, docPath, opID string, list bool) (*widget.Definition, error) {
	switch {
	case docPath != "":
		loader := openapi.NewLoader(openapi.WithHTTPFallback(30 * time.Second))
		data, err := loader.Load(ctx, docPath)
		if err != nil {
			return nil, fmt.Errorf("load OpenAPI document: %w", err)
		}
		if list {
			doc, err := openapi.Parse(ctx, data, docPath)
			if err != nil {
				return nil, err
			}
			for _, op := range doc.Operations() {
				if op.HasBody() {
					fmt.Printf("%s\t%s %s\n", op.ID, op.Method, op.Path)
				}
			}
			return nil, nil
		}
		if opID == "" {
			return nil, errors.New("-operation is required with -openapi")
		}
		return rt.OpenAPIForm(ctx, data, opID)
	case dir != "":
		store, err := rt.LoadForms(os.DirFS(dir))
		if err != nil {
			return nil, fmt.Errorf("load forms: %w", err)
		}
		if list {
			for _, form := range store.Forms() {
				fmt.Println(form)
			}
			return nil, nil
		}
		def, ok := store.Form(name)
		if !ok {
			return nil, fmt.Errorf("form %q not found in %s (have %s)", name, dir, strings.Join(store.Forms(), ", "))
		}
		return def, nil
	}
	return nil, errors.New("one of -forms or -openapi is required")
}

func isValidation(err error) bool {
	var verr *validation.Error
	return errors.As(err, &verr)
}
