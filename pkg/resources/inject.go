package resources

import (
	"fmt"
	"strings"
)

// Inject inserts the tags of res into page: head resources before </head>
// and body-bottom resources before </body>. Missing markers fall back to the
// start and end of the document respectively. Link resources are resolved
// through reg.
func Inject(page string, res []Resource, reg *Registry) (string, error) {
	if len(res) == 0 {
		return page, nil
	}

	var head, body strings.Builder
	for _, r := range res {
		href := ""
		if r.IsLink() {
			if reg == nil {
				return "", fmt.Errorf("resources: no registry to resolve %s", r.Key())
			}
			url, err := reg.URL(r)
			if err != nil {
				return "", err
			}
			href = url
		}
		tag := r.Tag(href)
		if r.Location == LocationHead {
			head.WriteString(tag)
			head.WriteString("\n")
			continue
		}
		body.WriteString(tag)
		body.WriteString("\n")
	}

	if head.Len() > 0 {
		page = insertBefore(page, "</head>", head.String(), true)
	}
	if body.Len() > 0 {
		page = insertBefore(page, "</body>", body.String(), false)
	}
	return page, nil
}

func insertBefore(page, marker, content string, atStart bool) string {
	idx := strings.LastIndex(strings.ToLower(page), marker)
	if idx < 0 {
		if atStart {
			return content + page
		}
		return page + content
	}
	return page[:idx] + content + page[idx:]
}
