package usecase

import (
	"bytes"
	"embed"
	"strings"
	"text/template"

	"docindex/internal/domain"
)

//go:embed templates/context.tmpl
var contextTemplates embed.FS

var contextTmpl = template.Must(template.ParseFS(contextTemplates, "templates/context.tmpl"))

type reference struct {
	Number  int
	Name    string
	Path    string
	Percent float64
	Text    string
}

// FormatContext renders search results as a numbered reference block for a
// completion backend. It returns "" when there are no results.
func FormatContext(results []domain.SearchResult) string {
	if len(results) == 0 {
		return ""
	}

	refs := make([]reference, 0, len(results))
	for i, r := range results {
		text := r.RelevantText
		if text == "" {
			text = r.Chunk.Content
		}
		refs = append(refs, reference{
			Number:  i + 1,
			Name:    r.Chunk.SourceName,
			Path:    r.Chunk.SourcePath,
			Percent: r.Similarity * 100,
			Text:    text,
		})
	}

	var buf bytes.Buffer
	if err := contextTmpl.Execute(&buf, refs); err != nil {
		// The template is fixed and the data has no methods that can fail.
		panic(err)
	}
	return strings.TrimRight(buf.String(), "\n")
}
