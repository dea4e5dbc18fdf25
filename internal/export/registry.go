package export

import (
	"fmt"
	"io"
	"sort"

	"QiitaAnalyzer/internal/domain"
)

// Exporter serializes an already ordered collection.
type Exporter interface {
	Name() string
	Extension() string
	Export(w io.Writer, articles []domain.Article) error
}

// Registry keeps a mapping from format names to exporters.
type Registry struct {
	exporters map[string]Exporter
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{exporters: map[string]Exporter{}}
}

// Register adds or replaces an exporter.
func (r *Registry) Register(exporter Exporter) {
	if r.exporters == nil {
		r.exporters = map[string]Exporter{}
	}
	r.exporters[exporter.Name()] = exporter
}

// Resolve returns an exporter by name or an error if it is absent.
func (r *Registry) Resolve(name string) (Exporter, error) {
	if exporter, ok := r.exporters[name]; ok {
		return exporter, nil
	}
	return nil, fmt.Errorf("export format %s is not registered", name)
}

// Names lists registered formats alphabetically.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.exporters))
	for name := range r.exporters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FileName is the download name for userID's export.
func FileName(userID, extension string) string {
	return fmt.Sprintf("%s_qiita_articles.%s", userID, extension)
}
