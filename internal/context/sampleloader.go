package gencontext

import (
	"context"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/example42/saigen/internal/saidata"
)

// DirectorySampleLoader implements SampleLoader by reading curated saidata
// documents from a flat directory of *.yaml/*.yml files. Files are read in lexical filename order
// so a fixed sample set returns the same prefix on every call.
type DirectorySampleLoader struct {
	Dir string
}

// NewDirectorySampleLoader constructs a DirectorySampleLoader rooted at dir.
func NewDirectorySampleLoader(dir string) *DirectorySampleLoader {
	return &DirectorySampleLoader{Dir: dir}
}

// LoadSamples implements SampleLoader. A missing or empty directory yields
// an empty slice, never an error — sample backfill is best-effort.
func (l *DirectorySampleLoader) LoadSamples(ctx context.Context, n int) ([]saidata.Document, error) {
	if l.Dir == "" || n <= 0 {
		return nil, nil
	}

	entries, err := os.ReadDir(l.Dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := filepath.Ext(e.Name())
		if ext == ".yaml" || ext == ".yml" {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	docs := make([]saidata.Document, 0, n)
	for _, name := range names {
		if len(docs) >= n {
			break
		}
		select {
		case <-ctx.Done():
			return docs, ctx.Err()
		default:
		}

		data, err := os.ReadFile(filepath.Join(l.Dir, name))
		if err != nil {
			continue
		}
		var doc saidata.Document
		if err := yaml.Unmarshal(data, &doc); err != nil {
			continue
		}
		docs = append(docs, doc)
	}
	return docs, nil
}
