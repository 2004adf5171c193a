package satest

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/example42/saigen/internal/saidata"
)

// Runner drives the Validator's checks over one or more saidata documents.
type Runner struct {
	validator *Validator
}

// NewRunner constructs a Runner.
func NewRunner() *Runner {
	return &Runner{validator: NewValidator()}
}

// Run executes every structural check against doc and returns the suite.
func (r *Runner) Run(name string, doc *saidata.Document) Suite {
	suite := Suite{Name: name, StartTime: time.Now()}
	suite.Results = append(suite.Results,
		r.validator.ValidatePackageManagersResolve(doc),
		r.validator.ValidateFilesExist(doc),
		r.validator.ValidateCommandsResolve(doc),
	)
	suite.EndTime = time.Now()
	return suite
}

// RunFile loads a single saidata YAML document from path and runs Run
// against it.
func (r *Runner) RunFile(path string) (Suite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Suite{}, fmt.Errorf("reading %s: %w", path, err)
	}

	var doc saidata.Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Suite{
			Name:      filepath.Base(path),
			StartTime: time.Now(),
			EndTime:   time.Now(),
			Results: []Result{{
				Name:    "parse",
				Status:  StatusError,
				Message: err.Error(),
			}},
		}, nil
	}

	return r.Run(filepath.Base(path), &doc), nil
}

// RunDir runs RunFile against every *.yaml/*.yml file under dir, in
// lexical path order.
func (r *Runner) RunDir(dir string) ([]Suite, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := filepath.Ext(path)
		if ext == ".yaml" || ext == ".yml" {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)

	suites := make([]Suite, 0, len(paths))
	for _, p := range paths {
		suite, err := r.RunFile(p)
		if err != nil {
			return nil, err
		}
		suites = append(suites, suite)
	}
	return suites, nil
}
