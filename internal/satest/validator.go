package satest

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"time"

	"github.com/example42/saigen/internal/saidata"
)

// Validator runs structural checks against a saidata.Document: no check
// here ever shells out to a package manager's install/remove path, only to
// query whether a name resolves (exec.LookPath) or a path already exists
// (os.Stat).
type Validator struct{}

// NewValidator constructs a Validator.
func NewValidator() *Validator { return &Validator{} }

func (v *Validator) timed(name string, fn func() (Status, string, map[string]string)) Result {
	start := time.Now()
	status, msg, details := fn()
	return Result{Name: name, Status: status, Duration: time.Since(start), Message: msg, Details: details}
}

// ValidatePackageManagersResolve checks that every provider key in
// doc.Providers (e.g. "apt", "dnf", "brew") names a binary on PATH.
func (v *Validator) ValidatePackageManagersResolve(doc *saidata.Document) Result {
	return v.timed("package_managers_resolve", func() (Status, string, map[string]string) {
		if len(doc.Providers) == 0 {
			return StatusSkipped, "no providers defined", nil
		}

		names := make([]string, 0, len(doc.Providers))
		for name := range doc.Providers {
			names = append(names, name)
		}
		sort.Strings(names)

		var missing []string
		for _, name := range names {
			if _, err := exec.LookPath(name); err != nil {
				missing = append(missing, name)
			}
		}

		if len(missing) == len(names) {
			return StatusSkipped, "no configured provider's package manager is available on this host", map[string]string{"providers": fmt.Sprint(names)}
		}
		if len(missing) > 0 {
			return StatusFailed, fmt.Sprintf("package managers not on PATH: %v", missing), map[string]string{"missing": fmt.Sprint(missing)}
		}
		return StatusPassed, "all configured provider package managers resolve", nil
	})
}

// ValidateFilesExist checks that every file/directory path the document
// declares (top-level and per-provider) already exists on disk.
func (v *Validator) ValidateFilesExist(doc *saidata.Document) Result {
	return v.timed("paths_exist", func() (Status, string, map[string]string) {
		paths := collectPaths(doc)
		if len(paths) == 0 {
			return StatusSkipped, "no files or directories defined", nil
		}

		var missing []string
		for _, p := range paths {
			if _, err := os.Stat(p); err != nil {
				missing = append(missing, p)
			}
		}

		if len(missing) > 0 {
			sort.Strings(missing)
			return StatusFailed, fmt.Sprintf("missing paths: %v", missing), map[string]string{"missing": fmt.Sprint(missing)}
		}
		return StatusPassed, "all declared paths exist", nil
	})
}

// ValidateCommandsResolve checks that every command path the document
// declares resolves: an absolute path must exist and be executable, a bare
// name must resolve on PATH.
func (v *Validator) ValidateCommandsResolve(doc *saidata.Document) Result {
	return v.timed("commands_resolve", func() (Status, string, map[string]string) {
		cmdPaths := collectCommandPaths(doc)
		if len(cmdPaths) == 0 {
			return StatusSkipped, "no commands defined", nil
		}

		var unresolved []string
		for _, p := range cmdPaths {
			if !commandResolves(p) {
				unresolved = append(unresolved, p)
			}
		}

		if len(unresolved) > 0 {
			sort.Strings(unresolved)
			return StatusFailed, fmt.Sprintf("commands do not resolve: %v", unresolved), map[string]string{"unresolved": fmt.Sprint(unresolved)}
		}
		return StatusPassed, "all declared commands resolve", nil
	})
}

func commandResolves(path string) bool {
	if filepath.IsAbs(path) {
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			return false
		}
		return info.Mode()&0o111 != 0
	}
	_, err := exec.LookPath(path)
	return err == nil
}

func collectPaths(doc *saidata.Document) []string {
	var paths []string
	for _, f := range doc.Files {
		paths = append(paths, f.Path)
	}
	for _, d := range doc.Directories {
		paths = append(paths, d.Path)
	}
	for _, pc := range doc.Providers {
		for _, f := range pc.Files {
			paths = append(paths, f.Path)
		}
		for _, d := range pc.Directories {
			paths = append(paths, d.Path)
		}
	}
	return dedupeStrings(paths)
}

func collectCommandPaths(doc *saidata.Document) []string {
	var paths []string
	for _, c := range doc.Commands {
		paths = append(paths, c.Path)
	}
	for _, pc := range doc.Providers {
		for _, c := range pc.Commands {
			paths = append(paths, c.Path)
		}
	}
	return dedupeStrings(paths)
}

func dedupeStrings(in []string) []string {
	seen := make(map[string]bool, len(in))
	var out []string
	for _, s := range in {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
