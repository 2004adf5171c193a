// Package dedup strips per-provider resource records that are redundant
// with the top-level defaults they would otherwise shadow.
package dedup

import "github.com/example42/saigen/internal/saidata"

// Deduplicate walks every provider config in doc and drops any record whose
// identity key matches a top-level record and whose non-identity fields are
// all equal to that top-level record (absent fields counting as equal). A
// resource sequence that becomes empty is set to nil so the yaml emitter
// omits it. Deduplicate mutates doc in place and also returns it.
func Deduplicate(doc *saidata.Document) *saidata.Document {
	if doc == nil {
		return doc
	}

	topPackages := indexByKey(doc.Packages, saidata.Package.IdentityKey)
	topServices := indexByKey(doc.Services, saidata.Service.IdentityKey)
	topFiles := indexByKey(doc.Files, saidata.File.IdentityKey)
	topDirectories := indexByKey(doc.Directories, saidata.Directory.IdentityKey)
	topCommands := indexByKey(doc.Commands, saidata.Command.IdentityKey)
	topPorts := indexByKey(doc.Ports, saidata.Port.IdentityKey)

	for name, pc := range doc.Providers {
		pc.Packages = filterOut(pc.Packages, topPackages, saidata.Package.IdentityKey, packagesEqual)
		pc.Services = filterOut(pc.Services, topServices, saidata.Service.IdentityKey, servicesEqual)
		pc.Files = filterOut(pc.Files, topFiles, saidata.File.IdentityKey, filesEqual)
		pc.Directories = filterOut(pc.Directories, topDirectories, saidata.Directory.IdentityKey, directoriesEqual)
		pc.Commands = filterOut(pc.Commands, topCommands, saidata.Command.IdentityKey, commandsEqual)
		pc.Ports = filterOut(pc.Ports, topPorts, saidata.Port.IdentityKey, portsEqual)
		doc.Providers[name] = pc
	}

	return doc
}

func indexByKey[T any](items []T, key func(T) [2]string) map[[2]string]T {
	idx := make(map[[2]string]T, len(items))
	for _, item := range items {
		idx[key(item)] = item
	}
	return idx
}

// filterOut drops every item from items whose identity key is present in
// top and whose non-identity fields equal the top-level record per eq.
func filterOut[T any](items []T, top map[[2]string]T, key func(T) [2]string, eq func(a, b T) bool) []T {
	var kept []T
	for _, item := range items {
		if topItem, ok := top[key(item)]; ok && eq(item, topItem) {
			continue
		}
		kept = append(kept, item)
	}
	return kept
}

// Field lists below define the per-kind difference predicate.

func packagesEqual(a, b saidata.Package) bool {
	return a.Version == b.Version &&
		stringsEqual(a.Alternatives, b.Alternatives) &&
		a.InstallOptions == b.InstallOptions &&
		a.Repository == b.Repository &&
		a.Checksum == b.Checksum &&
		a.Signature == b.Signature &&
		a.DownloadURL == b.DownloadURL
}

func servicesEqual(a, b saidata.Service) bool {
	return a.Type == b.Type &&
		boolPtrEqual(a.Enabled, b.Enabled) &&
		stringsEqual(a.ConfigFiles, b.ConfigFiles) &&
		a.StartCommand == b.StartCommand &&
		a.StopCommand == b.StopCommand
}

func filesEqual(a, b saidata.File) bool {
	return a.Type == b.Type &&
		a.Owner == b.Owner &&
		a.Group == b.Group &&
		a.Mode == b.Mode &&
		boolPtrEqual(a.Backup, b.Backup) &&
		a.Template == b.Template
}

func directoriesEqual(a, b saidata.Directory) bool {
	return a.Owner == b.Owner &&
		a.Group == b.Group &&
		a.Mode == b.Mode &&
		boolPtrEqual(a.Create, b.Create)
}

func commandsEqual(a, b saidata.Command) bool {
	return a.ShellCompletion == b.ShellCompletion &&
		a.ManPage == b.ManPage &&
		a.Description == b.Description
}

func portsEqual(a, b saidata.Port) bool {
	return a.Service == b.Service && a.Description == b.Description
}

func stringsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func boolPtrEqual(a, b *bool) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
