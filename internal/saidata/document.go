// Package saidata defines the typed representation of a saidata document —
// the schema-governed YAML description of how to install, configure, and
// operate a piece of software across package providers.
package saidata

import "strconv"

// SchemaVersion is the only version this package accepts or emits.
const SchemaVersion = "0.3"

// Document is the root of a saidata document. Field order matches the
// section order the emitter preserves on disk: version, metadata,
// packages, services, files, directories, commands, ports, containers,
// sources, binaries, scripts, providers, compatibility.
type Document struct {
	Version       string                    `yaml:"version"`
	Metadata      Metadata                  `yaml:"metadata"`
	Packages      []Package                 `yaml:"packages,omitempty"`
	Services      []Service                 `yaml:"services,omitempty"`
	Files         []File                    `yaml:"files,omitempty"`
	Directories   []Directory               `yaml:"directories,omitempty"`
	Commands      []Command                 `yaml:"commands,omitempty"`
	Ports         []Port                    `yaml:"ports,omitempty"`
	Containers    []map[string]interface{}  `yaml:"containers,omitempty"`
	Sources       []Source                  `yaml:"sources,omitempty"`
	Binaries      []Binary                  `yaml:"binaries,omitempty"`
	Scripts       []Script                  `yaml:"scripts,omitempty"`
	Providers     map[string]ProviderConfig `yaml:"providers,omitempty"`
	Compatibility *Compatibility            `yaml:"compatibility,omitempty"`
}

// Metadata carries the descriptive, non-resource fields of a document.
type Metadata struct {
	Name        string            `yaml:"name"`
	DisplayName string            `yaml:"display_name,omitempty"`
	Description string            `yaml:"description,omitempty"`
	Version     string            `yaml:"version,omitempty"`
	Category    string            `yaml:"category,omitempty"`
	Subcategory string            `yaml:"subcategory,omitempty"`
	Tags        []string          `yaml:"tags,omitempty"`
	License     string            `yaml:"license,omitempty"`
	Language    string            `yaml:"language,omitempty"`
	Maintainer  string            `yaml:"maintainer,omitempty"`
	URLs        map[string]string `yaml:"urls,omitempty"`
	Security    *Security         `yaml:"security,omitempty"`
}

// URL key set recognized under metadata.urls.
const (
	URLWebsite       = "website"
	URLDocumentation = "documentation"
	URLSource        = "source"
	URLIssues        = "issues"
	URLSupport       = "support"
	URLDownload      = "download"
	URLChangelog     = "changelog"
	URLLicense       = "license"
	URLSBOM          = "sbom"
	URLIcon          = "icon"
)

// ValidURLKeys enumerates every key metadata.urls may carry.
var ValidURLKeys = map[string]bool{
	URLWebsite: true, URLDocumentation: true, URLSource: true, URLIssues: true,
	URLSupport: true, URLDownload: true, URLChangelog: true, URLLicense: true,
	URLSBOM: true, URLIcon: true,
}

// Security carries the metadata.security subsection.
type Security struct {
	CVEExceptions           []string `yaml:"cve_exceptions,omitempty"`
	SecurityContact         string   `yaml:"security_contact,omitempty"`
	VulnerabilityDisclosure string   `yaml:"vulnerability_disclosure,omitempty"`
	SBOMURL                 string   `yaml:"sbom_url,omitempty"`
	SigningKey              string   `yaml:"signing_key,omitempty"`
}

// Package is a top-level or provider-level package record.
type Package struct {
	Name           string   `yaml:"name"`
	PackageName    string   `yaml:"package_name"`
	Version        string   `yaml:"version,omitempty"`
	Alternatives   []string `yaml:"alternatives,omitempty"`
	InstallOptions string   `yaml:"install_options,omitempty"`
	Repository     string   `yaml:"repository,omitempty"`
	Checksum       string   `yaml:"checksum,omitempty"`
	Signature      string   `yaml:"signature,omitempty"`
	DownloadURL    string   `yaml:"download_url,omitempty"`
}

// IdentityKey returns the tuple used to match this record during
// merge/dedupe.
func (p Package) IdentityKey() [2]string { return [2]string{p.Name, p.PackageName} }

// ServiceType enumerates the service.type enum closure.
type ServiceType string

const (
	ServiceSystemd        ServiceType = "systemd"
	ServiceLaunchd        ServiceType = "launchd"
	ServiceWindowsService ServiceType = "windows_service"
	ServiceInit           ServiceType = "init"
	ServiceSupervisor     ServiceType = "supervisor"
	ServiceCustom         ServiceType = "custom"
)

// ValidServiceTypes enumerates the accepted service.type values.
var ValidServiceTypes = map[ServiceType]bool{
	ServiceSystemd: true, ServiceLaunchd: true, ServiceWindowsService: true,
	ServiceInit: true, ServiceSupervisor: true, ServiceCustom: true,
}

// Service is a top-level or provider-level service record.
type Service struct {
	Name         string      `yaml:"name"`
	ServiceName  string      `yaml:"service_name"`
	Type         ServiceType `yaml:"type,omitempty"`
	Enabled      *bool       `yaml:"enabled,omitempty"`
	ConfigFiles  []string    `yaml:"config_files,omitempty"`
	StartCommand string      `yaml:"start_command,omitempty"`
	StopCommand  string      `yaml:"stop_command,omitempty"`
}

// IdentityKey returns (name, service_name).
func (s Service) IdentityKey() [2]string { return [2]string{s.Name, s.ServiceName} }

// FileType enumerates the files[].type enum closure.
type FileType string

const (
	FileConfig        FileType = "config"
	FileLog           FileType = "log"
	FileData          FileType = "data"
	FileBinary        FileType = "binary"
	FileLibrary       FileType = "library"
	FileDocumentation FileType = "documentation"
)

// File is a top-level or provider-level managed file record.
type File struct {
	Name     string   `yaml:"name"`
	Path     string   `yaml:"path"`
	Type     FileType `yaml:"type,omitempty"`
	Owner    string   `yaml:"owner,omitempty"`
	Group    string   `yaml:"group,omitempty"`
	Mode     string   `yaml:"mode,omitempty"`
	Backup   *bool    `yaml:"backup,omitempty"`
	Template string   `yaml:"template,omitempty"`
}

// IdentityKey returns (name, path).
func (f File) IdentityKey() [2]string { return [2]string{f.Name, f.Path} }

// Directory is a top-level or provider-level managed directory record.
type Directory struct {
	Name   string `yaml:"name"`
	Path   string `yaml:"path"`
	Owner  string `yaml:"owner,omitempty"`
	Group  string `yaml:"group,omitempty"`
	Mode   string `yaml:"mode,omitempty"`
	Create *bool  `yaml:"create,omitempty"`
}

// IdentityKey returns (name, path).
func (d Directory) IdentityKey() [2]string { return [2]string{d.Name, d.Path} }

// Command is a top-level or provider-level command record.
type Command struct {
	Name            string `yaml:"name"`
	Path            string `yaml:"path"`
	ShellCompletion string `yaml:"shell_completion,omitempty"`
	ManPage         string `yaml:"man_page,omitempty"`
	Description     string `yaml:"description,omitempty"`
}

// IdentityKey returns (name, path).
func (c Command) IdentityKey() [2]string { return [2]string{c.Name, c.Path} }

// Protocol enumerates ports[].protocol.
type Protocol string

const (
	ProtocolTCP Protocol = "tcp"
	ProtocolUDP Protocol = "udp"
)

// Port is a top-level or provider-level network port record.
type Port struct {
	Port        int      `yaml:"port"`
	Protocol    Protocol `yaml:"protocol"`
	Service     string   `yaml:"service,omitempty"`
	Description string   `yaml:"description,omitempty"`
}

// IdentityKey returns (port, protocol) stringified for uniform map keys.
func (p Port) IdentityKey() [2]string {
	return [2]string{strconv.Itoa(p.Port), string(p.Protocol)}
}

// BuildSystem enumerates sources[].build_system.
type BuildSystem string

const (
	BuildAutotools BuildSystem = "autotools"
	BuildCMake     BuildSystem = "cmake"
	BuildMake      BuildSystem = "make"
	BuildMeson     BuildSystem = "meson"
	BuildNinja     BuildSystem = "ninja"
	BuildCustom    BuildSystem = "custom"
)

// ValidBuildSystems enumerates the accepted sources[].build_system values.
var ValidBuildSystems = map[BuildSystem]bool{
	BuildAutotools: true, BuildCMake: true, BuildMake: true,
	BuildMeson: true, BuildNinja: true, BuildCustom: true,
}

// Source describes a build-from-source installation method.
type Source struct {
	Name          string            `yaml:"name"`
	URL           string            `yaml:"url"`
	BuildSystem   BuildSystem       `yaml:"build_system"`
	ConfigureArgs []string          `yaml:"configure_args,omitempty"`
	BuildArgs     []string          `yaml:"build_args,omitempty"`
	InstallArgs   []string          `yaml:"install_args,omitempty"`
	Prerequisites []string          `yaml:"prerequisites,omitempty"`
	Environment   map[string]string `yaml:"environment,omitempty"`
	InstallPrefix string            `yaml:"install_prefix,omitempty"`
	Checksum      string            `yaml:"checksum,omitempty"`
}

// IdentityKey returns name.
func (s Source) IdentityKey() string { return s.Name }

// Archive describes binaries[].archive.
type Archive struct {
	Format      string `yaml:"format,omitempty"`
	StripPrefix string `yaml:"strip_prefix,omitempty"`
	ExtractPath string `yaml:"extract_path,omitempty"`
}

// Binary describes a prebuilt-binary-download installation method. URL may
// contain {{version}}, {{platform}}, {{architecture}} placeholders that the
// URL filter must leave untouched.
type Binary struct {
	Name        string   `yaml:"name"`
	URL         string   `yaml:"url"`
	InstallPath string   `yaml:"install_path,omitempty"`
	Executable  string   `yaml:"executable,omitempty"`
	Archive     *Archive `yaml:"archive,omitempty"`
	Permissions string   `yaml:"permissions,omitempty"`
	Checksum    string   `yaml:"checksum,omitempty"`
}

// IdentityKey returns name.
func (b Binary) IdentityKey() string { return b.Name }

const defaultInstallPath = "/usr/local/bin"

// Script describes a shell-installer installation method.
type Script struct {
	Name        string            `yaml:"name"`
	URL         string            `yaml:"url"`
	Interpreter string            `yaml:"interpreter,omitempty"`
	Timeout     int               `yaml:"timeout,omitempty"`
	Arguments   []string          `yaml:"arguments,omitempty"`
	Environment map[string]string `yaml:"environment,omitempty"`
	WorkingDir  string            `yaml:"working_dir,omitempty"`
	Checksum    string            `yaml:"checksum,omitempty"`
}

// IdentityKey returns name.
func (s Script) IdentityKey() string { return s.Name }

// ProviderConfig is the override/addition set a provider layers on top of
// the root resource defaults.
type ProviderConfig struct {
	Packages       []Package   `yaml:"packages,omitempty"`
	Services       []Service   `yaml:"services,omitempty"`
	Files          []File      `yaml:"files,omitempty"`
	Directories    []Directory `yaml:"directories,omitempty"`
	Commands       []Command   `yaml:"commands,omitempty"`
	Ports          []Port      `yaml:"ports,omitempty"`
	Prerequisites  []string    `yaml:"prerequisites,omitempty"`
	BuildCommands  []string    `yaml:"build_commands,omitempty"`
	PackageSources []string    `yaml:"package_sources,omitempty"`
	Repositories   []string    `yaml:"repositories,omitempty"`
}

// CompatibilityEntry is one row of compatibility.matrix.
type CompatibilityEntry struct {
	Provider     string   `yaml:"provider"`
	Platform     []string `yaml:"platform,omitempty"`
	Architecture []string `yaml:"architecture,omitempty"`
	OSVersion    []string `yaml:"os_version,omitempty"`
	Supported    *bool    `yaml:"supported,omitempty"`
	Tested       *bool    `yaml:"tested,omitempty"`
	Recommended  *bool    `yaml:"recommended,omitempty"`
}

// Compatibility is the compatibility section.
type Compatibility struct {
	Matrix   []CompatibilityEntry `yaml:"matrix,omitempty"`
	Versions map[string]string    `yaml:"versions,omitempty"`
}
