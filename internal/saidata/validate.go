package saidata

import (
	"regexp"
	"strconv"
)

var checksumPattern = regexp.MustCompile(`^[a-z0-9]+:[0-9a-f]+$`)

// ValidChecksum reports whether s is empty or matches algo:hex.
func ValidChecksum(s string) bool {
	if s == "" {
		return true
	}
	return checksumPattern.MatchString(s)
}

// ValidPort reports whether port is in [1, 65535].
func ValidPort(port int) bool { return port >= 1 && port <= 65535 }

// ValidTimeout reports whether seconds is in [1, 3600].
func ValidTimeout(seconds int) bool { return seconds >= 1 && seconds <= 3600 }

// Validate runs the model-level invariants that the schema
// validator's structural pass does not express (checksum shape, numeric
// ranges, enum closure). It does not duplicate the JSON-schema structural
// pass; see internal/schema for the combined two-phase check the
// orchestrator actually calls.
func (d *Document) Validate() []ValidationError {
	var errs []ValidationError

	if d.Version != SchemaVersion {
		errs = append(errs, ValidationError{
			Path: "version", Severity: "error", Code: "version_mismatch",
			Message: "version must be \"" + SchemaVersion + "\"",
		})
	}
	if d.Metadata.Name == "" {
		errs = append(errs, ValidationError{
			Path: "metadata.name", Severity: "error", Code: "required",
			Message: "metadata.name is required",
		})
	}
	for key := range d.Metadata.URLs {
		if !ValidURLKeys[key] {
			errs = append(errs, ValidationError{
				Path: "metadata.urls." + key, Severity: "warning", Code: "unknown_url_key",
				Message: "unrecognized metadata.urls key",
			})
		}
	}

	for i, p := range d.Packages {
		errs = append(errs, validateChecksumField(field("packages", i, "checksum"), p.Checksum)...)
	}
	for i, s := range d.Services {
		if s.Type != "" && !ValidServiceTypes[s.Type] {
			errs = append(errs, enumError(field("services", i, "type"), string(s.Type)))
		}
	}
	for i, p := range d.Ports {
		if !ValidPort(p.Port) {
			errs = append(errs, ValidationError{
				Path: field("ports", i, "port"), Severity: "error", Code: "out_of_range",
				Message: "port must be in [1, 65535]",
			})
		}
		if p.Protocol != ProtocolTCP && p.Protocol != ProtocolUDP {
			errs = append(errs, enumError(field("ports", i, "protocol"), string(p.Protocol)))
		}
	}
	for i, s := range d.Sources {
		if !ValidBuildSystems[s.BuildSystem] {
			errs = append(errs, enumError(field("sources", i, "build_system"), string(s.BuildSystem)))
		}
		errs = append(errs, validateChecksumField(field("sources", i, "checksum"), s.Checksum)...)
	}
	for i, b := range d.Binaries {
		errs = append(errs, validateChecksumField(field("binaries", i, "checksum"), b.Checksum)...)
	}
	for i, s := range d.Scripts {
		if s.Timeout != 0 && !ValidTimeout(s.Timeout) {
			errs = append(errs, ValidationError{
				Path: field("scripts", i, "timeout"), Severity: "error", Code: "out_of_range",
				Message: "timeout must be in [1, 3600] seconds",
			})
		}
		errs = append(errs, validateChecksumField(field("scripts", i, "checksum"), s.Checksum)...)
	}

	for name, pc := range d.Providers {
		for i, p := range pc.Packages {
			errs = append(errs, validateChecksumField(field("providers."+name+".packages", i, "checksum"), p.Checksum)...)
		}
		for i, pt := range pc.Ports {
			if !ValidPort(pt.Port) {
				errs = append(errs, ValidationError{
					Path: field("providers."+name+".ports", i, "port"), Severity: "error", Code: "out_of_range",
					Message: "port must be in [1, 65535]",
				})
			}
		}
	}

	return errs
}

func validateChecksumField(path, checksum string) []ValidationError {
	if ValidChecksum(checksum) {
		return nil
	}
	return []ValidationError{{
		Path: path, Severity: "error", Code: "invalid_checksum",
		Message: "checksum must match ^[a-z0-9]+:[0-9a-f]+$",
	}}
}

func enumError(path, value string) ValidationError {
	return ValidationError{
		Path: path, Severity: "error", Code: "invalid_enum_value",
		Message: "unrecognized value: " + value,
	}
}

func field(section string, index int, leaf string) string {
	return section + "[" + strconv.Itoa(index) + "]." + leaf
}
