// Package bundle exports and imports zip archives that carry a project (or
// one module of it) together with the images it references.
package bundle

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Module identifies what a bundle carries. The value is also the file
// extension of the bundle.
type Module string

const (
	ModuleProject Module = "zip"
	ModuleStudio  Module = "thestudio"
	ModuleArtDept Module = "artdept"
	ModuleBible   Module = "bible"
	ModuleScript  Module = "script"
)

// Modules lists every bundle module.
var Modules = []Module{ModuleProject, ModuleStudio, ModuleArtDept, ModuleBible, ModuleScript}

// Main data file names.
const (
	ProjectFile = "project.json"
	DataFile    = "data.json"
)

// ParseModule accepts a module name or extension.
func ParseModule(s string) (Module, error) {
	switch strings.ToLower(strings.TrimPrefix(s, ".")) {
	case "zip", "project", "showrunner":
		return ModuleProject, nil
	case "thestudio", "studio":
		return ModuleStudio, nil
	case "artdept", "art":
		return ModuleArtDept, nil
	case "bible":
		return ModuleBible, nil
	case "script":
		return ModuleScript, nil
	}
	return "", fmt.Errorf("bundle: unknown module %q", s)
}

// Extension returns the bundle file extension.
func (m Module) Extension() string { return string(m) }

// MainFile returns the name of the JSON document inside the archive.
func (m Module) MainFile() string {
	if m == ModuleProject {
		return ProjectFile
	}
	return DataFile
}

// BaseName returns the file name stem used when exporting m for a project.
func (m Module) BaseName(projectName string) string {
	switch m {
	case ModuleStudio:
		return projectName + "_Studio"
	case ModuleArtDept:
		return projectName + "_ArtDept"
	}
	return projectName
}

// FileName builds Name_With_Underscores_DDMMYY_HH-MM.ext.
func FileName(name, ext string, now time.Time) string {
	return fmt.Sprintf("%s_%s.%s", strings.ReplaceAll(name, " ", "_"), now.Format("020106_15-04"), ext)
}

// BriefFileName names an exported continuity brief, e.g. My_Show-S2-Brief.json.
func BriefFileName(projectName string, episodic bool, number int) string {
	prefix := "P"
	if episodic {
		prefix = "S"
	}
	return fmt.Sprintf("%s-%s%d-Brief.json", strings.ReplaceAll(projectName, " ", "_"), prefix, number)
}

var (
	// jsonRefPattern finds quoted blob ids inside a serialized document.
	jsonRefPattern = regexp.MustCompile(`"(img_[a-f0-9\-]+)"`)
	// fileIDPattern finds a blob id anywhere in an archive file name.
	fileIDPattern = regexp.MustCompile(`(?i)(img_[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12})`)
	nonAlnum      = regexp.MustCompile(`[^a-zA-Z0-9]`)
)
