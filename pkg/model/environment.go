package model

import (
	"fmt"
	"strings"
)

// EnvironmentLayout describes the virtual environment kept on the home storage.
type EnvironmentLayout struct {
	StorageName    string // e.g. HOME; also the shell variable pointing at it
	EnvDir         string
	EnvName        string
	PythonVersion  string
	Package        string // pip distribution name
	PackageVersion string // local version the remote one must equal
	PipLibraries   []string
}

// VenvPath is the environment path relative to the storage root.
func (l EnvironmentLayout) VenvPath() string {
	return l.EnvDir + "/" + l.EnvName
}

// SitePackagesPath is the site-packages directory relative to the storage root.
func (l EnvironmentLayout) SitePackagesPath() string {
	return fmt.Sprintf("%s/lib/python%s/site-packages", l.VenvPath(), l.PythonVersion)
}

// DistInfoPrefix is how pip names the package's metadata directory,
// e.g. "tvb_ext_xircuits-".
func (l EnvironmentLayout) DistInfoPrefix() string {
	return strings.ReplaceAll(l.Package, "-", "_") + "-"
}

func (l EnvironmentLayout) ActivateCommand() string {
	return fmt.Sprintf("source $%s/%s/bin/activate", l.StorageName, l.VenvPath())
}

func (l EnvironmentLayout) CreateEnvCommand() string {
	return fmt.Sprintf("cd $%s/%s && rm -rf %s && python -mvenv %s",
		l.StorageName, l.EnvDir, l.EnvName, l.EnvName)
}

func (l EnvironmentLayout) InstallCommand() string {
	libs := append([]string{}, l.PipLibraries...)
	libs = append(libs, l.Package+"=="+l.PackageVersion)
	return "pip install -U pip && pip install allensdk && pip install " + strings.Join(libs, " ")
}

// NotReadyReason enumerates why an environment must be recreated.
type NotReadyReason int

const (
	ReasonNone NotReadyReason = iota
	ReasonMissingEnvDir
	ReasonMissingVenv
	ReasonMissingPackage
	ReasonVersionMismatch
	ReasonInspectionError
)

func (r NotReadyReason) String() string {
	switch r {
	case ReasonNone:
		return "ready"
	case ReasonMissingEnvDir:
		return "missing environment directory"
	case ReasonMissingVenv:
		return "missing virtual environment"
	case ReasonMissingPackage:
		return "missing package"
	case ReasonVersionMismatch:
		return "version mismatch"
	case ReasonInspectionError:
		return "inspection error"
	}
	return fmt.Sprintf("NotReadyReason(%d)", int(r))
}

// Readiness is the outcome of an environment check.
type Readiness struct {
	Ready  bool
	Reason NotReadyReason
	Detail string
}

func ReadyEnvironment() Readiness { return Readiness{Ready: true} }

func NotReady(reason NotReadyReason, detail string) Readiness {
	return Readiness{Reason: reason, Detail: detail}
}
