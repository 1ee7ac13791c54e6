package domain

import (
	"runtime"
	"strconv"
)

// UIStack flags which Windows desktop stack the scaffolded project enables.
type UIStack string

const (
	UINone     UIStack = "none"
	UIWinForms UIStack = "winforms"
	UIWpf      UIStack = "wpf"
)

// ScaffoldPlan is the ephemeral project descriptor for one modern-backend
// attempt. Dir is filled in by the scaffolder when the plan is materialized
// and is owned exclusively by that attempt; it is deleted when the attempt
// ends regardless of outcome.
type ScaffoldPlan struct {
	TargetFramework string
	UIStack         UIStack
	OutputType      string // "Exe" or "WinExe"
	RuntimeID       string
	SelfContained   bool
	SingleFile      bool

	Dir         string
	ProjectFile string
	PublishDir  string
}

// PlanScaffold derives a scaffold plan from the request, classification and
// configured defaults. WinForms/WPF usage promotes the base framework moniker
// to its -windows variant so that the desktop APIs resolve.
func PlanScaffold(req BuildRequest, cls ClassificationResult, cfg Config) ScaffoldPlan {
	plan := ScaffoldPlan{
		TargetFramework: cfg.Build.TargetFramework,
		UIStack:         UINone,
		OutputType:      "Exe",
		RuntimeID:       cfg.Build.RuntimeID,
		SelfContained:   cfg.Build.SelfContained,
		SingleFile:      cfg.Build.SingleFile,
	}
	if plan.TargetFramework == "" {
		plan.TargetFramework = DefaultTargetFramework
	}
	if plan.RuntimeID == "" {
		plan.RuntimeID = HostRuntimeID()
	}
	if req.SelfContained != nil {
		plan.SelfContained = *req.SelfContained
	}
	if req.SingleFile != nil {
		plan.SingleFile = *req.SingleFile
	}

	switch {
	case cls.Has(SignalWinForms) || cls.Has(SignalAppConfig):
		plan.UIStack = UIWinForms
	case cls.Has(SignalWpf):
		plan.UIStack = UIWpf
	}
	if plan.UIStack != UINone {
		plan.TargetFramework += "-windows"
	}

	windows := req.Target == TargetWindows || (req.Target == TargetAuto && cls.UsesUI())
	if windows {
		plan.OutputType = "WinExe"
	}
	return plan
}

// PublishArgs builds the dotnet publish argument vector for a materialized
// plan.
func (p ScaffoldPlan) PublishArgs() []string {
	args := []string{
		"publish", p.ProjectFile,
		"-c", "Release",
		"-o", p.PublishDir,
		"-r", p.RuntimeID,
		"--self-contained", strconv.FormatBool(p.SelfContained),
	}
	if p.SingleFile {
		args = append(args, "-p:PublishSingleFile=true", "-p:IncludeNativeLibrariesForSelfExtract=true")
	}
	return append(args, "-p:DebugType=none", "-p:DebugSymbols=false")
}

// HostRuntimeID maps the host architecture to a Windows runtime identifier
// for self-contained publishing.
func HostRuntimeID() string {
	switch runtime.GOARCH {
	case "arm64":
		return "win-arm64"
	case "arm":
		return "win-arm"
	case "386":
		return "win-x86"
	default:
		return "win-x64"
	}
}
