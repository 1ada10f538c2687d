package model

// BuildVariant is the result of inspecting a source tree for a way to build it
type BuildVariant string

const (
	BuildVariantDockerfile BuildVariant = "dockerfile"
	BuildVariantNixpacks   BuildVariant = "nixpacks"
	BuildVariantUndetected BuildVariant = "undetected"
)

// Buildable reports whether an image can be built for the variant
func (v BuildVariant) Buildable() bool {
	switch v {
	case BuildVariantDockerfile, BuildVariantNixpacks:
		return true
	default:
		return false
	}
}

// CIPolicy decides how a failing CI stage affects the pipeline
type CIPolicy string

const (
	CIPolicySkip       CIPolicy = "skip"
	CIPolicyBestEffort CIPolicy = "best-effort"
	CIPolicyRequired   CIPolicy = "required"
)

// Valid reports whether p is one of the known policies
func (p CIPolicy) Valid() bool {
	switch p {
	case CIPolicySkip, CIPolicyBestEffort, CIPolicyRequired:
		return true
	default:
		return false
	}
}
