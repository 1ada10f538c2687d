package model

// Health states reported by serve mode
const (
	HealthOK       = "healthy"
	HealthDegraded = "degraded"
)

// RequiredTools must be on PATH for a pipeline to get past the build stage
var RequiredTools = []string{"git", "docker"}

// OptionalTools widen what can be built and checked: nixpacks builds, nix and make CI
var OptionalTools = []string{"nixpacks", "nix", "make"}

// HealthStatus is the body of the health endpoint
type HealthStatus struct {
	Status  string          `json:"status"`
	Service string          `json:"service"`
	Version string          `json:"version"`
	Tools   map[string]bool `json:"tools"`
}

// NewHealthStatus probes every known tool. The status is degraded when a required one is missing.
func NewHealthStatus(service, version string, available func(tool string) bool) *HealthStatus {
	h := &HealthStatus{
		Status:  HealthOK,
		Service: service,
		Version: version,
		Tools:   make(map[string]bool, len(RequiredTools)+len(OptionalTools)),
	}
	for _, tool := range RequiredTools {
		h.Tools[tool] = available(tool)
		if !h.Tools[tool] {
			h.Status = HealthDegraded
		}
	}
	for _, tool := range OptionalTools {
		h.Tools[tool] = available(tool)
	}
	return h
}
