// Package formset exposes module-level metadata.
package formset

// Version is the formset release version. Overridable at build time via
// -ldflags "-X github.com/mesh-intelligence/formset/pkg/formset.Version=...".
var Version = "0.1.0"
