// SPDX-License-Identifier: MPL-2.0

package container

// DefaultImageAlias is the image alias used when none is configured.
const DefaultImageAlias = "ubuntu22"

// imageAliases maps short build-image names to full image references.
// Unknown names pass through unchanged so any registry reference works.
var imageAliases = map[string]string{
	"ubuntu22": "ubuntu:22.04",
	"rocky8":   "rockylinux:8",
	"rocky9":   "rockylinux:9",
}

// ResolveImage resolves an image alias to a full image reference. An empty
// name resolves to the default build image.
func ResolveImage(name string) string {
	if name == "" {
		name = DefaultImageAlias
	}
	if full, ok := imageAliases[name]; ok {
		return full
	}
	return name
}
