// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

type Id int

const (
	RecipesDirNotFoundId Id = iota + 1
	CondaNotFoundId
	ContainerEngineNotFoundId
	DependencyCycleId
	ConfigLoadFailedId
	ManifestInvalidId
)

type MarkdownMsg string

type HttpLink string

type Issue struct {
	id       Id          // ID used to lookup the issue
	mdMsg    MarkdownMsg // Markdown text that will be rendered
	docLinks []HttpLink  // external links that might be useful for the user
}

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

func (i *Issue) Render(stylePath string) (string, error) {
	extraMd := ""
	if len(i.docLinks) > 0 {
		extraMd += "\n\n## See also:\n"
		for _, link := range i.docLinks {
			extraMd += "- " + string(link) + "\n"
		}
	}
	return render(string(i.mdMsg)+extraMd, stylePath)
}

var (
	render = glamour.Render

	recipesDirNotFoundIssue = &Issue{
		id: RecipesDirNotFoundId,
		mdMsg: `
# No recipes directory found!

The recipes directory could not be read, so there is nothing to build.

## Things you can try:
- Point at your recipe tree explicitly:
~~~
$ vfxb build --recipes /path/to/recipes <name>
~~~

- Or set it once in ~/.config/vfxb/config.toml:
~~~toml
recipes_dir = "/path/to/recipes"
~~~

Each recipe is a subdirectory containing a ` + "`meta.yaml`" + ` file.`,
	}

	condaNotFoundIssue = &Issue{
		id: CondaNotFoundId,
		mdMsg: `
# conda-build not found!

Builds shell out to ` + "`conda build`" + `, which was not found on PATH.

## Things you can try:
- Install conda-build into your base environment:
~~~
$ conda install conda-build
~~~

- Or build inside a container where conda is preinstalled:
~~~
$ vfxb build --container <name>
~~~`,
		docLinks: []HttpLink{
			"https://docs.conda.io/projects/conda-build/",
		},
	}

	containerEngineNotFoundIssue = &Issue{
		id: ContainerEngineNotFoundId,
		mdMsg: `
# Container engine not found!

You asked for a containerized build but no container engine is available.

## Supported container engines:
- **Podman** (preferred, rootless-friendly)
- **Docker**

## Things you can try:
- Install Podman:
  - Linux: ` + "`sudo apt install podman`" + ` or ` + "`sudo dnf install podman`" + `
  - macOS: ` + "`brew install podman`" + `

- Install Docker: https://docs.docker.com/get-docker/

- Configure your preferred engine in ~/.config/vfxb/config.toml:
~~~toml
[container]
engine = "podman"
~~~`,
	}

	dependencyCycleIssue = &Issue{
		id: DependencyCycleId,
		mdMsg: `
# Dependency cycle detected!

Two or more recipes depend on each other, so no build order exists.

## Things you can try:
- Inspect the declared dependencies of the recipes in the reported cycle:
~~~
$ vfxb info <name>
~~~

- Remove or invert one of the host/run requirements so the graph is acyclic
- Remember that only dependencies naming other local recipes are tracked;
  channel-provided packages never participate in ordering`,
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Configuration could not be loaded!

The config file exists but could not be parsed or validated.

## Things you can try:
- Check the file for TOML syntax errors
- Compare against the effective defaults:
~~~
$ vfxb config show
~~~

- Environment variables use the ` + "`VFXB_`" + ` prefix, e.g. ` + "`VFXB_PLATFORM`" + `.`,
	}

	manifestInvalidIssue = &Issue{
		id: ManifestInvalidId,
		mdMsg: `
# Package manifest is invalid!

The manifest file failed schema validation.

## Things you can try:
- Validate and see the precise violations:
~~~
$ vfxb package validate <manifest>
~~~

- Generate a fresh skeleton to compare against:
~~~
$ vfxb package init --name mypackage --version 1.0.0
~~~

A manifest needs at least a name, a version and one component.`,
	}

	issues = map[Id]*Issue{
		RecipesDirNotFoundId:      recipesDirNotFoundIssue,
		CondaNotFoundId:           condaNotFoundIssue,
		ContainerEngineNotFoundId: containerEngineNotFoundIssue,
		DependencyCycleId:         dependencyCycleIssue,
		ConfigLoadFailedId:        configLoadFailedIssue,
		ManifestInvalidId:         manifestInvalidIssue,
	}
)

// Lookup returns the catalogued issue for id, or nil if unknown.
func Lookup(id Id) *Issue {
	return issues[id]
}

// All returns every catalogued issue, in no particular order.
func All() []*Issue {
	return maps.Values(issues)
}
