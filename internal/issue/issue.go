// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"maps"
	"slices"
	"strings"

	"github.com/charmbracelet/glamour"
)

type Id int

const (
	ProjectNotFoundId Id = iota + 1
	AlreadyInitializedId
	ConfigInvalidId
	EntrypointNotFoundId
	EnvironmentMissingId
	EnvironmentCommandFailedId
	PackageIntegrityId
	ArtifactExistsId
	InvocationFailedId
	InvalidInputId
	ConfigLoadFailedId
	OrchestratorUnavailableId
	PermissionDeniedId
)

type MarkdownMsg string

type HttpLink string

type Issue struct {
	id       Id
	mdMsg    MarkdownMsg
	docLinks []HttpLink
	extLinks []HttpLink
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

func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

// Render renders the issue as terminal Markdown with the given glamour style.
func (i *Issue) Render(stylePath string) (string, error) {
	var sb strings.Builder
	sb.WriteString(string(i.mdMsg))
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		sb.WriteString("\n\n## See also\n")
		for _, link := range slices.Concat(i.docLinks, i.extLinks) {
			sb.WriteString("- <" + string(link) + ">\n")
		}
	}
	return render(sb.String(), stylePath)
}

var (
	render = glamour.Render

	projectNotFoundIssue = &Issue{
		id: ProjectNotFoundId,
		mdMsg: `
# No project descriptor found

bv looks for ` + "`bvproject.yaml`" + ` in the current directory, or at the path given with ` + "`--config`" + `.

## Things you can try
- Scaffold a new project here:
~~~
$ bv init --name my-project
~~~
- Or point bv at an existing descriptor:
~~~
$ bv validate --config path/to/bvproject.yaml
~~~`,
	}

	alreadyInitializedIssue = &Issue{
		id: AlreadyInitializedId,
		mdMsg: `
# This directory already holds a project

` + "`bv init`" + ` never overwrites an existing ` + "`bvproject.yaml`" + `.

## Things you can try
- Run ` + "`bv validate`" + ` to check the existing project
- Initialize into a different directory with ` + "`--dir`",
	}

	configInvalidIssue = &Issue{
		id: ConfigInvalidId,
		mdMsg: `
# The project descriptor is invalid

Every problem found in ` + "`bvproject.yaml`" + ` is listed above.

## Rules
- ` + "`name`" + ` and ` + "`version`" + ` are required; the version must be SemVer (` + "`1.2.3`" + `, ` + "`1.2.3-rc.1`" + `)
- exactly one entrypoint must have ` + "`default: true`" + `
- entrypoint commands use the ` + "`module:Function`" + ` form
- ` + "`workdir`" + ` must be a relative directory that exists`,
	}

	entrypointNotFoundIssue = &Issue{
		id: EntrypointNotFoundId,
		mdMsg: `
# Entrypoint not found

## Things you can try
- List the configured entrypoints:
~~~
$ bv entry list
~~~
- Mark one as the default:
~~~
$ bv entry set-default main
~~~`,
	}

	environmentMissingIssue = &Issue{
		id: EnvironmentMissingId,
		mdMsg: `
# The project environment does not exist

Builds record the environment's packages in ` + "`environment.lock`" + `, so it must exist first.

## Things you can try
~~~
$ bv env create
$ bv env install
~~~`,
	}

	environmentCommandFailedIssue = &Issue{
		id: EnvironmentCommandFailedId,
		mdMsg: `
# A toolchain command failed

The go toolchain returned an error while managing the project environment.
Its stderr is shown above.

## Things you can try
- Check that the base toolchain runs: ` + "`go version`" + `
- Set ` + "`interpreter`" + ` in the bv settings to a working go binary
- Re-run with ` + "`--verbose`" + ` to see each command`,
	}

	packageIntegrityIssue = &Issue{
		id: PackageIntegrityId,
		mdMsg: `
# The package failed its integrity check

The archive's manifest, entry points or file digests do not match the project.

## Things you can try
- Rebuild the package from the current project state:
~~~
$ bv build
~~~
- Publish without an archive argument so bv builds a fresh one`,
	}

	artifactExistsIssue = &Issue{
		id: ArtifactExistsId,
		mdMsg: `
# The artifact is already published

Published versions are immutable unless replaced explicitly.

## Things you can try
- Bump to a new version (the default is a patch bump)
- Pass ` + "`--overwrite`" + ` to replace the existing artifact`,
	}

	invocationFailedIssue = &Issue{
		id: InvocationFailedId,
		mdMsg: `
# The entrypoint could not be invoked

Entrypoint functions must take either no parameters or one structured
input parameter, for example:

~~~go
func Main(input map[string]any) (map[string]any, error)
~~~

## Things you can try
- Declare the accepted input with ` + "`input: none`" + ` or ` + "`input: object`" + ` and run ` + "`bv validate`" + `
- Check that the module path in ` + "`command`" + ` points at an existing .go file`,
	}

	invalidInputIssue = &Issue{
		id: InvalidInputId,
		mdMsg: `
# The input file is not usable

` + "`--input`" + ` must name a JSON file holding an object. Comments and a
leading byte-order mark are tolerated; ` + "`null`" + ` is treated as ` + "`{}`" + `.`,
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load the bv settings

## Things you can try
- Check the CUE syntax of your settings file
- Show the effective settings and their source:
~~~
$ bv settings show
~~~`,
	}

	orchestratorUnavailableIssue = &Issue{
		id: OrchestratorUnavailableId,
		mdMsg: `
# The orchestrator could not be reached

## Things you can try
- Check ` + "`orchestrator.url`" + ` in ` + "`bvproject.yaml`" + ` or the bv settings
- Make sure the access token variable (default ` + "`BV_ACCESS_TOKEN`" + `) is set`,
	}

	permissionDeniedIssue = &Issue{
		id: PermissionDeniedId,
		mdMsg: `
# Permission denied

bv could not write to a project, environment or publish directory.

## Things you can try
- Check the ownership of the directory
- Choose another ` + "`publish_dir`" + ` in the bv settings`,
	}

	issues = map[Id]*Issue{
		projectNotFoundIssue.Id():          projectNotFoundIssue,
		alreadyInitializedIssue.Id():       alreadyInitializedIssue,
		configInvalidIssue.Id():            configInvalidIssue,
		entrypointNotFoundIssue.Id():       entrypointNotFoundIssue,
		environmentMissingIssue.Id():       environmentMissingIssue,
		environmentCommandFailedIssue.Id(): environmentCommandFailedIssue,
		packageIntegrityIssue.Id():         packageIntegrityIssue,
		artifactExistsIssue.Id():           artifactExistsIssue,
		invocationFailedIssue.Id():         invocationFailedIssue,
		invalidInputIssue.Id():             invalidInputIssue,
		configLoadFailedIssue.Id():         configLoadFailedIssue,
		orchestratorUnavailableIssue.Id():  orchestratorUnavailableIssue,
		permissionDeniedIssue.Id():         permissionDeniedIssue,
	}
)

// Values returns every catalogued issue ordered by id.
func Values() []*Issue {
	return slices.SortedFunc(maps.Values(issues), func(a, b *Issue) int { return int(a.id - b.id) })
}

func Get(id Id) *Issue {
	return issues[id]
}
