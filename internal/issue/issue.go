// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"maps"
	"slices"
	"strings"

	"github.com/charmbracelet/glamour"
)

const (
	UnreadableModuleId Id = iota + 1
	PolicyViolationId
	InstantiationFailureId
	ModsDirUnavailableId
	ConfigLoadFailedId
	PolicyInvalidId
	AuditStoreFailedId
)

type (
	// Id identifies a catalog entry.
	Id int

	// MarkdownMsg is Markdown rendered to the terminal.
	MarkdownMsg string

	// Issue is a catalog entry with remediation guidance.
	Issue struct {
		id    Id
		mdMsg MarkdownMsg
	}
)

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

// Render renders the Markdown message with the given glamour style
// ("dark", "light", "notty", "auto" or a style file path).
func (i *Issue) Render(stylePath string) (string, error) {
	return render(strings.TrimSpace(string(i.mdMsg)), stylePath)
}

var (
	render = glamour.Render

	unreadableModuleIssue = &Issue{
		id: UnreadableModuleId,
		mdMsg: `
# A mod file could not be read

modgate rejects any file it cannot fully parse. The file was not loaded.

## Things you can try:
- Check that the file is a module image and not truncated
- Raise ` + "`mods.max_file_size`" + ` if the file is legitimately large
- Raise ` + "`mods.parse_timeout`" + ` if parsing is slow on this machine`,
	}

	policyViolationIssue = &Issue{
		id: PolicyViolationId,
		mdMsg: `
# A mod was blocked by the security policy

The mod references a type or method on the denylist. It was not loaded.

## Things you can try:
- Run ` + "`modgate scan <file>`" + ` to see every reason
- Run ` + "`modgate policy`" + ` to inspect the effective denylist
- Ask the mod author to remove the dangerous API usage`,
	}

	instantiationFailureIssue = &Issue{
		id: InstantiationFailureId,
		mdMsg: `
# A mod could not be created

The file passed the security scan but one of its mod types cannot be
created. The other types in the file are unaffected.

## Common causes:
- A type listed in ` + "`exports`" + ` is missing or does not provide the mod members
- The mod type has no public parameterless constructor
- The constructor failed during initialization
- The mod reports an empty identifier`,
	}

	modsDirUnavailableIssue = &Issue{
		id: ModsDirUnavailableId,
		mdMsg: `
# The mods directory is not available

modgate could not create or list the mods directory.

## Things you can try:
- Check the directory permissions
- Point ` + "`mods.dir`" + ` at a directory you own`,
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# The configuration could not be loaded

## Things you can try:
- Check the CUE syntax of your config file
- Remove unknown keys; the schema is closed
- Run with ` + "`--config`" + ` pointing at a known good file`,
	}

	policyInvalidIssue = &Issue{
		id: PolicyInvalidId,
		mdMsg: `
# The security policy is invalid

A policy entry is empty or malformed, or the policy file has an unknown key.

## Things you can try:
- Type entries must be full names such as ` + "`System.IO.File`" + `
- Namespace entries must end with a dot, such as ` + "`System.IO.`" + `
- Method entries must be bare method names`,
	}

	auditStoreFailedIssue = &Issue{
		id: AuditStoreFailedId,
		mdMsg: `
# The audit store is not available

## Things you can try:
- Check that ` + "`audit.path`" + ` is writable
- Disable auditing with ` + "`audit.enabled: false`",
	}

	issues = map[Id]*Issue{
		unreadableModuleIssue.Id():     unreadableModuleIssue,
		policyViolationIssue.Id():      policyViolationIssue,
		instantiationFailureIssue.Id(): instantiationFailureIssue,
		modsDirUnavailableIssue.Id():   modsDirUnavailableIssue,
		configLoadFailedIssue.Id():     configLoadFailedIssue,
		policyInvalidIssue.Id():        policyInvalidIssue,
		auditStoreFailedIssue.Id():     auditStoreFailedIssue,
	}
)

// Values returns all catalog entries ordered by Id.
func Values() []*Issue {
	return slices.SortedFunc(maps.Values(issues), func(a, b *Issue) int {
		return int(a.id) - int(b.id)
	})
}

// Get returns the catalog entry for id, or nil.
func Get(id Id) *Issue {
	return issues[id]
}
