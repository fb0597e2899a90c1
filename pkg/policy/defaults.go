// SPDX-License-Identifier: MPL-2.0

package policy

// DefaultBanAllInNamespace is the default enforcement mode.
const DefaultBanAllInNamespace = true

// DefaultNamespaces returns the default dangerous namespace prefixes.
func DefaultNamespaces() []string {
	return []string{
		"System.IO.",
		"System.Net.",
		"System.Reflection.Emit.",
		"System.Runtime.InteropServices.",
		"System.Security.AccessControl.",
		"System.Management.",
		"System.IO.IsolatedStorage.",
	}
}

// DefaultTypes returns the default exact dangerous type names.
func DefaultTypes() []string {
	return []string{
		"System.Diagnostics.Process",
		"System.Reflection.Assembly",
	}
}

// DefaultMethods returns the default dangerous method simple names.
func DefaultMethods() []string {
	return []string{
		// filesystem
		"Delete", "Move", "CreateDirectory", "Copy",
		"AppendAllText", "WriteAllBytes", "WriteAllText",
		"SetAccessControl", "AddAccessRule", "RemoveAccessRule", "SetAccessRule", "GetAccessControl",
		"Open", "Create",
		// process
		"Start", "Kill", "GetProcesses",
		// reflection
		"Load", "LoadFrom", "LoadFile", "GetExecutingAssembly", "Invoke", "CreateInstance",
		// network
		"Connect", "Bind", "Listen", "Send", "Receive", "GetResponse", "DownloadFile", "UploadFile",
		// interop
		"GetDelegateForFunctionPointer", "PtrToStructure", "StructureToPtr",
		".ctor",
	}
}

// Default returns the default policy.
func Default() *Policy {
	p, err := New(
		WithTypes(DefaultTypes()...),
		WithNamespaces(DefaultNamespaces()...),
		WithMethods(DefaultMethods()...),
		WithBanAllInNamespace(DefaultBanAllInNamespace),
	)
	if err != nil {
		panic("policy: invalid defaults: " + err.Error())
	}
	return p
}
