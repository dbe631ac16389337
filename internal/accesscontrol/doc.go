// Package accesscontrol gates privileged operations: a single transferable
// admin identity and the allow-list of protected contracts permitted to
// report flows.
package accesscontrol
