// Package template defines document templates, their YAML encoding, the
// builtin set shipped with the binary, and loading of operator templates.
package template
