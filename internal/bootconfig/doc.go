// Package bootconfig loads the process-level settings the kernel needs
// before it can open a ConfigTree at all: the root directory, platform
// provisioning flags, the default component user, and the handful of
// environment variables the process itself consumes (as opposed to
// component-level settings, which live in the ConfigTree proper).
//
// Settings layer in increasing precedence: built-in defaults, an optional
// YAML settings file, a narrow allowlist of environment variables, and
// finally explicit Options (the parsed CLI flags), applied last so a flag
// always wins over everything else.
package bootconfig
