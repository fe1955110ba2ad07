// Package activator implements deployment activation: applying a new
// configuration (and, where required, a new runtime distribution) to a
// running core.
//
// Two strategies exist. The default strategy swaps ConfigTree state in
// place and re-runs the affected services' lifecycle state machines; it
// never requires a process restart. The kernel-update strategy is used
// when the deployment ships a new runtime binary or recipe bootstrap
// tasks the current process image cannot execute itself: it stages a new
// launch directory under alts/, records the deployment as pending, and
// requests a process exit so an external loader re-launches into the new
// distribution. The relaunched process runs the bootstrap tasks
// (ResumeBootstrap), recording progress so a crash mid-sequence resumes
// rather than re-running from the start.
//
// Every crash point in the kernel-update path leaves the alts/ directory
// in one of a small number of recognized layouts; ResolveLaunchTarget
// implements the recovery decision table a process consults at startup to
// decide which distribution to launch and whether a pending flip must be
// completed first.
package activator
