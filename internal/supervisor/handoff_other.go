//go:build !unix

package supervisor

// handoff on platforms without process-replace semantics: run the primary
// command as a child, forward termination signals, and propagate its exit
// status verbatim via ExitStatusError.
func handoff(argv []string) error {
	return runAsChild(argv)
}
