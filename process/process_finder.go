package process

// ProcessFinder defines operations for discovering processes
type ProcessFinder interface {
	// LookupProcessIDByName returns the PID of the single running process whose
	// image name equals name. It fails with ErrProcessNotFound when there is none
	// and ErrMultipleProcesses when the name is ambiguous.
	LookupProcessIDByName(name string) (ProcessID, error)
}

// SingleProcess reduces a lookup result to one PID.
func SingleProcess(matches []ProcessInfo) (ProcessID, error) {
	switch len(matches) {
	case 0:
		return 0, ErrProcessNotFound
	case 1:
		return matches[0].PID, nil
	default:
		return 0, ErrMultipleProcesses
	}
}
