package types

// RunMode controls which components a process starts.
type RunMode string

const (
	ModeLocal  RunMode = "local"  // API server with in-memory backends
	ModeServer RunMode = "server" // API server only
	ModeWorker RunMode = "worker" // run consumer only
)
