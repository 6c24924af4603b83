package model

import "time"

// Shared defaults used by the shell, the API server and the loader.
const (
	DefaultPrompt       = ">>> "
	DefaultMaxLineSize  = 1024 * 1024 // 1MB
	DefaultAPIAddr      = "127.0.0.1:3000"
	DefaultQueryTimeout = 30 * time.Second
	DefaultServiceName  = "etl-validation"
)
