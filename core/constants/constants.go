package constants

const (
	Version = "v0.3.0"
)
