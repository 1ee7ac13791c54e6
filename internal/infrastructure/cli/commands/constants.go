package commands

// Error messages
const (
	ErrConfigLoaderUnavailable  = "config loader unavailable"
	ErrDoctorServiceUnavailable = "doctor service unavailable"
	ErrHistoryStoreUnavailable  = "history store unavailable"
	ErrBuildServiceUnavailable  = "build service unavailable"
	ErrQueryRequired            = "--query required"
)

// Success messages
const (
	MsgConfigurationValid = "Configuration valid"
	MsgNoHistoryRecorded  = "No builds recorded yet."
)
