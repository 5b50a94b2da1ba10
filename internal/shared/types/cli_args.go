package types

// CLIArgs holds the parsed command-line arguments.
type CLIArgs struct {
	ConfigFile       string
	LogGroupName     string
	Bucket           string
	LookbackHours    int
	TimeWindowMins   int
	AllocationMethod string
	AutoSelect       bool
	Schedule         bool
	DryRun           bool
	Verbose          bool
}
