package types

// ConsoleInterface defines the user-facing console output surface used by
// the CLI harness. Pipeline components log through slog instead.
type ConsoleInterface interface {
	Print(a ...interface{})
	Printf(format string, a ...interface{})
	Println(a ...interface{})

	LogInfo(format string, a ...interface{})
	LogWarning(format string, a ...interface{})
	LogError(format string, a ...interface{})
	LogSuccess(format string, a ...interface{})

	Status(message string) StatusHandle
	CreateTable() TableInterface
}

// StatusHandle updates a transient status message.
type StatusHandle interface {
	Update(message string)
	Stop()
}

// TableInterface creates and renders a display table.
type TableInterface interface {
	AddColumn(name string, options ...interface{})
	AddRow(cells ...interface{})
	Render() string
}
