package console

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/pterm/pterm"

	"github.com/retailops/finops-correlator/internal/shared/types"
)

// Console is a pterm-backed implementation of ConsoleInterface.
type Console struct{}

// NewConsole creates a new Console.
func NewConsole() *Console {
	return &Console{}
}

// Predefined colors for consistent output.
var (
	BrightMagenta = color.New(color.FgMagenta, color.Bold).SprintFunc()
	BrightGreen   = color.New(color.FgGreen, color.Bold).SprintFunc()
	BrightYellow  = color.New(color.FgYellow, color.Bold).SprintFunc()
	BrightRed     = color.New(color.FgRed, color.Bold).SprintFunc()
	BrightCyan    = color.New(color.FgCyan, color.Bold).SprintFunc()
)

func (c *Console) Print(a ...interface{}) {
	fmt.Print(a...)
}

func (c *Console) Printf(format string, a ...interface{}) {
	fmt.Printf(format, a...)
}

func (c *Console) Println(a ...interface{}) {
	fmt.Println(a...)
}

func (c *Console) LogInfo(format string, a ...interface{}) {
	pterm.Info.Printfln(format, a...)
}

func (c *Console) LogWarning(format string, a ...interface{}) {
	pterm.Warning.Printfln(format, a...)
}

func (c *Console) LogError(format string, a ...interface{}) {
	pterm.Error.Printfln(format, a...)
}

func (c *Console) LogSuccess(format string, a ...interface{}) {
	pterm.Success.Printfln(format, a...)
}

// statusHandle wraps a pterm spinner.
type statusHandle struct {
	spinner *pterm.SpinnerPrinter
}

// Status starts a status spinner with the given message.
func (c *Console) Status(message string) types.StatusHandle {
	spinner, _ := pterm.DefaultSpinner.Start(message)
	return &statusHandle{spinner: spinner}
}

func (h *statusHandle) Update(message string) {
	if h.spinner != nil {
		h.spinner.UpdateText(message)
	}
}

func (h *statusHandle) Stop() {
	if h.spinner != nil {
		h.spinner.Stop()
	}
}

// table is a pterm table builder.
type table struct {
	columns []string
	rows    [][]string
}

// CreateTable creates a new display table.
func (c *Console) CreateTable() types.TableInterface {
	return &table{}
}

func (t *table) AddColumn(name string, options ...interface{}) {
	t.columns = append(t.columns, name)
}

func (t *table) AddRow(cells ...interface{}) {
	row := make([]string, len(cells))
	for i, cell := range cells {
		row[i] = fmt.Sprintf("%v", cell)
	}
	t.rows = append(t.rows, row)
}

func (t *table) Render() string {
	data := pterm.TableData{t.columns}
	for _, row := range t.rows {
		data = append(data, row)
	}

	rendered, err := pterm.DefaultTable.
		WithHasHeader(true).
		WithHeaderRowSeparator("-").
		WithData(data).
		Srender()
	if err != nil {
		var sb strings.Builder
		sb.WriteString(strings.Join(t.columns, " | "))
		sb.WriteString("\n")
		for _, row := range t.rows {
			sb.WriteString(strings.Join(row, " | "))
			sb.WriteString("\n")
		}
		return sb.String()
	}
	return rendered
}
