package cli

import (
	"fmt"

	"github.com/fatih/color"

	"github.com/retailops/finops-correlator/pkg/version"
)

// displayWelcomeBanner prints the startup banner with version info.
func displayWelcomeBanner(versionStr string) {
	banner := `
   ___ _       ___            ___                     _      _
  / __(_)_ _  / _ \ _ __ ___ / __\___  _ __ _ __ ___| | __ _| |_ ___  _ __
 / _\ | | ' \| | | | '_ \/ __| |  / _ \| '__| '__/ _ \ |/ _' | __/ _ \| '__|
/ /   | | || | |_| | |_) \__ \ |_| (_) | |  | | |  __/ | (_| | || (_) | |
\/    |_|_||_|\___/| .__/|___/\____\___/|_|  |_|  \___|_|\__,_|\__\___/|_|
                   |_|
`
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	blue := color.New(color.FgBlue, color.Bold).SprintFunc()

	fmt.Println(cyan(banner))
	fmt.Println(blue(fmt.Sprintf("FinOps Correlator (v%s)", version.FormatVersion())))
}
