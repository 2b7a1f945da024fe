package ui

import (
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"

	"github.com/jmagar/mdimg/internal/model"
)

// RunErrorCount and RunWarningCount track errors/warnings during a run.
var RunErrorCount int
var RunWarningCount int

// ResetCounters zeroes the run counters.
func ResetCounters() {
	RunErrorCount = 0
	RunWarningCount = 0
}

// PrintSuccess prints a success message.
func PrintSuccess(msg string) {
	fmt.Printf("%s%s%s %s%s\n", ColorGreen, SymbolCheck, ColorReset, msg, ColorReset)
}

// PrintError prints an error message and increments the error counter.
func PrintError(msg string) {
	RunErrorCount++
	fmt.Printf("%s%s%s %s%s\n", ColorRed, SymbolCross, ColorReset, msg, ColorReset)
}

// PrintInfo prints an info message.
func PrintInfo(msg string) {
	fmt.Printf("%s%s%s %s%s\n", ColorBlue, SymbolInfo, ColorReset, msg, ColorReset)
}

// PrintWarning prints a warning message and increments the warning counter.
func PrintWarning(msg string) {
	RunWarningCount++
	fmt.Printf("%s%s%s %s%s\n", ColorYellow, SymbolWarning, ColorReset, msg, ColorReset)
}

// PrintUpload prints an upload message.
func PrintUpload(msg string) {
	fmt.Printf("%s%s%s %s%s\n", ColorPurple, SymbolUpload, ColorReset, msg, ColorReset)
}

// PrintSkip prints a message for a reference left as is.
func PrintSkip(msg string) {
	fmt.Printf("%s%s%s %s%s\n", ColorCyan, SymbolSkip, ColorReset, msg, ColorReset)
}

// DescribeSize formats a byte count for upload lines; negative means unknown.
func DescribeSize(size int64) string {
	if size < 0 {
		return "unknown size"
	}
	return humanize.Bytes(uint64(size))
}

// OutcomeColor returns the color used for an outcome status.
func OutcomeColor(status model.OutcomeStatus) string {
	switch status {
	case model.OutcomeUploaded:
		return ColorGreen
	case model.OutcomeFailed:
		return ColorRed
	case model.OutcomeSkippedCode:
		return ColorCyan
	default:
		return ColorBlue
	}
}

// PrintOutcomeSummary renders one table row per image reference followed by totals.
func PrintOutcomeSummary(outcomes []model.ImageOutcome) {
	if len(outcomes) == 0 {
		PrintInfo("No image references found")
		return
	}
	table := NewTable([]TableColumn{
		{Header: "#", Width: 3, Align: "right"},
		{Header: "Status", Width: 8},
		{Header: "Reference", Width: 36},
		{Header: "Result", Width: 40},
	})
	counts := map[model.OutcomeStatus]int{}
	for i, o := range outcomes {
		counts[o.Status]++
		result := o.URL
		if o.Err != nil {
			result = o.Err.Error()
			var upErr *model.UploadError
			if errors.As(o.Err, &upErr) {
				result = upErr.Kind.String() + ": " + upErr.Detail()
			}
		}
		table.AddRow(
			fmt.Sprintf("%d", i+1),
			OutcomeColor(o.Status)+o.Status.String()+ColorReset,
			o.Ref.Path,
			result,
		)
	}
	PrintSection("Images")
	table.Print()
	fmt.Println()
	PrintKeyValue("Uploaded", fmt.Sprintf("%d", counts[model.OutcomeUploaded]), ColorGreen)
	PrintKeyValue("Already remote", fmt.Sprintf("%d", counts[model.OutcomeRemote]), ColorBlue)
	if n := counts[model.OutcomeSkippedCode]; n > 0 {
		PrintKeyValue("Inside code", fmt.Sprintf("%d", n), ColorCyan)
	}
	PrintKeyValue("Failed", fmt.Sprintf("%d", counts[model.OutcomeFailed]), ColorRed)
}

// PrintUploadResult prints every link format returned for a single upload.
func PrintUploadResult(res model.UploadResult) {
	PrintKeyValue("URL", res.URL, ColorGreen)
	if res.Markdown != "" {
		PrintKeyValue("Markdown", res.Markdown, "")
	}
	if res.HTML != "" {
		PrintKeyValue("HTML", res.HTML, "")
	}
	if res.DeleteURL != "" {
		PrintKeyValue("Delete URL", res.DeleteURL, ColorYellow)
	}
}
