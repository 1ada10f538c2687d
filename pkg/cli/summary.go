package cli

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/m-mizutani/pushdeploy/pkg/domain/model"
)

var (
	colorOK   = color.New(color.FgGreen, color.Bold)
	colorSkip = color.New(color.FgYellow)
	colorFail = color.New(color.FgRed, color.Bold)
)

// printSummary writes the outcome of a run for the pusher
func printSummary(w io.Writer, result *model.PipelineResult, runErr error) {
	if result == nil {
		return
	}

	if result.LocalImage != nil {
		fmt.Fprintf(w, "%s built %s (%s)\n", colorOK.Sprint("✓"), result.LocalImage, result.Variant)
	}
	if result.RemoteImage != nil {
		fmt.Fprintf(w, "%s pushed %s\n", colorOK.Sprint("✓"), result.RemoteImage)
	}
	if result.Committed {
		fmt.Fprintf(w, "%s updated GitOps manifest\n", colorOK.Sprint("✓"))
	}
	if result.Notified {
		fmt.Fprintf(w, "%s requested sync\n", colorOK.Sprint("✓"))
	}

	switch {
	case runErr != nil:
		fmt.Fprintf(w, "%s deploy of %s failed: %v\n", colorFail.Sprint("✗"), result.Repository, runErr)
	case result.SkippedAt != "":
		fmt.Fprintf(w, "%s stopped before %s: %s\n", colorSkip.Sprint("-"), result.SkippedAt, result.SkipReason)
	}
}
