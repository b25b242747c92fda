package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

func writeOut(cmd *cobra.Command, app *App, v any) error {
	return writeJSON(cmd.OutOrStdout(), v, app.PrettyJSON)
}

func writeJSON(w io.Writer, v any, pretty bool) error {
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}

// stderrNotifier routes engine notifications to stderr so stdout stays pure
// JSON for pipelines. The undo affordance is meaningless in a one-shot
// command, so the message is printed and the callback dropped.
type stderrNotifier struct{ w io.Writer }

func (n stderrNotifier) Success(msg string) { fmt.Fprintln(n.w, msg) }
func (n stderrNotifier) Error(msg string)   { fmt.Fprintln(n.w, msg) }
func (n stderrNotifier) Info(msg string)    { fmt.Fprintln(n.w, msg) }

func (n stderrNotifier) ShowWithUndo(msg string, undo func()) {
	fmt.Fprintln(n.w, msg)
}
