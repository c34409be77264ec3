package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// newChartCmd renders an NDJSON run file to an HTML file carrying the same
// "prepared chart data" blob the live dashboard's `complete` event uses
// (meta+summary, embedded as JSON) — the chart-rendering pipeline itself
// (the actual JS charting library, the visual layout) is an out-of-scope
// external collaborator per spec.md §2; this only prepares the data it
// would consume.
func newChartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chart IN [OUT]",
		Short: "Render an NDJSON run file to a self-contained HTML chart data page",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := args[0]
			out := in + ".html"
			if len(args) == 2 {
				out = args[1]
			}
			return renderChart(in, out)
		},
	}
}

func renderChart(in, out string) error {
	rf, err := readRunFile(in)
	if err != nil {
		return withExitCode(err, 1)
	}
	prepared := map[string]interface{}{"meta": rf.Meta, "summary": rf.Summary}
	data, err := json.Marshal(prepared)
	if err != nil {
		return withExitCode(fmt.Errorf("marshaling chart data: %w", err), 1)
	}
	page := fmt.Sprintf(chartHTMLTemplate, data)
	if err := os.WriteFile(out, []byte(page), 0o644); err != nil {
		return withExitCode(fmt.Errorf("writing chart file: %w", err), 1)
	}
	fmt.Printf("wrote %s\n", out)
	return nil
}

const chartHTMLTemplate = `<!DOCTYPE html>
<html>
<head><title>mcpstress chart</title></head>
<body>
<script id="mcpstress-data" type="application/json">%s</script>
<pre id="summary"></pre>
<script>
document.getElementById("summary").textContent =
  JSON.stringify(JSON.parse(document.getElementById("mcpstress-data").textContent).summary, null, 2);
</script>
</body>
</html>
`
