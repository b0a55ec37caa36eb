package probe

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/malcong/controle/internal/adapters/render"
	"github.com/malcong/controle/internal/domain/chartdata"
)

// WriteReport prints outcome counts, latency and the step-response table of
// the last successful run.
func WriteReport(w io.Writer, stats *Stats) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintf(tw, "Runs\t%d\n", stats.Runs)
	fmt.Fprintf(tw, "Successful\t%d\n", stats.Successful)
	fmt.Fprintf(tw, "Validation errors\t%d\n", stats.Validation)
	fmt.Fprintf(tw, "Rejected\t%d\n", stats.Rejected)
	fmt.Fprintf(tw, "Transport errors\t%d\n", stats.Transport)
	fmt.Fprintf(tw, "Latency min/avg/max\t%s / %s / %s\n", stats.MinLatency, stats.AvgLatency(), stats.MaxLatency)
	fmt.Fprintf(tw, "Duration\t%s\n", stats.Duration)
	if stats.LastError != "" {
		fmt.Fprintf(tw, "Last error\t%s\n", stats.LastError)
	}

	if res := stats.LastResult; res != nil {
		fmt.Fprintln(tw)
		if res.TransferFunction != "" {
			fmt.Fprintf(tw, "Transfer function\t%s\n", res.TransferFunction)
		}
		fmt.Fprintf(tw, "Schema\t%s\n", res.Version)
		fmt.Fprintln(tw)
		fmt.Fprintln(tw, "Step Response Characteristics\t")
		for _, m := range res.StepInfo.Metrics(res.Version) {
			fmt.Fprintf(tw, "  %s\t%s\n", m.Label, m.Display())
		}
	}
	return tw.Flush()
}

// WriteCharts renders every non-empty chart of the last successful run into
// dir as <kind>.svg and returns the written paths.
func WriteCharts(dir string, stats *Stats, renderer *render.Renderer) ([]string, error) {
	if stats.LastResult == nil {
		return nil, nil
	}
	if err := os.MkdirAll(dir, directoryPermission); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}
	charts := chartdata.Build(*stats.LastResult)

	var written []string
	for _, kind := range chartdata.Kinds {
		data := charts.Get(kind)
		if data.Empty() {
			continue
		}
		path := filepath.Join(dir, string(kind)+".svg")
		if err := writeChart(path, string(kind), data, renderer); err != nil {
			return written, err
		}
		written = append(written, path)
	}
	return written, nil
}

func writeChart(path, title string, data chartdata.ChartData, renderer *render.Renderer) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, svgFilePermission)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := renderer.SVG(f, title, data); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to render %s: %w", path, err)
	}
	return f.Close()
}
