package classify

import (
	"encoding/json"
	"fmt"
	"io"
	"log"

	"github.com/provisor/provisor/model/record"
)

// Type classification dimension names accepted by PrintStatistics.
const (
	DimensionKind         = "kind"
	DimensionProcessClass = "process_class"
	DimensionProcessLabel = "process_label"
	DimensionProcessType  = "process_type"
)

// PrintStatistics pretty-prints classification statistics to w. An invalid
// dimension falls back to process_label with a warning.
func (c *Classifier) PrintStatistics(w io.Writer, title string, withLegend bool, dimension string) {
	if title != "" {
		title = "\n" + title
	}
	fmt.Fprintf(w, "Process classification statistics%s:\n", title)

	fmt.Fprintln(w, "----------------------------------------\nClassification by type:")
	counts := c.typeCounts(dimension)
	if counts != nil {
		data, _ := json.MarshalIndent(counts, "", "    ")
		fmt.Fprintln(w, string(data))
	}

	fmt.Fprintln(w, "----------------------------------------\nClassification by process state:")
	if withLegend {
		fmt.Fprint(w, record.Legend)
	}
	fmt.Fprintf(w, "\nTotal terminated: %d.\n", c.Count(record.States(record.Terminated)...))
	fmt.Fprintf(w, "Total not terminated: %d.\n", c.Count(record.States(record.NotTerminated)...))

	fmt.Fprintln(w, "\nFull classification by process state:")
	stateCounts := make(map[string]interface{}, len(c.byState)+1)
	for state, bucket := range c.byState {
		stateCounts[string(state)] = len(bucket)
	}
	if len(c.finished) > 0 {
		finishedCounts := make(map[string]int, len(c.finished))
		for status, bucket := range c.finished {
			finishedCounts[fmt.Sprintf("%d", status)] = len(bucket)
		}
		stateCounts[string(record.StateFinished)] = finishedCounts
	}
	data, _ := json.MarshalIndent(stateCounts, "", "    ")
	fmt.Fprintln(w, string(data))
}

func (c *Classifier) typeCounts(dimension string) map[string]int {
	if c.byType == nil {
		return nil
	}
	switch dimension {
	case DimensionKind, DimensionProcessClass, DimensionProcessType, DimensionProcessLabel:
	default:
		log.Printf("Warning: selected type classification %q is invalid. Valid choices are: [%s %s %s %s]. Choosing %q instead.",
			dimension, DimensionKind, DimensionProcessClass, DimensionProcessLabel, DimensionProcessType, DimensionProcessLabel)
		dimension = DimensionProcessLabel
	}
	out := make(map[string]int)
	switch dimension {
	case DimensionKind:
		for kind, bucket := range c.byType.Kind {
			out[string(kind)] = len(bucket)
		}
	case DimensionProcessClass:
		for class, bucket := range c.byType.ProcessClass {
			out[class] = len(bucket)
		}
	case DimensionProcessType:
		for processType, bucket := range c.byType.ProcessType {
			out[processType] = len(bucket)
		}
	default:
		for label, bucket := range c.byType.ProcessLabel {
			out[label] = len(bucket)
		}
	}
	return out
}
