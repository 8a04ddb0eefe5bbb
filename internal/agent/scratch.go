package agent

import (
	"github.com/sells-group/agent-cli/internal/fiscal"
	"github.com/sells-group/agent-cli/internal/model"
)

// Scratchpad accumulates pipeline stage results across tool calls within a
// single invocation. A later call may omit an argument that an earlier
// stage already produced; handlers read the most recent value here instead.
// It is invocation-scoped and passed explicitly to every handler, never
// shared between invocations.
type Scratchpad struct {
	// Prompt is the raw user request, available to handlers that infer
	// missing arguments from free text.
	Prompt string

	OCRText    string
	Fields     *fiscal.Fields
	Report     *fiscal.Report
	SaveResult *model.SaveResult
}
