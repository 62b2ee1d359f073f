package report

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/arthur-debert/dotup/pkg/errors"
	"github.com/arthur-debert/dotup/pkg/executor"
	"github.com/arthur-debert/dotup/pkg/logging"
	"github.com/arthur-debert/dotup/pkg/types"
	"github.com/pterm/pterm"
	"gopkg.in/yaml.v3"
)

// Renderer writes reports, plans and errors in one format
type Renderer struct {
	w      io.Writer
	format Format
}

// NewRenderer creates a renderer for a resolved format. FormatAuto renders
// as plain text; call Format.Resolve first to honor the terminal.
func NewRenderer(w io.Writer, format Format) *Renderer {
	if format == FormatAuto {
		format = FormatText
	}
	return &Renderer{w: w, format: format}
}

// Report renders a finished run
func (r *Renderer) Report(report *types.RunReport) error {
	logger := logging.GetLogger("report")
	logger.Debug().
		Str("format", r.format.String()).
		Int("tasks", len(report.Tasks)).
		Msg("Rendering run report")

	switch r.format {
	case FormatJSON:
		return r.encodeJSON(report)
	case FormatYAML:
		return r.encodeYAML(report)
	default:
		out, err := renderReport(report)
		if err != nil {
			return err
		}
		return r.writeText(out)
	}
}

// Plan renders link plans produced by executor.Preview
func (r *Renderer) Plan(plans []executor.GroupPlan) error {
	if plans == nil {
		plans = []executor.GroupPlan{}
	}
	switch r.format {
	case FormatJSON:
		return r.encodeJSON(map[string]interface{}{"groups": plans})
	case FormatYAML:
		return r.encodeYAML(map[string]interface{}{"groups": plans})
	default:
		return r.writeText(renderPlan(plans))
	}
}

// Error renders an error that ended the command before a report existed
func (r *Renderer) Error(err error) error {
	switch r.format {
	case FormatJSON:
		return r.encodeJSON(errorDocument(err))
	case FormatYAML:
		return r.encodeYAML(errorDocument(err))
	default:
		return r.writeText(renderError(err))
	}
}

func errorDocument(err error) map[string]interface{} {
	return map[string]interface{}{
		"error": err.Error(),
		"code":  string(errors.GetErrorCode(err)),
	}
}

func (r *Renderer) writeText(out string) error {
	if r.format != FormatTerminal {
		out = pterm.RemoveColorFromString(out)
	}
	_, err := fmt.Fprintln(r.w, out)
	return err
}

func (r *Renderer) encodeJSON(v interface{}) error {
	encoder := json.NewEncoder(r.w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func (r *Renderer) encodeYAML(v interface{}) error {
	encoder := yaml.NewEncoder(r.w)
	encoder.SetIndent(2)
	if err := encoder.Encode(v); err != nil {
		return err
	}
	return encoder.Close()
}
