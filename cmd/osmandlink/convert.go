package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"osmandlink/pkg/action"
	"osmandlink/pkg/compose"
	"osmandlink/pkg/config"
	"osmandlink/pkg/field"
	"osmandlink/pkg/picker"
	"osmandlink/pkg/tracker"
	"osmandlink/pkg/trigger"
)

var (
	convertZone       string
	convertPolicy     string
	convertSingleLine bool
	convertNoClip     bool
)

var (
	okStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#8BC34A"))
	failStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#E57373")).Bold(true)
)

var convertCmd = &cobra.Command{
	Use:   "convert [text...]",
	Short: "Convert text in the terminal as if it were a focused form field",
	Long: `convert puts the text into an in-memory field and runs one action on it.
With no text, it asks for an address on stderr. The final field text is
printed to stdout.`,
	Example: `  osmandlink convert "Brandenburger Tor, Berlin"
  osmandlink convert --zone left -- 52.5163,13.3777
  osmandlink convert --policy all --single-line "Dinner at Luigi's"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		tr := tracker.New()
		geo, closeGeo := newGeocoder(cmd.Context(), appCfg, tr)
		defer closeGeo()

		var clip field.Clipboard = field.SystemClipboard{}
		if convertNoClip {
			clip = nil
		}

		t := &terminalHost{
			in:     bufio.NewReader(cmd.InOrStdin()),
			errOut: cmd.ErrOrStderr(),
		}
		out, err := runConvert(cmd.Context(), appCfg, convertOptions{
			Text:       strings.Join(args, " "),
			Zone:       convertZone,
			Policy:     convertPolicy,
			SingleLine: convertSingleLine,
		}, action.Deps{
			Geocoder:  geo,
			Chooser:   &picker.TUI{Input: os.Stdin, Output: cmd.ErrOrStderr()},
			Prompter:  t,
			Notifier:  t,
			Clipboard: clip,
			Tracker:   tr,
		})
		if out != "" {
			fmt.Fprintln(cmd.OutOrStdout(), out)
		}
		return err
	},
}

func init() {
	convertCmd.Flags().StringVar(&convertZone, "zone", "", `act like a click on the "left" or "right" half of the control`)
	convertCmd.Flags().StringVar(&convertPolicy, "policy", "", "append policy: none, link, address_and_link, all (overrides --zone)")
	convertCmd.Flags().BoolVar(&convertSingleLine, "single-line", false, "treat the field as a single-line <input>")
	convertCmd.Flags().BoolVar(&convertNoClip, "no-clipboard", false, "never touch the system clipboard")
}

type convertOptions struct {
	Text       string
	Zone       string
	Policy     string
	SingleLine bool
}

// runConvert runs one action on an in-memory field holding opts.Text and
// returns the field content afterwards (or the clipboard text when the
// field could not be written).
func runConvert(ctx context.Context, cfg *config.Config, opts convertOptions, deps action.Deps) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	el := field.NewMemoryInput(opts.Text, !opts.SingleLine)
	target := field.NewPlain(el)
	deps.Locator = action.LocatorFunc(func() (field.Target, bool) { return target, true })

	orch := action.New(cfg, deps)

	req, err := convertRequest(orch, cfg, opts)
	if err != nil {
		return "", err
	}

	res := orch.Run(ctx, req)
	switch res.Outcome {
	case action.OutcomeWritten:
		return el.Value(), nil
	case action.OutcomeClipboard:
		return res.Text, nil
	case action.OutcomeFailed:
		return "", res.Err
	}
	return "", nil
}

func convertRequest(orch *action.Orchestrator, cfg *config.Config, opts convertOptions) (action.Request, error) {
	if opts.Policy != "" {
		p, err := compose.ParsePolicy(opts.Policy)
		if err != nil {
			return action.Request{}, err
		}
		return action.Request{Policy: p}, nil
	}
	switch opts.Zone {
	case "":
		return action.Request{Policy: cfg.Append.Hotkey}, nil
	case string(trigger.ZoneLeft), string(trigger.ZoneRight):
		return orch.ForZone(trigger.Zone(opts.Zone)), nil
	}
	return action.Request{}, fmt.Errorf("invalid zone %q (want left or right)", opts.Zone)
}

// terminalHost asks for input and shows notices on stderr.
type terminalHost struct {
	in     *bufio.Reader
	errOut io.Writer
}

func (t *terminalHost) PromptText(ctx context.Context, message string) (string, bool, error) {
	fmt.Fprint(t.errOut, message+" ")
	line, err := t.in.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", false, err
	}
	line = strings.TrimSpace(line)
	return line, line != "", nil
}

func (t *terminalHost) Notify(n action.Notice) {
	style := okStyle
	if !n.OK {
		style = failStyle
	}
	fmt.Fprintln(t.errOut, style.Render(n.Message))
}
