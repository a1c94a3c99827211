package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/1broseidon/floatkb/internal/floating"
	"github.com/1broseidon/floatkb/internal/ipc"
	"github.com/charmbracelet/lipgloss"
)

var (
	colorCyan   = lipgloss.Color("36")
	colorGreen  = lipgloss.Color("35")
	colorYellow = lipgloss.Color("220")
	colorGray   = lipgloss.Color("245")
)

var (
	styleTitle   = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	styleKey     = lipgloss.NewStyle().Foreground(colorGray).Width(14)
	styleValue   = lipgloss.NewStyle().Foreground(colorCyan)
	styleOn      = lipgloss.NewStyle().Foreground(colorGreen)
	styleOff     = lipgloss.NewStyle().Foreground(colorGray)
	styleWarning = lipgloss.NewStyle().Foreground(colorYellow)
)

type field struct {
	key   string
	value string
	flag  *bool
}

func overlayFields(st floating.Status) []field {
	g := st.Geometry
	fields := []field{
		{key: "shown", flag: &st.Shown},
		{key: "mode", value: st.Mode},
		{key: "variant", value: st.Variant},
		{key: "screen", value: fmt.Sprintf("%dx%d", st.ScreenWidth, st.ScreenHeight)},
		{key: "geometry", value: fmt.Sprintf("%dx%d+%d+%d", g.WidthPx, g.HeightPx, g.X, g.Y)},
		{key: "toggle", flag: &st.Toggle},
		{key: "docked", flag: &st.Docked},
		{key: "persistence", flag: &st.Persistence},
	}
	if st.Armed != "" {
		fields = append(fields, field{key: "armed", value: st.Armed})
	}
	if st.Session != "" {
		fields = append(fields, field{key: "session", value: st.Session})
	}
	return fields
}

func renderField(f field, styled bool) string {
	value := f.value
	if f.flag != nil {
		value = fmt.Sprintf("%v", *f.flag)
	}
	if !styled {
		return fmt.Sprintf("%s: %s", f.key, value)
	}
	vs := styleValue
	if f.flag != nil {
		vs = styleOff
		if *f.flag {
			vs = styleOn
		}
	}
	if f.key == "mode" && value == floating.ModePassthrough.String() {
		vs = styleWarning
	}
	return styleKey.Render(f.key) + vs.Render(value)
}

// printOverlay writes the overlay state, styled for terminals.
func printOverlay(w io.Writer, st floating.Status, styled bool) {
	for _, f := range overlayFields(st) {
		fmt.Fprintln(w, renderField(f, styled))
	}
}

// printStatus writes daemon and overlay state.
func printStatus(w io.Writer, status *ipc.StatusData, styled bool) {
	if styled {
		fmt.Fprintln(w, styleTitle.Render("floatkb daemon"))
	}
	daemonFields := []field{
		{key: "daemon_running", flag: &status.DaemonRunning},
		{key: "pid", value: fmt.Sprintf("%d", status.PID)},
		{key: "uptime_seconds", value: fmt.Sprintf("%d", status.UptimeSeconds)},
	}
	for _, f := range daemonFields {
		fmt.Fprintln(w, renderField(f, styled))
	}
	if styled {
		fmt.Fprintln(w)
		fmt.Fprintln(w, styleTitle.Render("overlay"))
	}
	printOverlay(w, status.Overlay, styled)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
