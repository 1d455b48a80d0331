package cliui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

var (
	KeyStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Bold(true)
	ValueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	DimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	NameStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true)
	WarnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	HeaderStyle = lipgloss.NewStyle().Bold(true).Underline(true)
)

// layerNames label the resolution layers shown in stats output.
var layerNames = map[int]string{
	0: "error",
	1: "cache",
	2: "grounded",
	3: "ungrounded",
}

// LayerLabel renders a resolution layer as "2 grounded". Unknown layers are
// rendered as the bare number.
func LayerLabel(layer int) string {
	name, ok := layerNames[layer]
	if !ok {
		return fmt.Sprintf("%d", layer)
	}
	style := ValueStyle
	switch layer {
	case 0:
		style = WarnStyle
	case 1:
		style = NameStyle
	}
	return fmt.Sprintf("%d %s", layer, style.Render(name))
}
