package cmd

import (
	"fmt"

	"finchat/types"

	"github.com/charmbracelet/lipgloss"
)

var (
	userLabelStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	botLabelStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	otherLabelStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("13"))
	dimStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	errorStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

func printMessage(msg types.Message) {
	label := messageLabel(msg)
	fmt.Printf("%s %s\n", label, msg.Content)
	if msg.Visualization != nil {
		n := len(msg.Visualization.Tables)
		g := len(msg.Visualization.Graphs)
		if n > 0 || g > 0 {
			fmt.Println(dimStyle.Render(fmt.Sprintf("  [%d table(s), %d graph(s) attached]", n, g)))
		}
	}
}

func messageLabel(msg types.Message) string {
	switch msg.MessageType {
	case types.MessageTypeBot:
		return botLabelStyle.Render("assistant>")
	case types.MessageTypeUser:
		if msg.IsFromCurrentSession {
			return userLabelStyle.Render("you>")
		}
		return otherLabelStyle.Render("collaborator>")
	default:
		return otherLabelStyle.Render("other>")
	}
}

func promptLabel(status types.ConnectionStatus, awaiting bool) string {
	switch {
	case awaiting:
		return dimStyle.Render("(assistant is responding) ") + "> "
	case status == types.StatusConnected:
		return "> "
	case status == types.StatusConnecting:
		return dimStyle.Render("(connecting) ") + "> "
	default:
		return dimStyle.Render(fmt.Sprintf("(%s, http fallback) ", status)) + "> "
	}
}
