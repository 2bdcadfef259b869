package cli

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/tracemap/internal/config"
	"github.com/matzehuels/tracemap/pkg/diag"
	"github.com/matzehuels/tracemap/pkg/flow"
	"github.com/matzehuels/tracemap/pkg/pipeline"
)

// inspectCommand creates the inspect command.
func (c *CLI) inspectCommand() *cobra.Command {
	var noCache bool

	cmd := &cobra.Command{
		Use:   "inspect <snapshot.json|snapshot.toml>",
		Short: "Browse a computed diagram in the terminal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.setup(cmd)
			if err != nil {
				return err
			}
			return c.runInspect(cmd.Context(), args[0], cfg, noCache)
		},
	}
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	addLayoutFlags(cmd.Flags())
	return cmd
}

func (c *CLI) runInspect(ctx context.Context, input string, cfg *config.Config, noCache bool) error {
	snap, err := loadSnapshot(input)
	if err != nil {
		return err
	}
	runner, err := c.newRunner(ctx, cfg.Cache, noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	report, err := runner.Run(ctx, snap, pipeline.Options{Config: cfg.Layout, Logger: c.Logger}, nil)
	if err != nil {
		return fmt.Errorf("compute layout: %w", err)
	}
	_, err = tea.NewProgram(NewInspectModel(report), tea.WithContext(ctx), tea.WithAltScreen()).Run()
	return err
}

var (
	inspectHeaderStyle = lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	inspectPanelStyle  = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(colorDim).
				Padding(0, 1)
)

// inspectRow is one node with the edges that touch it.
type inspectRow struct {
	Node     flow.Node
	Incoming []flow.Edge
	Outgoing []flow.Edge
}

// InspectModel is the bubbletea model behind the inspect command.
type InspectModel struct {
	Rows        []inspectRow
	Diagnostics []diag.Diagnostic
	Stats       pipeline.Stats

	Cursor          int
	Offset          int
	Height          int
	ShowDiagnostics bool
}

// NewInspectModel indexes the report's diagram for browsing.
func NewInspectModel(r pipeline.Report) InspectModel {
	rows := make([]inspectRow, len(r.Diagram.Nodes))
	at := make(map[string]int, len(rows))
	for i, n := range r.Diagram.Nodes {
		rows[i].Node = n
		at[string(n.ID)] = i
	}
	for _, e := range r.Diagram.Edges {
		if i, ok := at[string(e.Source)]; ok {
			rows[i].Outgoing = append(rows[i].Outgoing, e)
		}
		if i, ok := at[string(e.Target)]; ok {
			rows[i].Incoming = append(rows[i].Incoming, e)
		}
	}
	return InspectModel{
		Rows:        rows,
		Diagnostics: r.Diagnostics,
		Stats:       r.Stats,
		Height:      15,
	}
}

func (m InspectModel) Init() tea.Cmd {
	return nil
}

func (m InspectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "d":
			m.ShowDiagnostics = !m.ShowDiagnostics
		case "up", "k":
			if m.Cursor > 0 {
				m.Cursor--
				if m.Cursor < m.Offset {
					m.Offset = m.Cursor
				}
			}
		case "down", "j":
			if m.Cursor < len(m.Rows)-1 {
				m.Cursor++
				if m.Cursor >= m.Offset+m.Height {
					m.Offset = m.Cursor - m.Height + 1
				}
			}
		case "home", "g":
			m.Cursor, m.Offset = 0, 0
		case "end", "G":
			if n := len(m.Rows); n > 0 {
				m.Cursor = n - 1
				m.Offset = max(0, n-m.Height)
			}
		}
	case tea.WindowSizeMsg:
		m.Height = max(5, msg.Height-14)
	}
	return m, nil
}

func (m InspectModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("tracemap inspect"))
	b.WriteString("  ")
	b.WriteString(statsLine(m.Stats, false))
	b.WriteString("\n")
	b.WriteString(StyleDim.Render("↑/↓ navigate  d diagnostics  q quit"))
	b.WriteString("\n\n")

	if m.ShowDiagnostics {
		b.WriteString(m.diagnosticsView())
		return b.String()
	}
	if len(m.Rows) == 0 {
		b.WriteString(StyleDim.Render("  empty diagram"))
		return b.String()
	}

	b.WriteString(m.tableView())
	b.WriteString("\n")
	b.WriteString(m.detailView())
	b.WriteString("\n")
	b.WriteString(StyleDim.Render(fmt.Sprintf("  [%d/%d]", m.Cursor+1, len(m.Rows))))
	return b.String()
}

func (m InspectModel) tableView() string {
	end := min(m.Offset+m.Height, len(m.Rows))

	rows := make([][]string, 0, end-m.Offset)
	for i := m.Offset; i < end; i++ {
		r := m.Rows[i]
		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}
		kind := "group"
		if r.Node.Type == flow.NodeTypeEntity {
			kind = string(r.Node.Data.Kind)
		}
		rows = append(rows, []string{
			cursor,
			string(r.Node.ID),
			kind,
			string(r.Node.Data.GroupKey),
			fmt.Sprintf("%.0f,%.0f", r.Node.Position.X, r.Node.Position.Y),
			fmt.Sprintf("%d/%d", len(r.Incoming), len(r.Outgoing)),
		})
	}

	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "Node", "Kind", "Group", "Position", "In/Out").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return inspectHeaderStyle
			}
			idx := m.Offset + row
			if idx >= len(m.Rows) {
				return lipgloss.NewStyle()
			}
			r := m.Rows[idx]
			style := lipgloss.NewStyle()
			switch {
			case col == 2:
				style = kindStyle(r.Node.Data.Kind)
			case col == 1 && r.Node.Data.MultiParent:
				style = StyleMultiParent
			case col > 2:
				style = StyleDim
			}
			if idx == m.Cursor {
				style = style.Bold(true)
			}
			return style
		}).
		Render()
}

func (m InspectModel) detailView() string {
	r := m.Rows[m.Cursor]

	var b strings.Builder
	b.WriteString(StyleHighlight.Render(r.Node.Data.Label))
	if r.Node.Data.MultiParent {
		b.WriteString("  " + StyleMultiParent.Render("multi-parent"))
	}
	fmt.Fprintf(&b, "\n%s %.0f×%.0f", StyleDim.Render("size"), r.Node.Width, r.Node.Height)
	for _, e := range r.Incoming {
		fmt.Fprintf(&b, "\n%s %s %s", StyleDim.Render("from"), e.Source, StyleDim.Render(string(e.Class)))
	}
	for _, e := range r.Outgoing {
		handle := e.SourceHandle
		if handle == "" {
			handle = "default"
		}
		fmt.Fprintf(&b, "\n%s %s %s", StyleDim.Render("to  "), e.Target,
			StyleDim.Render(string(e.Class)+" via "+handle))
	}
	return inspectPanelStyle.Render(b.String())
}

func (m InspectModel) diagnosticsView() string {
	if len(m.Diagnostics) == 0 {
		return StyleSuccess.Render("  no diagnostics")
	}
	var b strings.Builder
	for _, d := range m.Diagnostics {
		icon := styleIconInfo.Render(iconInfo)
		if d.Severity == diag.SeverityWarning {
			icon = styleIconWarning.Render(iconWarning)
		}
		fmt.Fprintf(&b, "%s %s\n", icon, d)
	}
	return b.String()
}
