package ui

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mixtape-sh/mixtape/internal/mcp"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	ToolListView ViewState = iota
	DetailView
	ArgsView
	InvokeView
	ResultView
)

// ToolCaller is the slice of the session client the TUI needs.
type ToolCaller interface {
	ListTools(ctx context.Context) ([]mcp.Tool, error)
	CallTool(ctx context.Context, name string, args any) (json.RawMessage, error)
}

type toolsFetchedMsg struct {
	tools []mcp.Tool
	err   error
}

type callCompleteMsg struct {
	result json.RawMessage
	err    error
}

// Model represents the TUI application state.
type Model struct {
	ctx      context.Context
	view     ViewState
	client   ToolCaller
	width    int
	height   int
	toolList list.Model
	tools    []mcp.Tool
	selected *mcp.Tool
	args     textinput.Model
	result   json.RawMessage
	err      error
	help     help.Model
	keys     keyMap
}

// NewModel creates a new TUI model with the provided dependencies.
func NewModel(ctx context.Context, client ToolCaller) *Model {
	input := textinput.New()
	input.Placeholder = `{"query": "..."}`
	input.CharLimit = 0
	input.Width = 60

	return &Model{
		ctx:    ctx,
		view:   ToolListView,
		client: client,
		args:   input,
		help:   help.New(),
		keys:   newKeyMap(),
	}
}

// Init initializes the TUI by fetching the remote tool catalog.
func (m *Model) Init() tea.Cmd {
	return m.fetchTools()
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.toolList.Width() == 0 {
			m.toolList.SetSize(msg.Width-4, msg.Height-8)
		}
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case ToolListView:
			return m.handleToolListKeys(msg)
		case DetailView:
			return m.handleDetailKeys(msg)
		case ArgsView:
			return m.handleArgsKeys(msg)
		case ResultView:
			return m.handleResultKeys(msg)
		}

	case toolsFetchedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, tea.Quit
		}
		m.tools = msg.tools
		items := make([]list.Item, len(msg.tools))
		for i, tool := range msg.tools {
			items[i] = toolItem{tool: tool}
		}
		m.toolList = list.New(items, list.NewDefaultDelegate(), 0, 0)
		m.toolList.Title = "Remote Tools"
		m.toolList.SetSize(m.width-4, m.height-8)
		return m, nil

	case callCompleteMsg:
		m.result = msg.result
		m.err = msg.err
		m.view = ResultView
		return m, nil
	}

	if m.view == ToolListView {
		var cmd tea.Cmd
		m.toolList, cmd = m.toolList.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	if m.err != nil && m.view != ResultView {
		return styles.err.Render(fmt.Sprintf("Error: %v\n\nPress q to quit", m.err))
	}

	switch m.view {
	case ToolListView:
		return m.renderToolList()
	case DetailView:
		return m.renderDetail()
	case ArgsView:
		return m.renderArgs()
	case InvokeView:
		return m.renderInvoke()
	case ResultView:
		return m.renderResult()
	default:
		return ""
	}
}

func (m *Model) handleToolListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "enter":
		if selected := m.toolList.SelectedItem(); selected != nil {
			if item, ok := selected.(toolItem); ok {
				tool := item.tool
				m.selected = &tool
				m.view = DetailView
			}
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.toolList, cmd = m.toolList.Update(msg)
	return m, cmd
}

func (m *Model) handleDetailKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.view = ToolListView
		return m, nil
	case "i", "enter":
		m.args.SetValue("")
		m.args.Focus()
		m.view = ArgsView
		return m, textinput.Blink
	}
	return m, nil
}

func (m *Model) handleArgsKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.args.Blur()
		m.view = DetailView
		return m, nil
	case "enter":
		m.args.Blur()
		m.view = InvokeView
		return m, m.invoke(m.args.Value())
	}

	var cmd tea.Cmd
	m.args, cmd = m.args.Update(msg)
	return m, cmd
}

func (m *Model) handleResultKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "r", "esc":
		m.view = ToolListView
		m.selected = nil
		m.result = nil
		m.err = nil
		return m, nil
	}
	return m, nil
}

func (m *Model) fetchTools() tea.Cmd {
	return func() tea.Msg {
		tools, err := m.client.ListTools(m.ctx)
		return toolsFetchedMsg{tools: tools, err: err}
	}
}

func (m *Model) invoke(rawArgs string) tea.Cmd {
	name := m.selected.Name
	return func() tea.Msg {
		var args any
		if rawArgs != "" {
			var parsed json.RawMessage
			if err := json.Unmarshal([]byte(rawArgs), &parsed); err != nil {
				return callCompleteMsg{err: fmt.Errorf("arguments are not valid JSON: %w", err)}
			}
			args = parsed
		}

		result, err := m.client.CallTool(m.ctx, name, args)
		return callCompleteMsg{result: result, err: err}
	}
}

func (m *Model) renderToolList() string {
	helpKeys := []key.Binding{m.keys.enter, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)
	return fmt.Sprintf("%s\n\n%s", m.toolList.View(), helpView)
}

func (m *Model) renderDetail() string {
	title := styles.title.Render(m.selected.Name)

	schema, err := json.MarshalIndent(m.selected.InputSchema, "", "  ")
	if err != nil {
		schema = []byte("{}")
	}

	body := fmt.Sprintf("%s\n\nInput schema:\n%s", m.selected.Description, schema)
	helpKeys := []key.Binding{m.keys.invoke, m.keys.back, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)

	return fmt.Sprintf("%s\n%s\n\n%s", title, body, helpView)
}

func (m *Model) renderArgs() string {
	title := styles.title.Render(fmt.Sprintf("Invoke %s", m.selected.Name))
	hint := styles.help.Render("Enter a JSON object of arguments, or leave empty.")

	helpKeys := []key.Binding{m.keys.enter, m.keys.back}
	helpView := m.help.ShortHelpView(helpKeys)

	return fmt.Sprintf("%s\n%s\n\n%s\n\n%s", title, hint, m.args.View(), helpView)
}

func (m *Model) renderInvoke() string {
	title := styles.title.Render(fmt.Sprintf("Calling %s", m.selected.Name))
	return fmt.Sprintf("%s\n\nWaiting for the gateway...", title)
}

func (m *Model) renderResult() string {
	if m.err != nil {
		return styles.err.Render(fmt.Sprintf("Call failed: %v\n\nPress r to go back, q to quit", m.err))
	}

	title := styles.ok.Render("Call complete")

	var pretty []byte
	var decoded any
	if err := json.Unmarshal(m.result, &decoded); err == nil {
		pretty, _ = json.MarshalIndent(decoded, "", "  ")
	} else {
		pretty = m.result
	}

	helpKeys := []key.Binding{m.keys.restart, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)

	return fmt.Sprintf("%s\n\n%s\n\n%s", title, pretty, helpView)
}
