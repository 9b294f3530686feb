package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/mixtape-sh/mixtape/internal/mcp"
)

var _ list.Item = toolItem{}

// toolItem wraps [mcp.Tool] to implement [list.Item].
type toolItem struct {
	tool mcp.Tool
}

func (i toolItem) FilterValue() string { return i.tool.Name }
func (i toolItem) Title() string       { return i.tool.Name }
func (i toolItem) Description() string {
	desc := i.tool.Description
	if n := len(i.tool.InputSchema.Properties); n > 0 {
		desc = fmt.Sprintf("%s • %d args", desc, n)
	}
	return desc
}
