package pipeline

import "fmt"

// ProgressUpdate represents a progress event during a recommendation run.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	GatherContext Phase = iota
	AssemblePrompt
	Generate
	ResolveTracks
	BuildPlaylist
)

func (p Phase) String() string {
	switch p {
	case GatherContext:
		return "gather_context"
	case AssemblePrompt:
		return "assemble_prompt"
	case Generate:
		return "generate"
	case ResolveTracks:
		return "resolve_tracks"
	case BuildPlaylist:
		return "build_playlist"
	default:
		return ""
	}
}

func gatherUpdate(step, total int, subject string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   GatherContext,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Looking up %s...", step, total, subject),
	}
}

func promptUpdate(chars int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   AssemblePrompt,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Assembled prompt (%d chars)", chars),
	}
}

func generateUpdate() ProgressUpdate {
	return ProgressUpdate{
		Phase:   Generate,
		Step:    1,
		Total:   1,
		Message: "Generating suggestions...",
	}
}

func resolveUpdate(step, total int, title, artist string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ResolveTracks,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s - %s", step, total, artist, title),
	}
}

func playlistUpdate(name, id string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   BuildPlaylist,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Playlist created: %s (ID: %s)", name, id),
	}
}
