// ABOUTME: Registration of every built-in channel plugin.
// ABOUTME: Called once during start-up, before any handler resolves a plugin.

package builtin

import (
	"fmt"

	"github.com/2389/teamhub/plugins/budget"
	"github.com/2389/teamhub/plugins/calendar"
	"github.com/2389/teamhub/plugins/core"
	"github.com/2389/teamhub/plugins/diary"
	"github.com/2389/teamhub/plugins/fileshare"
	"github.com/2389/teamhub/plugins/forum"
	"github.com/2389/teamhub/plugins/inventory"
	"github.com/2389/teamhub/plugins/photos"
	"github.com/2389/teamhub/plugins/project"
	"github.com/2389/teamhub/plugins/survey"
	"github.com/2389/teamhub/plugins/text"
	"github.com/2389/teamhub/plugins/voice"
	"github.com/2389/teamhub/plugins/whiteboard"
	"github.com/2389/teamhub/plugins/wiki"
)

// Plugins returns a fresh instance of every built-in plugin in menu order
func Plugins() []core.Plugin {
	return []core.Plugin{
		text.New(),
		calendar.New(),
		fileshare.New(),
		project.New(),
		survey.New(),
		whiteboard.New(),
		wiki.New(),
		budget.New(),
		inventory.New(),
		diary.New(),
		forum.New(),
		photos.New(),
		voice.New(),
	}
}

// Register adds every built-in plugin to reg
func Register(reg *core.Registry) error {
	for _, p := range Plugins() {
		if err := reg.Register(p); err != nil {
			return fmt.Errorf("register %s plugin: %w", p.Meta().Type, err)
		}
	}
	return nil
}
