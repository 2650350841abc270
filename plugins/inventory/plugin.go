// ABOUTME: Inventory channel plugin.
// ABOUTME: Lists tracked items and flags those under the low-stock threshold.

package inventory

import (
	"context"
	"fmt"
	"html/template"
	"net/url"
	"time"

	"github.com/2389/teamhub/plugins/core"
)

const defaultLowStock = 5

// Plugin implements the inventory channel type
type Plugin struct{}

// New creates the inventory channel plugin
func New() *Plugin {
	return &Plugin{}
}

func (p *Plugin) Meta() core.ChannelPluginMeta {
	return core.ChannelPluginMeta{
		Type:        core.TypeInventory,
		Name:        "Inventory",
		Description: "Keep count of equipment and supplies",
		Icon:        "package",
		Color:       "orange",
	}
}

func (p *Plugin) CreateForm() core.CreateForm {
	return core.CreateForm{
		Fields: []core.FieldSchema{
			{Name: "low_stock_threshold", Type: "number", Display: "Low stock threshold", Default: fmt.Sprint(defaultLowStock)},
		},
		Build: func(values url.Values) (core.Settings, error) {
			n, err := core.FormInt(values, "low_stock_threshold", defaultLowStock, 0, 100000)
			if err != nil {
				return nil, err
			}
			return core.Settings{"low_stock_threshold": n}, nil
		},
	}
}

func (p *Plugin) RenderContent(ctx context.Context, ch core.Channel) template.HTML {
	threshold := core.SettingInt(ch.Settings, "low_stock_threshold", defaultLowStock)
	shell := core.ContentShell{
		Resource: "items",
		Poll:     30 * time.Second,
		Body: template.HTML(fmt.Sprintf(`<table class="inventory min-w-full" data-low-stock="%d"></table>`,
			threshold)),
	}
	return shell.Render(p.Meta(), ch)
}
