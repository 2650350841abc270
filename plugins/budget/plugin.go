// ABOUTME: Budget channel plugin.
// ABOUTME: Tracks shared expenses in one currency with an optional monthly limit.

package budget

import (
	"context"
	"fmt"
	"html"
	"html/template"
	"net/url"
	"time"

	"github.com/2389/teamhub/plugins/core"
	"github.com/dustin/go-humanize"
)

var currencies = []string{"USD", "EUR", "GBP", "JPY", "CHF", "CAD", "AUD"}

// Plugin implements the budget channel type
type Plugin struct{}

// New creates the budget channel plugin
func New() *Plugin {
	return &Plugin{}
}

func (p *Plugin) Meta() core.ChannelPluginMeta {
	return core.ChannelPluginMeta{
		Type:        core.TypeBudget,
		Name:        "Budget",
		Description: "Track shared expenses and spending limits",
		Icon:        "wallet",
		Color:       "emerald",
	}
}

func (p *Plugin) CreateForm() core.CreateForm {
	return core.CreateForm{
		Fields: []core.FieldSchema{
			{Name: "currency", Type: "select", Display: "Currency", Default: currencies[0], Options: currencies},
			{Name: "monthly_limit", Type: "number", Display: "Monthly limit (0 for none)", Default: "0"},
		},
		Build: func(values url.Values) (core.Settings, error) {
			currency, err := core.FormChoice(values, "currency", currencies)
			if err != nil {
				return nil, err
			}
			limit, err := core.FormInt(values, "monthly_limit", 0, 0, 1_000_000_000)
			if err != nil {
				return nil, err
			}
			return core.Settings{"currency": currency, "monthly_limit": limit}, nil
		},
	}
}

func (p *Plugin) RenderContent(ctx context.Context, ch core.Channel) template.HTML {
	currency := core.SettingString(ch.Settings, "currency", currencies[0])
	header := fmt.Sprintf(`<span class="ml-auto text-xs text-gray-500">%s</span>`, html.EscapeString(currency))
	if limit := core.SettingInt(ch.Settings, "monthly_limit", 0); limit > 0 {
		header = fmt.Sprintf(`<span class="ml-auto text-xs text-gray-500">Limit %s %s / month</span>`,
			html.EscapeString(humanize.Comma(int64(limit))), html.EscapeString(currency))
	}
	shell := core.ContentShell{
		Resource: "expenses",
		Poll:     30 * time.Second,
		Header:   template.HTML(header),
		Body:     template.HTML(`<table class="expenses min-w-full divide-y divide-gray-200"></table>`),
	}
	return shell.Render(p.Meta(), ch)
}
