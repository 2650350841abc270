// ABOUTME: Channel descriptor and channel type enumeration.
// ABOUTME: Channels are owned by the backend; the core only reads them.

package core

import "time"

// ChannelType identifies a channel's behavioral kind
type ChannelType string

const (
	TypeText       ChannelType = "text"
	TypeCalendar   ChannelType = "calendar"
	TypeFileShare  ChannelType = "file-share"
	TypeProject    ChannelType = "project"
	TypeSurvey     ChannelType = "survey"
	TypeWhiteboard ChannelType = "whiteboard"
	TypeWiki       ChannelType = "wiki"
	TypeBudget     ChannelType = "budget"
	TypeInventory  ChannelType = "inventory"
	TypeDiary      ChannelType = "diary"
	TypeForum      ChannelType = "forum"
	TypePhotos     ChannelType = "photos"
	TypeVoice      ChannelType = "voice"
)

var knownTypes = []ChannelType{
	TypeText,
	TypeCalendar,
	TypeFileShare,
	TypeProject,
	TypeSurvey,
	TypeWhiteboard,
	TypeWiki,
	TypeBudget,
	TypeInventory,
	TypeDiary,
	TypeForum,
	TypePhotos,
	TypeVoice,
}

// KnownTypes returns the built-in channel types in declaration order
func KnownTypes() []ChannelType {
	out := make([]ChannelType, len(knownTypes))
	copy(out, knownTypes)
	return out
}

// Known reports whether t is one of the built-in channel types.
// Channel data may carry types this build does not know about yet.
func (t ChannelType) Known() bool {
	for _, k := range knownTypes {
		if k == t {
			return true
		}
	}
	return false
}

func (t ChannelType) String() string {
	return string(t)
}

// Settings is the opaque, type-specific settings bag attached to a channel
type Settings map[string]any

// Channel is a channel descriptor as served by the backend
type Channel struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	ServerID    string      `json:"server_id"`
	Type        ChannelType `json:"type"`
	Description string      `json:"description,omitempty"`
	Settings    Settings    `json:"settings,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// Setting returns a settings value, or nil when absent
func (c Channel) Setting(key string) any {
	if c.Settings == nil {
		return nil
	}
	return c.Settings[key]
}
