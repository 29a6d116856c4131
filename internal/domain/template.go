package domain

import (
	"time"

	"github.com/google/uuid"
)

// DefaultIcon is used when a template is created without an explicit icon.
const DefaultIcon = "paperplane.fill"

// Template is a user-authored preset message bound to a target chat.
// Templates are created, edited and deleted only on the owning surface;
// every other surface sees the read-only WidgetTemplate projection.
type Template struct {
	ID              uuid.UUID `json:"id"`
	Name            string    `json:"name"`
	Icon            string    `json:"icon"`
	MessageText     string    `json:"messageText"`
	TargetGroupID   *int64    `json:"targetGroupId"`
	TargetGroupName *string   `json:"targetGroupName"`
	IncludeLocation bool      `json:"includeLocation"`

	// Owner-only fields, never projected to other surfaces.
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	SortOrder int       `json:"sortOrder"`
}

// Sendable reports whether the template has a target chat to deliver to.
func (t Template) Sendable() bool {
	return t.TargetGroupID != nil
}

// WidgetTemplate is the reduced, immutable projection of a Template used by
// the watch, widget and CarPlay surfaces. The JSON field names are the shared
// storage schema and must stay stable across surfaces.
type WidgetTemplate struct {
	ID              uuid.UUID `json:"id"`
	Name            string    `json:"name"`
	Icon            string    `json:"icon"`
	MessageText     string    `json:"messageText"`
	TargetGroupID   *int64    `json:"targetGroupId"`
	TargetGroupName *string   `json:"targetGroupName"`
	IncludeLocation bool      `json:"includeLocation"`
}

// Projection derives the read-only mirror entry for this template.
func (t Template) Projection() WidgetTemplate {
	return WidgetTemplate{
		ID:              t.ID,
		Name:            t.Name,
		Icon:            t.Icon,
		MessageText:     t.MessageText,
		TargetGroupID:   t.TargetGroupID,
		TargetGroupName: t.TargetGroupName,
		IncludeLocation: t.IncludeLocation,
	}
}

// Project derives the full mirror for an owner-ordered template list.
func Project(templates []Template) []WidgetTemplate {
	out := make([]WidgetTemplate, 0, len(templates))
	for _, t := range templates {
		out = append(out, t.Projection())
	}
	return out
}
