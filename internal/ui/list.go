package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/ytsync/internal/models"
	"github.com/desertthunder/ytsync/internal/shared"
)

var _ list.Item = resourceItem{}

// resourceItem wraps a tracked [models.Resource] to implement [list.Item].
type resourceItem struct {
	res models.Resource
}

func (i resourceItem) FilterValue() string { return i.res.RemoteInfo().ID + " " + resourceTitle(i.res) }

func (i resourceItem) Title() string {
	title := resourceTitle(i.res)
	if title == "" {
		title = i.res.RemoteInfo().ID
	}
	return fmt.Sprintf("[%s] %s", i.res.Kind(), title)
}

func (i resourceItem) Description() string {
	parts := []string{i.res.RemoteInfo().ID}
	if c, ok := i.res.(models.Collection); ok {
		parts = append(parts, fmt.Sprintf("%d videos", len(c.LocalVideos())))
	}
	parts = append(parts, "sync "+shared.VisibilityString(i.res.IsSyncEnabled()))
	if synced := i.res.LastSyncedAt(); !synced.IsZero() {
		parts = append(parts, "synced "+synced.Local().Format("2006-01-02 15:04"))
	} else {
		parts = append(parts, "never synced")
	}
	return strings.Join(parts, " • ")
}

func resourceTitle(res models.Resource) string {
	switch r := res.(type) {
	case *models.Channel:
		return r.Title
	case *models.Playlist:
		return r.Title
	case *models.Video:
		return r.Title
	default:
		return ""
	}
}

func newResourceList(resources []models.Resource, width, height int) list.Model {
	items := make([]list.Item, len(resources))
	for i, res := range resources {
		items[i] = resourceItem{res: res}
	}
	l := list.New(items, list.NewDefaultDelegate(), 0, 0)
	l.Title = "Tracked YouTube Resources"
	l.SetSize(max(width-4, 0), max(height-8, 0))
	return l
}
