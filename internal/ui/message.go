package ui

import (
	"github.com/desertthunder/ytsync/internal/models"
	"github.com/desertthunder/ytsync/internal/tasks"
)

type resourcesLoadedMsg struct {
	resources []models.Resource
	err       error
}

type toggledMsg struct {
	err error
}

type progressUpdateMsg tasks.ProgressUpdate

// syncedMsg carries every reconciled resource of a single or bulk sync.
type syncedMsg struct {
	results []tasks.ResourceResult
	err     error
}
