package service

import "feedbacklens/internal/model"

// Broadcaster pushes progress events to subscribers (avoids import cycle with ws)
type Broadcaster interface {
	BroadcastProgress(event model.ProgressEvent)
}
