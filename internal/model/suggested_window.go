package model

import (
	"fmt"
	"time"
)

// SuggestedWindow вариант времени для переноса занятия
type SuggestedWindow struct {
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

func (w SuggestedWindow) String() string {
	return fmt.Sprintf("%s - %s", w.StartTime.Format("02.01 15:04"), w.EndTime.Format("15:04"))
}
