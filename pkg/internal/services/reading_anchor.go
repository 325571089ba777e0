package services

import (
	"sync"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/banterhq/banter/pkg/internal/database"
	"github.com/banterhq/banter/pkg/internal/models"
)

// Reading anchors are write-coalesced: gateway handlers bump the in-memory
// queue on every read receipt and a cron task flushes the maximum per member
// to the database once a minute.
var (
	readingAnchorQueue = make(map[uint]uint)
	readingAnchorLock  sync.Mutex
)

func SetReadingAnchor(memberId uint, eventId uint) {
	readingAnchorLock.Lock()
	defer readingAnchorLock.Unlock()
	if val, ok := readingAnchorQueue[memberId]; ok {
		readingAnchorQueue[memberId] = max(eventId, val)
	} else {
		readingAnchorQueue[memberId] = eventId
	}
}

func FlushReadingAnchor() {
	readingAnchorLock.Lock()
	pending := readingAnchorQueue
	readingAnchorQueue = make(map[uint]uint)
	readingAnchorLock.Unlock()

	if len(pending) == 0 {
		return
	}
	for k, v := range pending {
		if err := database.C.Model(&models.ChannelMember{}).
			Where("id = ?", k).
			Updates(map[string]any{
				"reading_anchor": gorm.Expr("GREATEST(COALESCE(reading_anchor, 0), ?)", v),
			}).Error; err != nil {
			log.Error().Err(err).Msg("An error occurred when flushing reading anchor...")
			return
		}
	}
}
