package services

import "time"

const (
	KeyGameResult    = "result:%s"         // gameId
	KeyPlayerResults = "player:%s:results" // player address, time-ordered index

	TTLGameResult = 30 * 24 * time.Hour

	// History index keeps only the most recent games.
	HistoryMaxEntries = 100
)
