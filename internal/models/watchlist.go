package models

import "time"

type WatchlistEntry struct {
	ID      int64     `json:"id"`
	Symbol  string    `json:"symbol"`
	Note    string    `json:"note"`
	AddedAt time.Time `json:"addedAt"`
}
