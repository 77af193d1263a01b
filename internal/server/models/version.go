package models

import "time"

// GameVersion is one game release. At most one row is active at a time;
// activation is managed transactionally by the version service.
type GameVersion struct {
	ID            int64
	VersionNumber string
	VersionName   string
	ReleaseDate   time.Time
	IsActive      bool
}
