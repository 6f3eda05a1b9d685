package cache

import (
	"fmt"
	"time"
)

const (
	UserKeyPrefix       = "user:%d"
	RecentTagsKeyPrefix = "tags:recent:%d:g%d"
	RecentTagsGenKey    = "tags:recent:gen"
	RevokedTokenPrefix  = "blacklist:%s"
)

const (
	UserTTL       = 5 * time.Minute
	RecentTagsTTL = 10 * time.Minute
)

func UserKey(userID uint) string {
	return fmt.Sprintf(UserKeyPrefix, userID)
}

// RecentTagsKey scopes cached tags to a generation of RecentTagsGenKey, so a
// reader that fetched before a post mutation writes to a key nobody reads.
func RecentTagsKey(limit int, gen int64) string {
	return fmt.Sprintf(RecentTagsKeyPrefix, limit, gen)
}

func RevokedTokenKey(jti string) string {
	return fmt.Sprintf(RevokedTokenPrefix, jti)
}
