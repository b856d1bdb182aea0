package commonrepo

import (
	"time"
	"unicode/utf8"
)

type Mode struct {
	ID        uint64    `gorm:"primarykey"`
	CreatedAt time.Time `gorm:"index;autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// AppendOnly 只追加的表没有 updated_at
type AppendOnly struct {
	ID        uint64    `gorm:"primarykey"`
	CreatedAt time.Time `gorm:"index;autoCreateTime"`
}

// Truncate 按字符截断，和 varchar(size) 的长度口径一致
func Truncate(s string, size int) string {
	if utf8.RuneCountInString(s) <= size {
		return s
	}
	return string([]rune(s)[:size])
}
