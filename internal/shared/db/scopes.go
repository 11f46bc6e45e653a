package db

import "gorm.io/gorm"

// Paginate is a GORM scope applying page/pageSize limits.
// Page is 1-based; pageSize is clamped to [1, 100].
func Paginate(page, pageSize int) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if page < 1 {
			page = 1
		}
		switch {
		case pageSize < 1:
			pageSize = 20
		case pageSize > 100:
			pageSize = 100
		}
		return db.Offset((page - 1) * pageSize).Limit(pageSize)
	}
}

// NotRevoked filters out revoked license rows.
func NotRevoked() func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("is_revoked = ?", false)
	}
}
