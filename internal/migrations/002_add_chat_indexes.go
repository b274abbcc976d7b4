package migrations

import (
	"gorm.io/gorm"
)

// Migration002AddChatIndexes adds the indexes behind the conversation and
// polling queries:
//  1. newest-first scans (created_date DESC)
//  2. pair lookups ordered by time (sender_id, receiver_id, created_date)
//  3. unread counts (receiver_id, is_read)
func Migration002AddChatIndexes() Migration {
	return Migration{
		ID:        "002_add_chat_indexes",
		Name:      "Add chat query indexes",
		DependsOn: []string{"001_add_chat_foreign_keys"},
		Up: func(db *gorm.DB) error {
			stmts := []string{
				`CREATE INDEX IF NOT EXISTS idx_chat_created
					ON chat_messages (created_date DESC)`,
				`CREATE INDEX IF NOT EXISTS idx_chat_pair_created
					ON chat_messages (sender_id, receiver_id, created_date)`,
				`CREATE INDEX IF NOT EXISTS idx_chat_unread
					ON chat_messages (receiver_id, is_read)`,
			}
			for _, stmt := range stmts {
				if err := db.Exec(stmt).Error; err != nil {
					return err
				}
			}
			return nil
		},
	}
}
