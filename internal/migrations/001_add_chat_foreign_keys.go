package migrations

import (
	"gorm.io/gorm"
)

// Migration001AddChatForeignKeys ties both message participants to tbl_users.
// SQLite cannot add constraints to an existing table, so it is a no-op there.
func Migration001AddChatForeignKeys() Migration {
	return Migration{
		ID:   "001_add_chat_foreign_keys",
		Name: "Add user foreign keys to chat_messages",
		Up: func(db *gorm.DB) error {
			if db.Dialector.Name() != "postgres" {
				return nil
			}

			stmts := []string{
				`ALTER TABLE chat_messages
					ADD CONSTRAINT fk_chat_messages_sender
					FOREIGN KEY (sender_id) REFERENCES tbl_users(id)`,
				`ALTER TABLE chat_messages
					ADD CONSTRAINT fk_chat_messages_receiver
					FOREIGN KEY (receiver_id) REFERENCES tbl_users(id)`,
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
