package models

// PostgresModels lists every GORM model, in dependency order, for AutoMigrate.
func PostgresModels() []any {
	return []any{
		&User{},
		&Follow{},
		&FollowRequest{},
		&Block{},
		&Chat{},
		&ChatParticipant{},
		&Message{},
		&Notification{},
		&StoryView{},
		&StoryReaction{},
		&Like{},
		&Comment{},
		&CommentLike{},
		&SavedPost{},
	}
}
