package database

import (
	"context"
	"fmt"
)

var migrations = []string{
	`CREATE EXTENSION IF NOT EXISTS "uuid-ossp"`,

	`CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		email VARCHAR(255) UNIQUE NOT NULL,
		name VARCHAR(255) NOT NULL DEFAULT '',
		role VARCHAR(20) NOT NULL DEFAULT 'student',
		password VARCHAR(255),
		phone VARCHAR(50),
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		CONSTRAINT users_role_check CHECK (role IN ('admin', 'teacher', 'student'))
	)`,

	`CREATE TABLE IF NOT EXISTS refresh_tokens (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		token_hash VARCHAR(255) NOT NULL UNIQUE,
		expires_at TIMESTAMP WITH TIME ZONE NOT NULL,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS classes (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		name VARCHAR(255) UNIQUE NOT NULL,
		description TEXT,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS subjects (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		class_id UUID NOT NULL REFERENCES classes(id) ON DELETE CASCADE,
		name VARCHAR(255) NOT NULL,
		description TEXT,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		UNIQUE(class_id, name)
	)`,

	`CREATE TABLE IF NOT EXISTS chapters (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		subject_id UUID NOT NULL REFERENCES subjects(id) ON DELETE CASCADE,
		name VARCHAR(255) NOT NULL,
		position INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS videos (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		title VARCHAR(255) NOT NULL,
		description TEXT,
		url VARCHAR(1000) NOT NULL,
		object_key VARCHAR(500) NOT NULL,
		thumbnail_url VARCHAR(1000),
		duration_seconds INTEGER,
		exam_type VARCHAR(50) NOT NULL,
		class_id UUID REFERENCES classes(id) ON DELETE SET NULL,
		subject_id UUID REFERENCES subjects(id) ON DELETE SET NULL,
		chapter_id UUID REFERENCES chapters(id) ON DELETE SET NULL,
		uploaded_by UUID NOT NULL REFERENCES users(id),
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS documents (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		title VARCHAR(255) NOT NULL,
		url VARCHAR(1000) NOT NULL,
		object_key VARCHAR(500) NOT NULL,
		content_type VARCHAR(255) NOT NULL,
		size_bytes BIGINT NOT NULL,
		chapter_id UUID NOT NULL REFERENCES chapters(id) ON DELETE CASCADE,
		uploaded_by UUID NOT NULL REFERENCES users(id),
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	)`,

	`CREATE INDEX IF NOT EXISTS idx_refresh_tokens_user_id ON refresh_tokens(user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_users_role ON users(role)`,
	`CREATE INDEX IF NOT EXISTS idx_subjects_class_id ON subjects(class_id)`,
	`CREATE INDEX IF NOT EXISTS idx_chapters_subject_id ON chapters(subject_id)`,
	`CREATE INDEX IF NOT EXISTS idx_videos_created_at ON videos(created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_videos_class_id ON videos(class_id)`,
	`CREATE INDEX IF NOT EXISTS idx_documents_chapter_id ON documents(chapter_id)`,

	`ALTER TABLE videos ADD COLUMN IF NOT EXISTS thumbnail_key VARCHAR(500)`,
}

func (db *DB) Migrate(ctx context.Context) error {
	for i, migration := range migrations {
		if _, err := db.Pool.Exec(ctx, migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}
