package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE IF NOT EXISTS saved_workflows (
				owner VARCHAR(255) NOT NULL,
				name VARCHAR(255) NOT NULL,
				graph JSONB NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				PRIMARY KEY (owner, name)
			);
		`,
		2: `CREATE INDEX IF NOT EXISTS idx_saved_workflows_owner_updated ON saved_workflows(owner, updated_at DESC);`,
	}
}
