package remote

// schemaSQL creates the remote tables. Every statement is idempotent.
const schemaSQL = `
CREATE TABLE IF NOT EXISTS activity_documents (
	user_id    TEXT NOT NULL,
	doc_id     TEXT NOT NULL,
	data       JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (user_id, doc_id)
);

CREATE INDEX IF NOT EXISTS idx_activity_documents_date
	ON activity_documents (user_id, (data->>'date'));

CREATE INDEX IF NOT EXISTS idx_activity_documents_record_id
	ON activity_documents (user_id, (data->>'id'));

CREATE TABLE IF NOT EXISTS user_goals (
	user_id    TEXT PRIMARY KEY,
	data       JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`
