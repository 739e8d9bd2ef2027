package sqlitestore

// Timestamps are stored as UTC Unix nanoseconds. The seq columns record
// insertion order for attachment listing and session tie-breaking.
// idx_sessions_one_live holds the one-live-session-per-task rule across
// every process sharing the database file.
const schema = `
CREATE TABLE IF NOT EXISTS tasks (
	id             TEXT PRIMARY KEY,
	case_id        TEXT NOT NULL,
	type           TEXT NOT NULL,
	title          TEXT NOT NULL DEFAULT '',
	status         TEXT NOT NULL,
	assigned_to_id TEXT NOT NULL DEFAULT '',
	created_at     INTEGER NOT NULL,
	updated_at     INTEGER NOT NULL,
	version        INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_tasks_assignee
	ON tasks (assigned_to_id, updated_at DESC);

CREATE TABLE IF NOT EXISTS cases (
	id       TEXT PRIMARY KEY,
	state    TEXT NOT NULL DEFAULT '',
	language TEXT NOT NULL DEFAULT '',
	doc_type TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS attachments (
	seq       INTEGER PRIMARY KEY AUTOINCREMENT,
	id        TEXT NOT NULL UNIQUE,
	task_id   TEXT NOT NULL,
	file_name TEXT NOT NULL,
	url       TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_attachments_task ON attachments (task_id, seq);

CREATE TABLE IF NOT EXISTS sessions (
	seq        INTEGER PRIMARY KEY AUTOINCREMENT,
	id         TEXT NOT NULL UNIQUE,
	task_id    TEXT NOT NULL,
	status     TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	expires_at INTEGER NOT NULL,
	viewer_url TEXT NOT NULL DEFAULT '',
	worker_id  TEXT NOT NULL DEFAULT '',
	closed_at  INTEGER
);

CREATE INDEX IF NOT EXISTS idx_sessions_task ON sessions (task_id, created_at DESC, seq DESC);
CREATE INDEX IF NOT EXISTS idx_sessions_status ON sessions (status);

CREATE UNIQUE INDEX IF NOT EXISTS idx_sessions_one_live
	ON sessions (task_id) WHERE status IN ('REQUESTED', 'ATTACHED');
`
