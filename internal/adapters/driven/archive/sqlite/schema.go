package sqlite

// schema is the archive layout. Message identifiers are assigned by
// whatever recorded the conversation and stay stable across copies, so
// they are unique per conversation rather than per table.
const schema = `
CREATE TABLE IF NOT EXISTS conversations (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	identity      TEXT NOT NULL,
	title         TEXT NOT NULL DEFAULT '',
	message_count INTEGER NOT NULL DEFAULT 0,
	last_activity DATETIME
);

CREATE TABLE IF NOT EXISTS messages (
	id          INTEGER NOT NULL,
	convo_id    INTEGER NOT NULL REFERENCES conversations(id),
	author      TEXT NOT NULL DEFAULT '',
	author_name TEXT NOT NULL DEFAULT '',
	timestamp   DATETIME NOT NULL,
	body        TEXT NOT NULL DEFAULT '',
	type        TEXT NOT NULL DEFAULT 'text',
	edited_at   DATETIME,
	removed     INTEGER NOT NULL DEFAULT 0,
	UNIQUE (convo_id, id)
);

CREATE INDEX IF NOT EXISTS idx_messages_convo_time ON messages (convo_id, timestamp, id);

CREATE TABLE IF NOT EXISTS participants (
	convo_id     INTEGER NOT NULL REFERENCES conversations(id),
	identity     TEXT NOT NULL,
	display_name TEXT NOT NULL DEFAULT '',
	role         TEXT NOT NULL DEFAULT 'member',
	PRIMARY KEY (convo_id, identity)
);

CREATE TABLE IF NOT EXISTS contacts (
	identity     TEXT PRIMARY KEY,
	display_name TEXT NOT NULL DEFAULT '',
	phone        TEXT NOT NULL DEFAULT '',
	email        TEXT NOT NULL DEFAULT '',
	city         TEXT NOT NULL DEFAULT '',
	country      TEXT NOT NULL DEFAULT ''
);
`
