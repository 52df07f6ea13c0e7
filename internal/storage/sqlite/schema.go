package sqlite

import "github.com/deskops/mailtriage/internal/storage/migrations"

var schemaMigrations = []migrations.Migration{
	{
		Version:     1,
		Description: "Create emails and tickets tables",
		Up: `
-- Incoming emails; recipients is a JSON array
CREATE TABLE IF NOT EXISTS emails (
    id TEXT PRIMARY KEY,
    subject TEXT NOT NULL DEFAULT '',
    sender TEXT NOT NULL DEFAULT '',
    recipients TEXT NOT NULL DEFAULT '[]',
    body TEXT NOT NULL DEFAULT '',
    received_at TEXT NOT NULL
);

-- Existing tickets
CREATE TABLE IF NOT EXISTS tickets (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL DEFAULT '',
    description TEXT NOT NULL DEFAULT '',
    status TEXT NOT NULL DEFAULT '',
    priority TEXT NOT NULL DEFAULT '',
    category TEXT NOT NULL DEFAULT '',
    created_at TEXT NOT NULL DEFAULT ''
);
`,
		Down: `
DROP TABLE IF EXISTS tickets;
DROP TABLE IF EXISTS emails;
`,
	},
	{
		Version:     2,
		Description: "Index emails by receive time and tickets by status",
		Up: `
CREATE INDEX IF NOT EXISTS idx_emails_received_at ON emails(received_at);
CREATE INDEX IF NOT EXISTS idx_tickets_status ON tickets(status);
`,
		Down: `
DROP INDEX IF EXISTS idx_tickets_status;
DROP INDEX IF EXISTS idx_emails_received_at;
`,
	},
}
