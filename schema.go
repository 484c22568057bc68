package otpkeeper

// ProvidersTable creates the providers table.
const ProvidersTable = `
CREATE TABLE "providers" (
	"id" INTEGER PRIMARY KEY AUTOINCREMENT NOT NULL UNIQUE,
	"name" VARCHAR NOT NULL,
	"website" VARCHAR NULL,
	"doc_url" VARCHAR NULL,
	"image" VARCHAR NULL
);
`

// AccountsTable creates the accounts table in its current shape. Secrets
// are never stored here, token_id is only a lookup key into the vault.
const AccountsTable = `
CREATE TABLE "accounts" (
	"id" INTEGER PRIMARY KEY AUTOINCREMENT NOT NULL UNIQUE,
	"username" VARCHAR NOT NULL,
	"token_id" VARCHAR NOT NULL UNIQUE,
	"provider" INTEGER NOT NULL
);
`

// Schema contains sql commands to setup a database in the current
// generation without replaying historical migrations.
const Schema = ProvidersTable + AccountsTable
