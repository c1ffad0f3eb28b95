package db

import (
	"database/sql"
)

// ownedTables are created by this service. Content tables (workflows,
// plugins, articles, news) belong to the content stores and are only read.
var ownedTables = []string{
	`
CREATE TABLE IF NOT EXISTS slack_webhook_configs (
    id           UUID PRIMARY KEY,
    category     VARCHAR(20) NOT NULL,
    webhook_url  TEXT NOT NULL,
    channel_name VARCHAR(81) NOT NULL,
    enabled      BOOLEAN NOT NULL DEFAULT TRUE,
    created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
    CONSTRAINT chk_slack_webhook_category
        CHECK (category IN ('workflow', 'plugin', 'article', 'news'))
)`,
	`
CREATE TABLE IF NOT EXISTS slack_notification_logs (
    id             BIGSERIAL PRIMARY KEY,
    destination_id UUID REFERENCES slack_webhook_configs(id),
    category       VARCHAR(20) NOT NULL,
    content_id     TEXT NOT NULL,
    status         VARCHAR(10) NOT NULL,
    status_code    INTEGER,
    error_message  TEXT,
    attempt        INTEGER NOT NULL DEFAULT 0,
    payload_size   INTEGER NOT NULL DEFAULT 0,
    delivered_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
    CONSTRAINT chk_slack_notification_status
        CHECK (status IN ('success', 'failed', 'skipped'))
)`,
}

var ownedIndexes = []string{
	// 有効な宛先は (category, channel) ごとに1つまで
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_slack_webhook_configs_enabled
    ON slack_webhook_configs(category, channel_name) WHERE enabled`,
	// 解決時の絞り込み用
	`CREATE INDEX IF NOT EXISTS idx_slack_webhook_configs_category
    ON slack_webhook_configs(category, updated_at DESC) WHERE enabled`,
	`CREATE INDEX IF NOT EXISTS idx_slack_notification_logs_content
    ON slack_notification_logs(category, content_id)`,
	`CREATE INDEX IF NOT EXISTS idx_slack_notification_logs_delivered_at
    ON slack_notification_logs(delivered_at DESC)`,
}

// MigrateUp creates the destination and delivery log tables. Safe to run repeatedly.
func MigrateUp(db *sql.DB) error {
	for _, stmt := range ownedTables {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	for _, idx := range ownedIndexes {
		if _, err := db.Exec(idx); err != nil {
			return err
		}
	}
	return nil
}
