package store

const schema = `
CREATE TABLE IF NOT EXISTS instances (
    id TEXT PRIMARY KEY,
    mode TEXT NOT NULL,
    zone TEXT,
    type TEXT,
    application TEXT,
    reserve_expiry_date TEXT NOT NULL,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS database_replicas (
    id TEXT PRIMARY KEY,
    major_instance_id TEXT NOT NULL,
    minor_instance_id TEXT NOT NULL,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS load_balancing_groups (
    id TEXT PRIMARY KEY,
    group_a TEXT NOT NULL,
    group_b TEXT NOT NULL,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    start_date TEXT NOT NULL,
    sort_by TEXT,
    instance_count INTEGER NOT NULL DEFAULT 0,
    batch_count INTEGER NOT NULL DEFAULT 0,
    exchanges INTEGER NOT NULL DEFAULT 0,
    postponements INTEGER NOT NULL DEFAULT 0,
    same_date_groups INTEGER NOT NULL DEFAULT 0,
    started_at TIMESTAMP,
    finished_at TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);

CREATE TABLE IF NOT EXISTS scheduled (
    run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    position INTEGER NOT NULL,
    instance_id TEXT NOT NULL,
    mode TEXT NOT NULL,
    zone TEXT,
    type TEXT,
    application TEXT,
    reserve_expiry_date TEXT NOT NULL,
    schedule_date TEXT NOT NULL,
    database_replica_id TEXT NOT NULL,
    database_replica TEXT NOT NULL,
    load_balancing_id TEXT NOT NULL,
    load_balancing TEXT NOT NULL,
    PRIMARY KEY (run_id, instance_id)
);

CREATE INDEX IF NOT EXISTS idx_scheduled_run_position ON scheduled(run_id, position);
`
