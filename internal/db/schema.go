package db

// SchemaSQL contains the database schema initialization SQL.
const SchemaSQL = `
    -- ==========================================================================
    -- CHAT_TURN TABLE (archived completed turns)
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS chat_turn SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS timestamp ON chat_turn TYPE string;
    DEFINE FIELD IF NOT EXISTS model ON chat_turn TYPE string;
    DEFINE FIELD IF NOT EXISTS user ON chat_turn TYPE string;
    DEFINE FIELD IF NOT EXISTS assistant ON chat_turn TYPE string;
    DEFINE FIELD IF NOT EXISTS response_length ON chat_turn TYPE option<int>;
    DEFINE FIELD IF NOT EXISTS response_time ON chat_turn TYPE option<float>;
    DEFINE FIELD IF NOT EXISTS archived ON chat_turn TYPE datetime DEFAULT time::now();

    DEFINE INDEX IF NOT EXISTS chat_turn_archived ON chat_turn FIELDS archived;
    DEFINE INDEX IF NOT EXISTS chat_turn_model ON chat_turn FIELDS model;

    -- ==========================================================================
    -- COLLAB_SESSION TABLE (point-in-time session snapshots)
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS collab_session SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS session_id ON collab_session TYPE string;
    DEFINE FIELD IF NOT EXISTS name ON collab_session TYPE string;
    DEFINE FIELD IF NOT EXISTS type ON collab_session TYPE string;
    DEFINE FIELD IF NOT EXISTS snapshot ON collab_session TYPE object FLEXIBLE;
    DEFINE FIELD IF NOT EXISTS archived ON collab_session TYPE datetime DEFAULT time::now();

    DEFINE INDEX IF NOT EXISTS collab_session_id ON collab_session FIELDS session_id;
    DEFINE INDEX IF NOT EXISTS collab_session_archived ON collab_session FIELDS archived;
`
