package db

// SchemaSQL contains the database schema initialization SQL.
const SchemaSQL = `
    -- ==========================================================================
    -- RAG_JOB TABLE (durable job state)
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS rag_job SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS project_id ON rag_job TYPE string;
    DEFINE FIELD IF NOT EXISTS file_id ON rag_job TYPE string;
    DEFINE FIELD IF NOT EXISTS status ON rag_job TYPE string
        ASSERT $value IN ["queued", "running", "completed", "failed", "cancelled"];
    DEFINE FIELD IF NOT EXISTS phase_current ON rag_job TYPE string
        ASSERT $value IN ["convert", "ocr", "chunk", "embed", "integrate", "ready"];
    DEFINE FIELD IF NOT EXISTS needs_ocr ON rag_job TYPE bool DEFAULT false;
    DEFINE FIELD IF NOT EXISTS progress_pct ON rag_job TYPE int DEFAULT 0
        ASSERT $value >= 0 AND $value <= 100;
    DEFINE FIELD IF NOT EXISTS started_at ON rag_job TYPE option<datetime>;
    DEFINE FIELD IF NOT EXISTS completed_at ON rag_job TYPE option<datetime>;
    DEFINE FIELD IF NOT EXISTS failed_at ON rag_job TYPE option<datetime>;
    DEFINE FIELD IF NOT EXISTS cancelled_at ON rag_job TYPE option<datetime>;
    DEFINE FIELD IF NOT EXISTS created_at ON rag_job TYPE datetime DEFAULT time::now();
    DEFINE FIELD IF NOT EXISTS updated_at ON rag_job TYPE datetime DEFAULT time::now();

    -- Multiple jobs may reference the same file; no uniqueness here.
    DEFINE INDEX IF NOT EXISTS rag_job_file ON rag_job FIELDS file_id;
    DEFINE INDEX IF NOT EXISTS rag_job_status ON rag_job FIELDS status;

    -- ==========================================================================
    -- RAG_JOB_EVENT TABLE (append-only audit timeline)
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS rag_job_event SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS job ON rag_job_event TYPE record<rag_job>;
    DEFINE FIELD IF NOT EXISTS event_type ON rag_job_event TYPE string
        ASSERT $value IN ["job_queued", "phase_started", "phase_completed", "phase_failed", "job_completed", "job_failed"];
    DEFINE FIELD IF NOT EXISTS phase ON rag_job_event TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS progress_pct ON rag_job_event TYPE option<int>;
    DEFINE FIELD IF NOT EXISTS message ON rag_job_event TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS payload ON rag_job_event TYPE option<object> FLEXIBLE;
    DEFINE FIELD IF NOT EXISTS created_at ON rag_job_event TYPE datetime DEFAULT time::now();

    DEFINE INDEX IF NOT EXISTS rag_job_event_job ON rag_job_event FIELDS job;

    -- ==========================================================================
    -- CHUNK TABLE
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS chunk SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS file_id ON chunk TYPE string;
    DEFINE FIELD IF NOT EXISTS chunk_index ON chunk TYPE int ASSERT $value >= 0;
    DEFINE FIELD IF NOT EXISTS text ON chunk TYPE string;
    DEFINE FIELD IF NOT EXISTS token_count ON chunk TYPE int ASSERT $value >= 0;
    DEFINE FIELD IF NOT EXISTS page_start ON chunk TYPE option<int>;
    DEFINE FIELD IF NOT EXISTS page_end ON chunk TYPE option<int>;
    DEFINE FIELD IF NOT EXISTS metadata ON chunk TYPE option<object> FLEXIBLE;
    DEFINE FIELD IF NOT EXISTS created_at ON chunk TYPE datetime DEFAULT time::now();

    -- Chunking fully replaces a file's rows, so indexes stay dense and unique.
    DEFINE INDEX IF NOT EXISTS chunk_key ON chunk FIELDS file_id, chunk_index UNIQUE;

    -- ==========================================================================
    -- EMBEDDING TABLE
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS embedding SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS file_id ON embedding TYPE string;
    DEFINE FIELD IF NOT EXISTS chunk ON embedding TYPE record<chunk>;
    DEFINE FIELD IF NOT EXISTS chunk_index ON embedding TYPE int ASSERT $value >= 0;
    DEFINE FIELD IF NOT EXISTS vector ON embedding TYPE array<float>;
    DEFINE FIELD IF NOT EXISTS model ON embedding TYPE string;
    DEFINE FIELD IF NOT EXISTS is_active ON embedding TYPE bool DEFAULT true;
    DEFINE FIELD IF NOT EXISTS created_at ON embedding TYPE datetime DEFAULT time::now();

    DEFINE INDEX IF NOT EXISTS embedding_key ON embedding FIELDS file_id, chunk_index, model UNIQUE;
    DEFINE INDEX IF NOT EXISTS embedding_file_active ON embedding FIELDS file_id, is_active;

    -- ==========================================================================
    -- WALLET TABLE (credit balances)
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS wallet SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS user_id ON wallet TYPE string;
    DEFINE FIELD IF NOT EXISTS balance ON wallet TYPE int ASSERT $value >= 0;
    DEFINE FIELD IF NOT EXISTS reserved ON wallet TYPE int DEFAULT 0 ASSERT $value >= 0;
    DEFINE FIELD IF NOT EXISTS updated_at ON wallet TYPE datetime DEFAULT time::now();

    DEFINE INDEX IF NOT EXISTS wallet_user ON wallet FIELDS user_id UNIQUE;

    -- ==========================================================================
    -- RESERVATION TABLE (credit holds)
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS reservation SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS user_id ON reservation TYPE string;
    DEFINE FIELD IF NOT EXISTS credits ON reservation TYPE int ASSERT $value > 0;
    DEFINE FIELD IF NOT EXISTS operation_id ON reservation TYPE string;
    DEFINE FIELD IF NOT EXISTS status ON reservation TYPE string
        ASSERT $value IN ["active", "consumed", "cancelled", "expired"];
    DEFINE FIELD IF NOT EXISTS expires_at ON reservation TYPE datetime;
    DEFINE FIELD IF NOT EXISTS created_at ON reservation TYPE datetime DEFAULT time::now();

    DEFINE INDEX IF NOT EXISTS reservation_op ON reservation FIELDS operation_id UNIQUE;

    -- ==========================================================================
    -- CREDIT_TX TABLE (append-only ledger)
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS credit_tx SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS user_id ON credit_tx TYPE string;
    DEFINE FIELD IF NOT EXISTS tx_type ON credit_tx TYPE string
        ASSERT $value IN ["reserve", "consume", "release", "credit"];
    DEFINE FIELD IF NOT EXISTS amount ON credit_tx TYPE int;
    DEFINE FIELD IF NOT EXISTS idempotency_key ON credit_tx TYPE string;
    DEFINE FIELD IF NOT EXISTS reservation ON credit_tx TYPE option<record<reservation>>;
    DEFINE FIELD IF NOT EXISTS created_at ON credit_tx TYPE datetime DEFAULT time::now();

    DEFINE INDEX IF NOT EXISTS credit_tx_idem ON credit_tx FIELDS idempotency_key UNIQUE;
    DEFINE INDEX IF NOT EXISTS credit_tx_user ON credit_tx FIELDS user_id;
`
