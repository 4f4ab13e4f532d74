package index

// Segment kinds stored in the index. Text segments carry a transcript
// chunk as payload; image segments carry the frame file name.
const (
	KindText  = "text"
	KindImage = "image"
)

// schemaSQL defines the segment table. The HNSW dimension is filled in
// from the embedding model configuration at init time.
const schemaSQL = `
    DEFINE TABLE IF NOT EXISTS segment SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS session ON segment TYPE string;
    DEFINE FIELD IF NOT EXISTS kind ON segment TYPE string ASSERT $value IN ["text", "image"];
    DEFINE FIELD IF NOT EXISTS payload ON segment TYPE string;
    DEFINE FIELD IF NOT EXISTS embedding ON segment TYPE array<float>;
    DEFINE FIELD IF NOT EXISTS created ON segment TYPE datetime DEFAULT time::now();

    DEFINE INDEX IF NOT EXISTS segment_session ON segment FIELDS session;
    DEFINE INDEX IF NOT EXISTS segment_session_kind ON segment FIELDS session, kind;
    DEFINE INDEX IF NOT EXISTS segment_embedding ON segment FIELDS embedding HNSW DIMENSION %d DIST COSINE TYPE F32;
`
