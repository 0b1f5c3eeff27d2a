package types

// FileID identifies a file by its position in the index store's file array.
// Postings reference lines as (FileID, line index) pairs so the inverted
// index never holds a pointer into a file record.
type FileID int32

// InvalidFileID marks a posting that no longer resolves to a file.
const InvalidFileID FileID = -1

// Index limits
const (
	// DefaultMaxFileSize is the per-file byte cap. Files exactly at the
	// cap are indexed; anything larger is logged and skipped.
	DefaultMaxFileSize = 1 << 20 // 1 MiB

	// MinTokenLength is the minimum term length; shorter token runs are
	// discarded by the tokenizer.
	MinTokenLength = 2
)

// Search limits
const (
	DefaultResultLimit = 10
	MaxResultLimit     = 100

	// MaxQueryLength is the hard cap on query strings. Exactly this
	// length is accepted; one character more is rejected.
	MaxQueryLength = 10000

	// CandidateFactor bounds candidate collection on the inverted path
	// at CandidateFactor*limit before ranking.
	CandidateFactor = 3

	DefaultCacheCapacity = 100
)

// Watcher defaults
const (
	DefaultWatchDebounceMs = 500

	// SaveEveryDispatches and SaveWindowSeconds throttle snapshot writes
	// driven by watcher dispatches: a save happens after this many
	// dispatches or this many seconds, whichever comes first.
	SaveEveryDispatches = 10
	SaveWindowSeconds   = 5
)

// Persistence layout
const (
	StateDirName     = ".prism"
	SnapshotFileName = "index.snap"
	ConfigFileName   = ".prism.kdl"

	// CompressionThreshold is the serialized size above which the
	// snapshot body is gzip-compressed.
	CompressionThreshold = 8 << 10 // 8 KiB

	// Snapshot header bytes distinguishing the two body encodings.
	SnapshotHeaderPlain      = 0x00
	SnapshotHeaderCompressed = 0x01
)

// Scoring constants. The base score of a line is
// 0.5*languageWeight + 0.5*min(1, ShortLineLength/length); the final
// search score adds the exact-match bonus and the term-coverage factor
// and is clamped to [0,1].
const (
	CodeLanguageWeight   = 1.0
	MarkupLanguageWeight = 0.7
	OtherLanguageWeight  = 0.5

	ShortLineLength = 20

	ExactMatchBonus    = 0.5
	TermCoverageWeight = 0.3
)
