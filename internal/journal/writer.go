package journal

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"

	"github.com/MasteredSoftware/Astriarch-sub000/internal/events"
	"github.com/MasteredSoftware/Astriarch-sub000/internal/game"
)

var gameIDCleaner = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// BatchRecord is one journalled event batch: everything needed to replay the
// batch and to verify the rolling checksum at that point in the log.
type BatchRecord struct {
	Cycle      uint64         `json:"cycle"`
	Checksum   string         `json:"checksum"`
	CapturedAt string         `json:"capturedAt"`
	Events     []events.Event `json:"events"`
}

// SnapshotRecord is one full-state capture written to the snapshot stream.
type SnapshotRecord struct {
	Cycle      uint64      `json:"cycle"`
	Checksum   string      `json:"checksum"`
	CapturedAt string      `json:"capturedAt"`
	State      *game.State `json:"state"`
}

// Manifest describes the journal bundle layout so tooling can locate artefacts.
type Manifest struct {
	Version       int    `json:"version"`
	GameID        string `json:"game_id"`
	CreatedAt     string `json:"created_at"`
	EventsPath    string `json:"events_path"`
	SnapshotsPath string `json:"snapshots_path"`
}

// Writer streams a game's event batches and periodic state snapshots to disk.
// Event batches go into a snappy-framed JSONL log, snapshots into a zstd
// stream; together they reconstruct the game at any journalled cycle.
type Writer struct {
	mu             sync.Mutex
	dir            string
	now            func() time.Time
	eventFile      *os.File
	eventStream    *snappy.Writer
	snapshotFile   *os.File
	snapshotStream *zstd.Encoder
}

// NewWriter prepares the journal directory and opens compressed sinks.
func NewWriter(root, gameID string, clock func() time.Time) (*Writer, Manifest, error) {
	if root == "" {
		return nil, Manifest{}, fmt.Errorf("journal root must be provided")
	}
	if clock == nil {
		clock = time.Now
	}

	cleaned := gameIDCleaner.ReplaceAllString(gameID, "")
	if cleaned == "" {
		cleaned = "game"
	}
	created := clock().UTC()
	folder := fmt.Sprintf("%s-%s", cleaned, created.Format("20060102T150405Z"))
	path := filepath.Join(root, folder)

	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, Manifest{}, err
	}

	eventsPath := filepath.Join(path, "events.jsonl.sz")
	snapshotsPath := filepath.Join(path, "snapshots.jsonl.zst")
	manifestPath := filepath.Join(path, "manifest.json")

	eventFile, err := os.Create(eventsPath)
	if err != nil {
		return nil, Manifest{}, err
	}
	eventStream := snappy.NewBufferedWriter(eventFile)

	snapshotFile, err := os.Create(snapshotsPath)
	if err != nil {
		eventStream.Close()
		eventFile.Close()
		return nil, Manifest{}, err
	}
	snapshotStream, err := zstd.NewWriter(snapshotFile)
	if err != nil {
		eventStream.Close()
		eventFile.Close()
		snapshotFile.Close()
		return nil, Manifest{}, err
	}

	manifest := Manifest{
		Version:       1,
		GameID:        gameID,
		CreatedAt:     created.Format(time.RFC3339Nano),
		EventsPath:    "events.jsonl.sz",
		SnapshotsPath: "snapshots.jsonl.zst",
	}

	data, err := json.MarshalIndent(manifest, "", "  ")
	if err == nil {
		err = os.WriteFile(manifestPath, data, 0o644)
	}
	if err != nil {
		snapshotStream.Close()
		snapshotFile.Close()
		eventStream.Close()
		eventFile.Close()
		return nil, Manifest{}, err
	}

	writer := &Writer{
		dir:            path,
		now:            clock,
		eventFile:      eventFile,
		eventStream:    eventStream,
		snapshotFile:   snapshotFile,
		snapshotStream: snapshotStream,
	}
	return writer, manifest, nil
}

// Directory exposes the directory backing the journal bundle.
func (w *Writer) Directory() string {
	if w == nil {
		return ""
	}
	return w.dir
}

// AppendBatch writes one event batch line to the compressed event log. The
// checksum is the rolling checksum after folding this batch in.
func (w *Writer) AppendBatch(cycle uint64, checksum string, batch []events.Event) error {
	if w == nil {
		return fmt.Errorf("journal writer not initialised")
	}
	captured := w.now().UTC()

	w.mu.Lock()
	defer w.mu.Unlock()

	//1.- One line per batch keeps replay framing identical to broadcast framing.
	record := BatchRecord{
		Cycle:      cycle,
		Checksum:   checksum,
		CapturedAt: captured.Format(time.RFC3339Nano),
		Events:     batch,
	}
	line, err := json.Marshal(record)
	if err != nil {
		return err
	}
	if _, err := w.eventStream.Write(line); err != nil {
		return err
	}
	if _, err := w.eventStream.Write([]byte("\n")); err != nil {
		return err
	}
	return w.eventStream.Flush()
}

// AppendSnapshot writes a full-state capture into the snapshot stream.
func (w *Writer) AppendSnapshot(cycle uint64, checksum string, state *game.State) error {
	if w == nil {
		return fmt.Errorf("journal writer not initialised")
	}
	captured := w.now().UTC()

	w.mu.Lock()
	defer w.mu.Unlock()

	record := SnapshotRecord{
		Cycle:      cycle,
		Checksum:   checksum,
		CapturedAt: captured.Format(time.RFC3339Nano),
		State:      state,
	}
	line, err := json.Marshal(record)
	if err != nil {
		return err
	}
	if _, err := w.snapshotStream.Write(line); err != nil {
		return err
	}
	if _, err := w.snapshotStream.Write([]byte("\n")); err != nil {
		return err
	}
	return w.snapshotStream.Flush()
}

// Close flushes both streams and releases the file handles, surfacing the
// first failure encountered.
func (w *Writer) Close() error {
	if w == nil {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	var firstErr error
	if err := w.eventStream.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := w.eventFile.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := w.snapshotStream.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := w.snapshotFile.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
