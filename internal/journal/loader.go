package journal

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"

	"github.com/MasteredSoftware/Astriarch-sub000/internal/events"
	"github.com/MasteredSoftware/Astriarch-sub000/internal/game"
)

// ErrChecksumMismatch is returned when a journalled batch's recorded checksum
// disagrees with the checksum recomputed during replay. The journal is
// corrupt or was produced by a diverged copy; replay stops at the bad record.
var ErrChecksumMismatch = errors.New("journal checksum mismatch")

// maxRecordBytes bounds a single journal line; a full-state snapshot of a
// large game fits comfortably under this.
const maxRecordBytes = 16 << 20

// Loader rehydrates a journal bundle for validation and crash recovery.
type Loader struct {
	dir      string
	manifest Manifest
}

// Open reads the bundle manifest from the journal directory.
func Open(dir string) (*Loader, error) {
	if dir == "" {
		return nil, fmt.Errorf("journal directory must be provided")
	}
	data, err := os.ReadFile(filepath.Join(dir, "manifest.json"))
	if err != nil {
		return nil, err
	}
	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("decode journal manifest: %w", err)
	}
	return &Loader{dir: dir, manifest: manifest}, nil
}

// Manifest returns the bundle's manifest.
func (l *Loader) Manifest() Manifest {
	return l.manifest
}

// Replay streams the event log in order, applying every batch to the given
// state copy and verifying the recorded rolling checksums as it goes. It
// returns the last journalled cycle and checksum on success.
func (l *Loader) Replay(state *game.State) (uint64, string, error) {
	file, err := os.Open(filepath.Join(l.dir, l.manifest.EventsPath))
	if err != nil {
		return 0, "", err
	}
	defer file.Close()

	applicator := game.NewApplicator(state)
	scanner := bufio.NewScanner(snappy.NewReader(file))
	scanner.Buffer(make([]byte, 0, 64*1024), maxRecordBytes)

	var (
		cycle    uint64
		checksum string
	)
	for scanner.Scan() {
		var record BatchRecord
		if err := json.Unmarshal(scanner.Bytes(), &record); err != nil {
			return cycle, checksum, fmt.Errorf("decode journal record: %w", err)
		}
		//1.- Recompute the chained checksum before touching state; a mismatch
		// means this record cannot be trusted to mutate anything.
		folded, err := events.CalculateRollingChecksum(checksum, record.Events)
		if err != nil {
			return cycle, checksum, err
		}
		if folded != record.Checksum {
			return cycle, checksum, fmt.Errorf("%w: cycle %d recorded %s computed %s",
				ErrChecksumMismatch, record.Cycle, record.Checksum, folded)
		}
		//2.- Apply only once the record proved consistent. Command batches
		// within the current cycle apply directly; a batch from a later cycle
		// advances the copy through the intervening cycles first, including
		// any the journal skipped because nothing eventful happened in them.
		for state.Cycle+1 < record.Cycle {
			if err := applicator.AdvanceCycle(nil); err != nil {
				return cycle, checksum, err
			}
		}
		if record.Cycle > state.Cycle {
			if err := applicator.AdvanceCycle(record.Events); err != nil {
				return cycle, checksum, err
			}
		} else if err := applicator.ApplyAll(record.Events); err != nil {
			return cycle, checksum, err
		}
		cycle = record.Cycle
		checksum = folded
	}
	if err := scanner.Err(); err != nil {
		return cycle, checksum, err
	}
	return cycle, checksum, nil
}

// LatestSnapshot streams the snapshot log and returns the last full-state
// capture, or nil when the journal holds no snapshots.
func (l *Loader) LatestSnapshot() (*SnapshotRecord, error) {
	file, err := os.Open(filepath.Join(l.dir, l.manifest.SnapshotsPath))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	decoder, err := zstd.NewReader(file)
	if err != nil {
		return nil, err
	}
	defer decoder.Close()

	scanner := bufio.NewScanner(decoder)
	scanner.Buffer(make([]byte, 0, 64*1024), maxRecordBytes)

	var latest *SnapshotRecord
	for scanner.Scan() {
		record := &SnapshotRecord{}
		if err := json.Unmarshal(scanner.Bytes(), record); err != nil {
			return nil, fmt.Errorf("decode snapshot record: %w", err)
		}
		latest = record
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return latest, nil
}
