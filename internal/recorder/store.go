// Package recorder provides a BoltDB-backed capture of raw multicast
// traffic, organised as sessions of timestamped frames.
package recorder

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
	bolt "go.etcd.io/bbolt"
)

var (
	sessionsBucket = []byte("sessions")
	framesBucket   = []byte("frames")
)

// ErrSessionNotFound is returned for an unknown session id.
var ErrSessionNotFound = errors.New("session not found")

// Session describes one capture run.
type Session struct {
	ID      string            `msgpack:"id"`
	Started time.Time         `msgpack:"started"`
	Ended   time.Time         `msgpack:"ended"`
	Frames  uint64            `msgpack:"frames"`
	Groups  map[string]string `msgpack:"groups"`
}

// Duration returns the offset of the last captured frame.
func (s Session) Duration() time.Duration {
	return s.Ended.Sub(s.Started)
}

// Frame is one captured datagram. Payload holds the bytes exactly as they
// arrived so a replay is byte-identical.
type Frame struct {
	Kind    string        `msgpack:"kind"`
	Offset  time.Duration `msgpack:"offset"`
	Payload []byte        `msgpack:"payload"`
}

// Store wraps a bbolt database for capture sessions.
type Store struct {
	db  *bolt.DB
	mu  sync.Mutex
	log zerolog.Logger
}

// Open opens or creates a BoltDB file at the given path.
func Open(path string, log zerolog.Logger) (*Store, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening database %s: %w", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(sessionsBucket); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(framesBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &Store{db: db, log: log}, nil
}

// Close closes the underlying BoltDB.
func (s *Store) Close() error {
	return s.db.Close()
}

// NewSession starts a session at started. groups maps each message kind to
// the endpoint it is captured from.
func (s *Store) NewSession(started time.Time, groups map[string]string) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := Session{
		ID:      uuid.NewString(),
		Started: started,
		Ended:   started,
		Groups:  groups,
	}

	err := s.db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.Bucket(framesBucket).CreateBucket([]byte(sess.ID)); err != nil {
			return fmt.Errorf("creating frames bucket: %w", err)
		}
		return putSession(tx, sess)
	})
	if err != nil {
		return Session{}, err
	}

	s.log.Info().
		Str("session", sess.ID).
		Time("started", started).
		Msg("Recording session started")
	return sess, nil
}

// Append stores f at the end of the session and advances its end time.
func (s *Store) Append(sessionID string, f Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := msgpack.Marshal(f)
	if err != nil {
		return fmt.Errorf("marshaling frame: %w", err)
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		sess, err := getSession(tx, sessionID)
		if err != nil {
			return err
		}
		frames := tx.Bucket(framesBucket).Bucket([]byte(sessionID))
		if frames == nil {
			return fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
		}

		seq, err := frames.NextSequence()
		if err != nil {
			return fmt.Errorf("allocating frame sequence: %w", err)
		}
		if err := frames.Put(seqKey(seq), data); err != nil {
			return fmt.Errorf("storing frame: %w", err)
		}

		sess.Frames++
		if end := sess.Started.Add(f.Offset); end.After(sess.Ended) {
			sess.Ended = end
		}
		return putSession(tx, sess)
	})
}

// Session returns the session with id.
func (s *Store) Session(id string) (Session, error) {
	var sess Session
	err := s.db.View(func(tx *bolt.Tx) error {
		var err error
		sess, err = getSession(tx, id)
		return err
	})
	return sess, err
}

// Sessions returns every session, oldest first.
func (s *Store) Sessions() ([]Session, error) {
	var sessions []Session
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(sessionsBucket).ForEach(func(k, v []byte) error {
			var sess Session
			if err := msgpack.Unmarshal(v, &sess); err != nil {
				s.log.Warn().Err(err).Str("key", string(k)).Msg("Skipping corrupt session")
				return nil
			}
			sessions = append(sessions, sess)
			return nil
		})
	})
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].Started.Before(sessions[j].Started)
	})
	return sessions, err
}

// Frames returns the session's frames in capture order.
func (s *Store) Frames(sessionID string) ([]Frame, error) {
	var frames []Frame
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(framesBucket).Bucket([]byte(sessionID))
		if b == nil {
			return fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
		}
		return b.ForEach(func(k, v []byte) error {
			var f Frame
			if err := msgpack.Unmarshal(v, &f); err != nil {
				s.log.Warn().Err(err).Str("session", sessionID).Uint64("seq", binary.BigEndian.Uint64(k)).Msg("Skipping corrupt frame")
				return nil
			}
			frames = append(frames, f)
			return nil
		})
	})
	return frames, err
}

// Delete removes a session and its frames.
func (s *Store) Delete(sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.Update(func(tx *bolt.Tx) error {
		return deleteSession(tx, sessionID)
	})
}

// RunPrune starts a background goroutine that drops sessions which ended
// more than retention ago. Runs at the given check interval until stop is
// closed.
func (s *Store) RunPrune(checkInterval, retention time.Duration, stop <-chan struct{}) {
	go func() {
		ticker := time.NewTicker(checkInterval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				s.prune(time.Now().Add(-retention))
			}
		}
	}()
}

// prune deletes every session that ended before cutoff and returns how
// many were removed.
func (s *Store) prune(cutoff time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	err := s.db.Update(func(tx *bolt.Tx) error {
		var stale []string
		err := tx.Bucket(sessionsBucket).ForEach(func(k, v []byte) error {
			var sess Session
			if err := msgpack.Unmarshal(v, &sess); err != nil {
				return nil
			}
			if sess.Ended.Before(cutoff) {
				stale = append(stale, sess.ID)

				s.log.Info().
					Str("session", sess.ID).
					Time("ended", sess.Ended).
					Msg("Session pruned")
			}
			return nil
		})
		if err != nil {
			return err
		}
		// Buckets cannot be modified while ForEach walks them.
		for _, id := range stale {
			if err := deleteSession(tx, id); err != nil {
				return err
			}
			removed++
		}
		return nil
	})
	if err != nil {
		s.log.Error().Err(err).Msg("Database error during prune")
		return 0
	}
	return removed
}

func getSession(tx *bolt.Tx, id string) (Session, error) {
	data := tx.Bucket(sessionsBucket).Get([]byte(id))
	if data == nil {
		return Session{}, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	var sess Session
	if err := msgpack.Unmarshal(data, &sess); err != nil {
		return Session{}, fmt.Errorf("unmarshaling session %s: %w", id, err)
	}
	return sess, nil
}

func putSession(tx *bolt.Tx, sess Session) error {
	data, err := msgpack.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshaling session: %w", err)
	}
	return tx.Bucket(sessionsBucket).Put([]byte(sess.ID), data)
}

func deleteSession(tx *bolt.Tx, id string) error {
	if tx.Bucket(sessionsBucket).Get([]byte(id)) == nil {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	if err := tx.Bucket(sessionsBucket).Delete([]byte(id)); err != nil {
		return err
	}
	err := tx.Bucket(framesBucket).DeleteBucket([]byte(id))
	if err != nil && !errors.Is(err, bolt.ErrBucketNotFound) {
		return err
	}
	return nil
}

func seqKey(seq uint64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, seq)
	return k
}
