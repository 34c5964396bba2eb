// Package bolt stores a record dataset in a bbolt file.
//
// Rows live in one bucket keyed by big-endian sequence numbers, so cursor
// order is import order. Values use the protobuf wire format described in
// codec.go. A dataset is written once by Import and then read by Scan.
package bolt

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"featnav/internal/logging"
	"featnav/internal/source"
)

var boltlog = logging.For("bolt")

// DefaultBucket is the bucket used when none is configured.
const DefaultBucket = "records"

// Dataset is a bbolt-backed record source.
type Dataset struct {
	db     *bolt.DB
	path   string
	bucket []byte
}

// Open creates or opens a dataset at path for Import. An empty bucket name
// means DefaultBucket.
func Open(path, bucket string) (*Dataset, error) {
	return open(path, bucket, false)
}

// OpenReadOnly opens an existing dataset for Scan. A missing file is an
// error; nothing is created.
func OpenReadOnly(path, bucket string) (*Dataset, error) {
	return open(path, bucket, true)
}

func open(path, bucket string, readOnly bool) (*Dataset, error) {
	if bucket == "" {
		bucket = DefaultBucket
	}
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second, ReadOnly: readOnly})
	if err != nil {
		return nil, fmt.Errorf("opening bolt db: %w", err)
	}
	return &Dataset{db: db, path: path, bucket: []byte(bucket)}, nil
}

func (d *Dataset) Close() error {
	return d.db.Close()
}

func (d *Dataset) Name() string {
	return "bolt:" + d.path + "#" + string(d.bucket)
}

// Scan reads rows in key order inside a single read transaction. A missing
// bucket scans as empty.
func (d *Dataset) Scan(ctx context.Context, fn func(source.Row) error) error {
	err := d.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(d.bucket)
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			row, err := decodeRow(v)
			if err != nil {
				return fmt.Errorf("key %x: %w", k, err)
			}
			return fn(row)
		})
	})
	if errors.Is(err, source.ErrStop) {
		return nil
	}
	return err
}

// Count returns the number of stored rows.
func (d *Dataset) Count() (int, error) {
	n := 0
	err := d.db.View(func(tx *bolt.Tx) error {
		if b := tx.Bucket(d.bucket); b != nil {
			n = b.Stats().KeyN
		}
		return nil
	})
	return n, err
}

// Import replaces the dataset with every row of src, in src order, inside
// one write transaction. Rows are stored as read, including rows without an
// identifier, so the dataset reproduces the source exactly. On error the
// previous contents are kept.
func (d *Dataset) Import(ctx context.Context, src source.Source) (int, error) {
	n := 0
	err := d.db.Update(func(tx *bolt.Tx) error {
		if tx.Bucket(d.bucket) != nil {
			if err := tx.DeleteBucket(d.bucket); err != nil {
				return fmt.Errorf("clearing bucket: %w", err)
			}
		}
		b, err := tx.CreateBucket(d.bucket)
		if err != nil {
			return fmt.Errorf("creating bucket: %w", err)
		}
		// Keys are appended in increasing order.
		b.FillPercent = 1.0

		return src.Scan(ctx, func(row source.Row) error {
			v, err := encodeRow(row)
			if err != nil {
				return fmt.Errorf("encode row %d: %w", n, err)
			}
			seq, err := b.NextSequence()
			if err != nil {
				return err
			}
			if err := b.Put(key(seq), v); err != nil {
				return err
			}
			n++
			return nil
		})
	})
	if err != nil {
		return 0, fmt.Errorf("import %s into %s: %w", src.Name(), d.Name(), err)
	}
	boltlog.Info("dataset imported", "source", src.Name(), "dataset", d.Name(), "rows", n)
	return n, nil
}

func key(seq uint64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, seq)
	return k
}
