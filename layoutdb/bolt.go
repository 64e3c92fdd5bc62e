package layoutdb

import (
	"context"
	"fmt"
	"time"

	cbor "github.com/brianolson/cbor_go"
	bolt "go.etcd.io/bbolt"

	"github.com/brianolson/omrsheet/grid"
	"github.com/brianolson/omrsheet/internal/logger"
)

var layoutsBucket = []byte("layouts")

// boltRecord is the CBOR value stored per layout. The layout itself stays
// YAML so it reads the same as a layout file.
type boltRecord struct {
	Body    []byte
	Updated int64
}

type BoltStore struct {
	db *bolt.DB
}

func OpenBolt(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(layoutsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	logger.WithField("path", path).Debug("opened bolt layout db")
	return &BoltStore{db: db}, nil
}

func (bs *BoltStore) Put(ctx context.Context, l *grid.Layout) error {
	if err := checkPut(l); err != nil {
		return err
	}
	body, err := l.Marshal()
	if err != nil {
		return err
	}
	blob, err := cbor.Dumps(boltRecord{Body: body, Updated: time.Now().Unix()})
	if err != nil {
		return fmt.Errorf("%s: cbor, %w", l.Name, err)
	}
	return bs.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(layoutsBucket).Put([]byte(l.Name), blob)
	})
}

func (bs *BoltStore) Get(ctx context.Context, name string) (*grid.Layout, error) {
	var blob []byte
	err := bs.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(layoutsBucket).Get([]byte(name))
		if v == nil {
			return ErrNotFound
		}
		// v is only valid inside the transaction
		blob = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	var rec boltRecord
	if err := cbor.Loads(blob, &rec); err != nil {
		return nil, fmt.Errorf("%s: cbor, %w", name, err)
	}
	l, err := grid.ParseLayout(rec.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	l.Name = name
	return l, nil
}

func (bs *BoltStore) List(ctx context.Context) ([]string, error) {
	var names []string
	err := bs.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(layoutsBucket).ForEach(func(k, v []byte) error {
			names = append(names, string(k))
			return nil
		})
	})
	return names, err
}

func (bs *BoltStore) Close() error {
	return bs.db.Close()
}
