// Package dbcopy copies MongoDB collections between databases in fixed-size
// batches.
package dbcopy

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/fishcollege/fishcollege/backend/go-services/pkg/logger"
	"github.com/fishcollege/fishcollege/backend/go-services/pkg/metrics"
)

// DefaultBatchSize is the number of documents read and inserted per round.
const DefaultBatchSize = 500

var (
	// ErrTargetNotEmpty is returned when the target collection already holds
	// documents and Drop is not set.
	ErrTargetNotEmpty = errors.New("target collection is not empty")
	// ErrCountMismatch is returned when the target does not end up with the
	// same number of documents as were read from the source.
	ErrCountMismatch = errors.New("document count mismatch")
)

// Cursor iterates source documents. *mongo.Cursor satisfies it.
type Cursor interface {
	Next(ctx context.Context) bool
	Decode(v interface{}) error
	Err() error
	Close(ctx context.Context) error
}

type Source interface {
	Collections(ctx context.Context) ([]string, error)
	Count(ctx context.Context, collection string) (int64, error)
	Find(ctx context.Context, collection string, batchSize int) (Cursor, error)
}

type Target interface {
	Count(ctx context.Context, collection string) (int64, error)
	Drop(ctx context.Context, collection string) error
	InsertMany(ctx context.Context, collection string, docs []interface{}) error
}

// Result reports what was copied for one collection.
type Result struct {
	Collection string `json:"collection"`
	Source     int64  `json:"source"`
	Copied     int64  `json:"copied"`
	Batches    int    `json:"batches"`
}

// Copier copies collections one at a time. The first failure aborts the run.
type Copier struct {
	src       Source
	dst       Target
	batchSize int
	drop      bool
}

type Option func(*Copier)

// WithBatchSize overrides DefaultBatchSize. Values below 1 are ignored.
func WithBatchSize(n int) Option {
	return func(c *Copier) {
		if n > 0 {
			c.batchSize = n
		}
	}
}

// WithDrop drops each target collection before copying into it.
func WithDrop(drop bool) Option {
	return func(c *Copier) { c.drop = drop }
}

func New(src Source, dst Target, opts ...Option) *Copier {
	c := &Copier{src: src, dst: dst, batchSize: DefaultBatchSize}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Run copies the named collections, or every source collection when none
// are given. Results hold the collections completed before any failure.
func (c *Copier) Run(ctx context.Context, collections []string) ([]Result, error) {
	if len(collections) == 0 {
		var err error
		if collections, err = c.src.Collections(ctx); err != nil {
			return nil, fmt.Errorf("list source collections: %w", err)
		}
	}
	results := make([]Result, 0, len(collections))
	for _, name := range collections {
		res, err := c.Copy(ctx, name)
		if err != nil {
			logger.Errorf("copy %s aborted after %d documents: %v", name, res.Copied, err)
			return results, fmt.Errorf("copy %s: %w", name, err)
		}
		logger.Infof("copied %s: %d documents in %d batches", name, res.Copied, res.Batches)
		results = append(results, res)
	}
	return results, nil
}

// Copy moves every document of one collection and checks that the target
// ends up with exactly as many documents as were read.
func (c *Copier) Copy(ctx context.Context, name string) (Result, error) {
	res := Result{Collection: name}

	n, err := c.src.Count(ctx, name)
	if err != nil {
		return res, fmt.Errorf("count source: %w", err)
	}
	res.Source = n

	if c.drop {
		if err := c.dst.Drop(ctx, name); err != nil {
			return res, fmt.Errorf("drop target: %w", err)
		}
	} else {
		existing, err := c.dst.Count(ctx, name)
		if err != nil {
			return res, fmt.Errorf("count target: %w", err)
		}
		if existing > 0 {
			return res, fmt.Errorf("%w: %d documents", ErrTargetNotEmpty, existing)
		}
	}

	cur, err := c.src.Find(ctx, name, c.batchSize)
	if err != nil {
		return res, fmt.Errorf("open cursor: %w", err)
	}
	defer cur.Close(ctx)

	batch := make([]interface{}, 0, c.batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := c.dst.InsertMany(ctx, name, batch); err != nil {
			return fmt.Errorf("insert batch %d: %w", res.Batches+1, err)
		}
		res.Batches++
		res.Copied += int64(len(batch))
		metrics.DocumentsCopied.WithLabelValues(name).Add(float64(len(batch)))
		logger.Debugf("%s: batch %d inserted (%d/%d)", name, res.Batches, res.Copied, res.Source)
		batch = make([]interface{}, 0, c.batchSize)
		return nil
	}

	for cur.Next(ctx) {
		var doc bson.D
		if err := cur.Decode(&doc); err != nil {
			return res, fmt.Errorf("decode: %w", err)
		}
		batch = append(batch, doc)
		if len(batch) == c.batchSize {
			if err := flush(); err != nil {
				return res, err
			}
		}
	}
	if err := cur.Err(); err != nil {
		return res, fmt.Errorf("cursor: %w", err)
	}
	if err := flush(); err != nil {
		return res, err
	}

	got, err := c.dst.Count(ctx, name)
	if err != nil {
		return res, fmt.Errorf("count target: %w", err)
	}
	if got != res.Copied {
		return res, fmt.Errorf("%w: read %d, target has %d", ErrCountMismatch, res.Copied, got)
	}
	return res, nil
}
